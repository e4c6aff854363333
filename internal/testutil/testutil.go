// Package testutil provides shared test infrastructure for sensorflow.
// It consolidates synthetic baseline builders and float assertions used across
// health/, health/events/, dataset/ and api/ test packages. It deliberately
// depends on no sensorflow package so any test package can import it.
package testutil

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

// Epoch is the first timestamp of every synthetic series.
var Epoch = time.Date(2018, 4, 1, 0, 0, 0, 0, time.UTC)

// Timestamps returns m timestamps one minute apart starting at Epoch.
func Timestamps(m int) []time.Time {
	ts := make([]time.Time, m)
	for i := range ts {
		ts[i] = Epoch.Add(time.Duration(i) * time.Minute)
	}
	return ts
}

// IndependentBaseline returns m rows of n independent Gaussian readings.
// Sensor j has mean 10*(j+1) and standard deviation sigma.
func IndependentBaseline(rng *rand.Rand, m, n int, sigma float64) [][]float64 {
	rows := make([][]float64, m)
	for i := range rows {
		row := make([]float64, n)
		for j := range row {
			row[j] = 10*float64(j+1) + sigma*rng.NormFloat64()
		}
		rows[i] = row
	}
	return rows
}

// CorrelatedBaseline returns m rows of n >= 2 readings where sensor 1 tracks
// sensor 0 with small noise and the remaining sensors are independent.
func CorrelatedBaseline(rng *rand.Rand, m, n int) [][]float64 {
	rows := make([][]float64, m)
	for i := range rows {
		row := make([]float64, n)
		base := rng.NormFloat64()
		row[0] = 50 + base
		row[1] = 20 + 2*base + 0.05*rng.NormFloat64()
		for j := 2; j < n; j++ {
			row[j] = 10*float64(j) + rng.NormFloat64()
		}
		rows[i] = row
	}
	return rows
}

// ColumnStats returns per-column population mean and standard deviation.
func ColumnStats(rows [][]float64) (mean, std []float64) {
	n := len(rows[0])
	mean = make([]float64, n)
	std = make([]float64, n)
	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(rows))
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(len(rows)))
	}
	return mean, std
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertSliceAlmostEqual compares two slices element-wise with absolute tolerance.
func AssertSliceAlmostEqual(t *testing.T, name string, want, got []float64, absTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > absTol {
			t.Errorf("%s[%d]: got %v, want %v", name, i, got[i], want[i])
		}
	}
}
