package events

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sensorflow/sensorflow/health"
)

// DefaultTopSensors is the number of deviations RootCause reports by default.
const DefaultTopSensors = 3

// Deviation is how far a sensor's event-window mean moved from its baseline,
// in baseline standard deviations.
type Deviation struct {
	Sensor       int
	Name         string
	Score        float64
	EventMean    float64
	BaselineMean float64
}

// RootCause ranks sensors by |mean(window) - mean(baseline)| / std(baseline).
// Sensors with zero baseline deviation are skipped. topN <= 0 returns all.
func RootCause(baseline, window [][]float64, names []string, topN int) ([]Deviation, error) {
	if len(baseline) < 2 || len(window) == 0 {
		return nil, fmt.Errorf("%w: root cause needs at least 2 baseline rows and 1 event row, got %d and %d",
			health.ErrInvalidInput, len(baseline), len(window))
	}
	n := len(baseline[0])
	if names != nil && len(names) != n {
		return nil, fmt.Errorf("%w: %d sensor names for %d sensors", health.ErrDimensionMismatch, len(names), n)
	}
	base, err := columns(baseline, n)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	event, err := columns(window, n)
	if err != nil {
		return nil, fmt.Errorf("event window: %w", err)
	}

	var out []Deviation
	for j := 0; j < n; j++ {
		mu, sigma := stat.MeanStdDev(base[j], nil)
		if sigma == 0 || math.IsNaN(sigma) {
			continue
		}
		eventMean := stat.Mean(event[j], nil)
		d := Deviation{
			Sensor:       j,
			Score:        math.Abs(eventMean-mu) / sigma,
			EventMean:    eventMean,
			BaselineMean: mu,
		}
		if names != nil {
			d.Name = names[j]
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func columns(rows [][]float64, n int) ([][]float64, error) {
	cols := make([][]float64, n)
	for j := range cols {
		cols[j] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", health.ErrDimensionMismatch, i, len(row), n)
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}
	return cols, nil
}
