package health

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ScaleEpsilon is the standard deviation below which a sensor is treated as constant.
const ScaleEpsilon = 1e-8

// FitScale computes the per-dimension mean and population standard deviation
// of the baseline. Dimensions whose deviation is below ScaleEpsilon get scale 1
// and are marked inactive so they never contribute to residual statistics.
func FitScale(baseline [][]float64) (mean, scale []float64, active []bool, err error) {
	if len(baseline) == 0 {
		return nil, nil, nil, tooFewSamples(0, 0)
	}
	n := len(baseline[0])
	mean = make([]float64, n)
	scale = make([]float64, n)
	active = make([]bool, n)

	column := make([]float64, len(baseline))
	for j := 0; j < n; j++ {
		for i, row := range baseline {
			if len(row) != n {
				return nil, nil, nil, fmt.Errorf("%w: baseline row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), n)
			}
			column[i] = row[j]
		}
		mu, sd := stat.PopMeanStdDev(column, nil)
		mean[j] = mu
		if sd < ScaleEpsilon {
			scale[j] = 1
			continue
		}
		scale[j] = sd
		active[j] = true
	}
	return mean, scale, active, nil
}

// Standardize maps raw readings into the model's standardized space:
// (x[i] - mean[i]) / scale[i]. It does not mutate values.
func Standardize(values []float64, m *TrainedModel) ([]float64, error) {
	if !m.Fitted() {
		return nil, ErrModelNotFitted
	}
	if len(values) != m.Dims() {
		return nil, fmt.Errorf("%w: got %d values, model has %d", ErrDimensionMismatch, len(values), m.Dims())
	}
	if i := firstNonFinite(values); i >= 0 {
		return nil, fmt.Errorf("%w: value %d is %v", ErrInvalidInput, i, values[i])
	}
	z := make([]float64, len(values))
	for i, v := range values {
		z[i] = (v - m.Mean[i]) / m.Scale[i]
	}
	if i := firstNonFinite(z); i >= 0 {
		return nil, fmt.Errorf("%w: value %d (%v) overflows the sensor scale", ErrInvalidInput, i, values[i])
	}
	return z, nil
}

// Destandardize is the inverse of Standardize: z[i]*scale[i] + mean[i].
func Destandardize(z []float64, m *TrainedModel) ([]float64, error) {
	if !m.Fitted() {
		return nil, ErrModelNotFitted
	}
	if len(z) != m.Dims() {
		return nil, fmt.Errorf("%w: got %d values, model has %d", ErrDimensionMismatch, len(z), m.Dims())
	}
	x := make([]float64, len(z))
	for i, v := range z {
		x[i] = v*m.Scale[i] + m.Mean[i]
	}
	return x, nil
}

// maskInactive zeroes constant-sensor dimensions in place.
func maskInactive(z []float64, active []bool) {
	for i := range z {
		if !active[i] {
			z[i] = 0
		}
	}
}
