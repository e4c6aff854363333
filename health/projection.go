package health

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Project returns the inner product of z with each component.
func Project(z []float64, components [][]float64) ([]float64, error) {
	scores := make([]float64, len(components))
	for i, c := range components {
		if len(c) != len(z) {
			return nil, fmt.Errorf("%w: component %d has %d entries, vector has %d", ErrDimensionMismatch, i, len(c), len(z))
		}
		scores[i] = floats.Dot(c, z)
	}
	return scores, nil
}

// Reconstruct returns the linear combination of components weighted by scores.
func Reconstruct(scores []float64, components [][]float64) ([]float64, error) {
	if len(scores) != len(components) {
		return nil, fmt.Errorf("%w: %d scores for %d components", ErrDimensionMismatch, len(scores), len(components))
	}
	if len(components) == 0 {
		return nil, nil
	}
	n := len(components[0])
	out := make([]float64, n)
	for i, c := range components {
		if len(c) != n {
			return nil, fmt.Errorf("%w: component %d has %d entries, want %d", ErrDimensionMismatch, i, len(c), n)
		}
		floats.AddScaled(out, scores[i], c)
	}
	return out, nil
}
