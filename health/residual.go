package health

import (
	"fmt"
	"sort"
)

// Residuals holds the deviation statistics of one standardized sample.
type Residuals struct {
	Q      float64   // squared reconstruction error, orthogonal to the retained subspace
	T2     float64   // eigenvalue-normalized squared distance inside the retained subspace
	Scores []float64 // projection scores on the retained components
}

// ComputeResiduals derives Q and T2 from a standardized, masked vector.
func ComputeResiduals(z []float64, m *TrainedModel) (Residuals, error) {
	r, _, err := residualsWithReconstruction(z, m)
	return r, err
}

func residualsWithReconstruction(z []float64, m *TrainedModel) (Residuals, []float64, error) {
	if !m.Fitted() {
		return Residuals{}, nil, ErrModelNotFitted
	}
	scores, err := Project(z, m.Components)
	if err != nil {
		return Residuals{}, nil, err
	}
	zhat, err := Reconstruct(scores, m.Components)
	if err != nil {
		return Residuals{}, nil, err
	}
	r := Residuals{Scores: scores}
	for i, v := range z {
		d := v
		if zhat != nil {
			d -= zhat[i]
		}
		r.Q += d * d
	}
	for i, s := range scores {
		if m.Eigenvalues[i] > 0 {
			r.T2 += s * s / m.Eigenvalues[i]
		}
	}
	return r, zhat, nil
}

// evaluate standardizes raw readings, masks constant sensors and computes residuals.
func evaluate(values []float64, m *TrainedModel) ([]float64, Residuals, []float64, error) {
	z, err := Standardize(values, m)
	if err != nil {
		return nil, Residuals{}, nil, err
	}
	maskInactive(z, m.Active)
	r, zhat, err := residualsWithReconstruction(z, m)
	return z, r, zhat, err
}

// Contribution is one sensor's share of a sample's reconstruction error.
type Contribution struct {
	Sensor   int     `json:"sensor"`
	Name     string  `json:"name,omitempty"`
	Residual float64 `json:"residual"` // squared standardized residual for this sensor
	Share    float64 `json:"share"`    // Residual / Q, 0 when Q is 0
}

// Contributions ranks sensors by their squared reconstruction residual, largest first.
func Contributions(values []float64, m *TrainedModel) ([]Contribution, error) {
	z, r, zhat, err := evaluate(values, m)
	if err != nil {
		return nil, fmt.Errorf("ranking contributions: %w", err)
	}
	out := make([]Contribution, len(z))
	for i, v := range z {
		d := v
		if zhat != nil {
			d -= zhat[i]
		}
		c := Contribution{Sensor: i, Residual: d * d}
		if i < len(m.SensorNames) {
			c.Name = m.SensorNames[i]
		}
		if r.Q > 0 {
			c.Share = c.Residual / r.Q
		}
		out[i] = c
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Residual > out[b].Residual })
	return out, nil
}
