package health

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// TrainedModel is the immutable artifact produced by Fit for one
// (machine, baseline window) pair. Scoring only reads it.
type TrainedModel struct {
	Mean   []float64 // per-sensor baseline mean
	Scale  []float64 // per-sensor baseline std; 1 for constant sensors
	Active []bool    // false for constant sensors excluded from residuals

	Components     [][]float64 // ReconDims × N, descending eigenvalue
	Eigenvalues    []float64   // variance along each retained component
	ExplainedRatio []float64   // Eigenvalues / total baseline variance
	VisualDims     int         // leading components used for the 2D coordinate
	ReconDims      int         // components used for reconstruction and T2

	Thresholds  Thresholds
	Percentile  float64
	Fusion      string
	BlendWeight float64

	FitStart        time.Time
	FitEnd          time.Time
	BaselineSamples int
	SensorNames     []string // optional, aligned with Mean
}

// Fitted reports whether the model holds a usable fit. Safe on nil.
func (m *TrainedModel) Fitted() bool {
	return m != nil && len(m.Mean) > 0 && len(m.Components) > 0
}

// Dims returns the sensor width N.
func (m *TrainedModel) Dims() int {
	if m == nil {
		return 0
	}
	return len(m.Mean)
}

// Composer returns the fusion policy recorded in the model.
func (m *TrainedModel) Composer() (Composer, error) {
	return NewComposer(m.Fusion, m.BlendWeight)
}

// BaselineRange designates the known-normal window. Set either the row form
// [StartRow, EndRow) or the inclusive time form [Start, End]; the zero value
// selects every sample.
type BaselineRange struct {
	StartRow int
	EndRow   int
	Start    time.Time
	End      time.Time
}

// RowRange selects rows [start, end).
func RowRange(start, end int) BaselineRange {
	return BaselineRange{StartRow: start, EndRow: end}
}

// TimeRange selects samples with start <= timestamp <= end.
func TimeRange(start, end time.Time) BaselineRange {
	return BaselineRange{Start: start, End: end}
}

func (b BaselineRange) isRows() bool { return b.StartRow != 0 || b.EndRow != 0 }
func (b BaselineRange) isTime() bool { return !b.Start.IsZero() || !b.End.IsZero() }

// Select returns the samples inside the range.
func (b BaselineRange) Select(samples []SensorSample) ([]SensorSample, error) {
	switch {
	case b.isRows() && b.isTime():
		return nil, fmt.Errorf("%w: baseline range sets both rows and timestamps", ErrInvalidInput)
	case b.isRows():
		if b.StartRow < 0 || b.EndRow <= b.StartRow || b.EndRow > len(samples) {
			return nil, fmt.Errorf("%w: baseline rows [%d, %d) outside [0, %d)", ErrInvalidInput, b.StartRow, b.EndRow, len(samples))
		}
		return samples[b.StartRow:b.EndRow], nil
	case b.isTime():
		if !b.End.IsZero() && b.End.Before(b.Start) {
			return nil, fmt.Errorf("%w: baseline end %s before start %s", ErrInvalidInput, b.End, b.Start)
		}
		var out []SensorSample
		for _, s := range samples {
			if s.Timestamp.Before(b.Start) || (!b.End.IsZero() && s.Timestamp.After(b.End)) {
				continue
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return samples, nil
	}
}

// Fit learns a TrainedModel from the baseline window of samples: scale,
// principal subspace and calibrated thresholds. Baseline samples must be
// finite and share one width.
func Fit(samples []SensorSample, baseline BaselineRange, cfg FitConfig) (*TrainedModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	selected, err := baseline.Select(samples)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, tooFewSamples(0, 0)
	}
	n := selected[0].Width()
	if len(selected) <= n {
		return nil, tooFewSamples(len(selected), n)
	}

	rows := make([][]float64, len(selected))
	fitStart, fitEnd := selected[0].Timestamp, selected[0].Timestamp
	for i, s := range selected {
		if err := s.Validate(n); err != nil {
			return nil, fmt.Errorf("baseline sample %d: %w", i, err)
		}
		rows[i] = s.Values
		if s.Timestamp.Before(fitStart) {
			fitStart = s.Timestamp
		}
		if s.Timestamp.After(fitEnd) {
			fitEnd = s.Timestamp
		}
	}

	mean, scale, active, err := FitScale(rows)
	if err != nil {
		return nil, err
	}
	standardized := make([][]float64, len(rows))
	for i, row := range rows {
		z := make([]float64, n)
		for j, v := range row {
			z[j] = (v - mean[j]) / scale[j]
		}
		maskInactive(z, active)
		standardized[i] = z
	}

	dec, err := newDecomposer(cfg.Method)
	if err != nil {
		return nil, err
	}
	sub, err := FitSubspace(standardized, cfg, dec)
	if err != nil {
		return nil, err
	}

	m := &TrainedModel{
		Mean:            mean,
		Scale:           scale,
		Active:          active,
		Components:      sub.Components,
		Eigenvalues:     sub.Eigenvalues,
		ExplainedRatio:  sub.ExplainedRatio,
		VisualDims:      sub.VisualDims,
		ReconDims:       sub.ReconDims,
		Percentile:      cfg.Percentile,
		Fusion:          cfg.Fusion,
		BlendWeight:     cfg.BlendWeight,
		FitStart:        fitStart,
		FitEnd:          fitEnd,
		BaselineSamples: len(rows),
	}
	if err := calibrateModel(m, standardized); err != nil {
		return nil, err
	}

	inactive := 0
	for _, a := range active {
		if !a {
			inactive++
		}
	}
	logrus.Infof("fitted model: %d samples, %d sensors (%d constant), recon dims %d, Q threshold %.4g, T2 threshold %.4g",
		len(rows), n, inactive, m.ReconDims, m.Thresholds.Q, m.Thresholds.T2)
	return m, nil
}

// calibrateModel sets the Q, T2 and fused-health thresholds from the
// baseline's own residual distribution.
func calibrateModel(m *TrainedModel, standardized [][]float64) error {
	residuals := make([]Residuals, len(standardized))
	qs := make([]float64, len(standardized))
	t2s := make([]float64, len(standardized))
	for i, z := range standardized {
		r, err := ComputeResiduals(z, m)
		if err != nil {
			return err
		}
		residuals[i] = r
		qs[i] = r.Q
		t2s[i] = r.T2
	}

	var err error
	if m.Thresholds.Q, err = Calibrate(qs, m.Percentile); err != nil {
		return fmt.Errorf("calibrating Q threshold: %w", err)
	}
	if m.Thresholds.T2, err = Calibrate(t2s, m.Percentile); err != nil {
		return fmt.Errorf("calibrating T2 threshold: %w", err)
	}

	composer, err := m.Composer()
	if err != nil {
		return err
	}
	raw := make([]float64, len(residuals))
	unit := Thresholds{Q: m.Thresholds.Q, T2: m.Thresholds.T2, Health: 1}
	for i, r := range residuals {
		raw[i] = composer.Compose(r, unit)
	}
	health, err := Calibrate(raw, m.Percentile)
	if err != nil {
		return fmt.Errorf("calibrating health scale: %w", err)
	}
	if health <= 0 {
		health = 1
	}
	m.Thresholds.Health = health
	return nil
}
