package health

import (
	"fmt"
	"math"
)

// FitConfig groups the policies used by Fit.
type FitConfig struct {
	Method           string  `yaml:"method" json:"method"`                       // decomposition method registered in health/linalg ("svd" default, "eigen")
	VisualDims       int     `yaml:"visual_dims" json:"visual_dims"`             // components kept for the 2D coordinate (default 2)
	ReconDims        int     `yaml:"recon_dims" json:"recon_dims"`               // components kept for reconstruction; 0 = choose by VarianceFraction
	VarianceFraction float64 `yaml:"variance_fraction" json:"variance_fraction"` // cumulative explained variance used when ReconDims is 0 (default 0.90)
	Percentile       float64 `yaml:"percentile" json:"percentile"`               // baseline percentile used to calibrate thresholds (default 99)
	Fusion           string  `yaml:"fusion" json:"fusion"`                       // "blend" (default), "reconstruction", "subspace"
	BlendWeight      float64 `yaml:"blend_weight" json:"blend_weight"`           // weight of the subspace distance under "blend", in [0, 1]
}

// DefaultFitConfig returns the fitting policy used when nothing is configured.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		Method:           "svd",
		VisualDims:       2,
		VarianceFraction: 0.90,
		Percentile:       99,
		Fusion:           FusionBlend,
		BlendWeight:      0.5,
	}
}

// Validate checks policy names and parameter ranges.
func (c FitConfig) Validate() error {
	if c.VisualDims < 1 {
		return fmt.Errorf("%w: visual_dims must be at least 1, got %d", ErrInvalidInput, c.VisualDims)
	}
	if c.ReconDims < 0 {
		return fmt.Errorf("%w: recon_dims must be non-negative, got %d", ErrInvalidInput, c.ReconDims)
	}
	if c.ReconDims == 0 && (c.VarianceFraction <= 0 || c.VarianceFraction > 1) {
		return fmt.Errorf("%w: variance_fraction must be in (0, 1], got %f", ErrInvalidInput, c.VarianceFraction)
	}
	if math.IsNaN(c.Percentile) || c.Percentile <= 0 || c.Percentile >= 100 {
		return fmt.Errorf("%w: percentile must be in (0, 100), got %f", ErrInvalidInput, c.Percentile)
	}
	if !ValidFusionPolicies[c.Fusion] {
		return fmt.Errorf("%w: unknown fusion policy %q; valid: reconstruction, subspace, blend", ErrInvalidInput, c.Fusion)
	}
	if c.BlendWeight < 0 || c.BlendWeight > 1 {
		return fmt.Errorf("%w: blend_weight must be in [0, 1], got %f", ErrInvalidInput, c.BlendWeight)
	}
	return nil
}

// ClassifierConfig groups the debounce and escalation parameters of the AnomalyClassifier.
type ClassifierConfig struct {
	WarningRun     int     `yaml:"warning_run" json:"warning_run"`         // consecutive over-threshold samples to enter warning (w)
	BrokenRun      int     `yaml:"broken_run" json:"broken_run"`           // consecutive samples above BrokenMultiple to enter broken (b)
	BrokenMultiple float64 `yaml:"broken_multiple" json:"broken_multiple"` // health score multiple that counts toward BrokenRun
	WarningDwell   int     `yaml:"warning_dwell" json:"warning_dwell"`     // consecutive over-threshold samples spent in warning before broken (w2); 0 disables
}

// NewClassifierConfig creates a ClassifierConfig from explicit values.
func NewClassifierConfig(warningRun, brokenRun int, brokenMultiple float64, warningDwell int) ClassifierConfig {
	return ClassifierConfig{
		WarningRun:     warningRun,
		BrokenRun:      brokenRun,
		BrokenMultiple: brokenMultiple,
		WarningDwell:   warningDwell,
	}
}

// DefaultClassifierConfig returns the classifier parameters used when nothing is configured.
func DefaultClassifierConfig() ClassifierConfig {
	return NewClassifierConfig(3, 5, 2.0, 30)
}

// Validate checks that run lengths are positive and the broken multiple lies above the threshold.
func (c ClassifierConfig) Validate() error {
	if c.WarningRun < 1 {
		return fmt.Errorf("%w: warning_run must be at least 1, got %d", ErrInvalidInput, c.WarningRun)
	}
	if c.BrokenRun < 1 {
		return fmt.Errorf("%w: broken_run must be at least 1, got %d", ErrInvalidInput, c.BrokenRun)
	}
	if math.IsNaN(c.BrokenMultiple) || c.BrokenMultiple <= 1 {
		return fmt.Errorf("%w: broken_multiple must be greater than 1, got %f", ErrInvalidInput, c.BrokenMultiple)
	}
	if c.WarningDwell < 0 {
		return fmt.Errorf("%w: warning_dwell must be non-negative, got %d", ErrInvalidInput, c.WarningDwell)
	}
	return nil
}
