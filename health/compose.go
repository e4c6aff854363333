package health

import "fmt"

// Fusion policy names.
const (
	FusionReconstruction = "reconstruction"
	FusionSubspace       = "subspace"
	FusionBlend          = "blend"
)

// ValidFusionPolicies is the set of recognized fusion policy names.
var ValidFusionPolicies = map[string]bool{FusionReconstruction: true, FusionSubspace: true, FusionBlend: true}

// minThreshold keeps ratios finite when a baseline statistic is identically zero.
const minThreshold = 1e-12

// Thresholds are the calibrated cut-offs stored in a TrainedModel.
// Health rescales the fused score so that 1.0 is the calibration boundary.
type Thresholds struct {
	Q      float64 `yaml:"q" json:"q"`
	T2     float64 `yaml:"t2" json:"t2"`
	Health float64 `yaml:"health" json:"health"`
}

// Composer fuses residual statistics into a single health score (higher is worse).
type Composer interface {
	Compose(r Residuals, t Thresholds) float64
}

// ReconstructionComposer scores by reconstruction error alone.
type ReconstructionComposer struct{}

func (ReconstructionComposer) Compose(r Residuals, t Thresholds) float64 {
	return ratio(r.Q, t.Q) / healthScale(t)
}

// SubspaceComposer scores by subspace distance alone.
type SubspaceComposer struct{}

func (SubspaceComposer) Compose(r Residuals, t Thresholds) float64 {
	return ratio(r.T2, t.T2) / healthScale(t)
}

// BlendComposer adds the normalized statistics, weighting the subspace distance by Weight.
type BlendComposer struct {
	Weight float64
}

func (b BlendComposer) Compose(r Residuals, t Thresholds) float64 {
	raw := (1-b.Weight)*ratio(r.Q, t.Q) + b.Weight*ratio(r.T2, t.T2)
	return raw / healthScale(t)
}

// NewComposer creates a Composer by policy name.
func NewComposer(name string, weight float64) (Composer, error) {
	switch name {
	case FusionReconstruction, "":
		return ReconstructionComposer{}, nil
	case FusionSubspace:
		return SubspaceComposer{}, nil
	case FusionBlend:
		return BlendComposer{Weight: weight}, nil
	default:
		return nil, fmt.Errorf("unknown fusion policy %q; valid: reconstruction, subspace, blend", name)
	}
}

// Coordinate returns the 2D visual-space position from the leading projection
// scores, using at most visualDims of them.
func Coordinate(r Residuals, visualDims int) [2]float64 {
	var c [2]float64
	for i := 0; i < len(c) && i < visualDims && i < len(r.Scores); i++ {
		c[i] = r.Scores[i]
	}
	return c
}

func ratio(x, threshold float64) float64 {
	return x / max(threshold, minThreshold)
}

func healthScale(t Thresholds) float64 {
	if t.Health <= 0 {
		return 1
	}
	return t.Health
}
