package health

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// RankTolerance is the eigenvalue ratio (relative to the largest) below which
// a direction is considered numerically absent.
const RankTolerance = 1e-10

// SubspaceModel is the fitted linear reduction of the baseline.
// Components holds ReconDims directions; the first VisualDims of them also
// drive the 2D coordinate.
type SubspaceModel struct {
	Components     [][]float64
	Eigenvalues    []float64
	ExplainedRatio []float64
	VisualDims     int
	ReconDims      int
	Rank           int
}

// FitSubspace computes the principal directions of a standardized baseline
// (M rows × N columns) and applies the component-count policy from cfg.
func FitSubspace(standardized [][]float64, cfg FitConfig, dec Decomposer) (*SubspaceModel, error) {
	m := len(standardized)
	if m == 0 {
		return nil, tooFewSamples(0, 0)
	}
	n := len(standardized[0])
	if m <= n {
		return nil, tooFewSamples(m, n)
	}

	d, err := dec.Decompose(standardized)
	if err != nil {
		return nil, fmt.Errorf("decomposing baseline: %w", err)
	}
	if len(d.Components) != len(d.Eigenvalues) || len(d.Components) == 0 {
		return nil, fmt.Errorf("decomposer returned %d components and %d eigenvalues", len(d.Components), len(d.Eigenvalues))
	}

	total := 0.0
	for i, v := range d.Eigenvalues {
		if v < 0 {
			d.Eigenvalues[i] = 0
			v = 0
		}
		total += v
	}
	rank := 0
	if d.Eigenvalues[0] > 0 {
		for _, v := range d.Eigenvalues {
			if v > RankTolerance*d.Eigenvalues[0] {
				rank++
			}
		}
	}

	k := min(cfg.VisualDims, n)
	if rank < k {
		return nil, &DegenerateBaselineError{Samples: m, Dims: n, MinSamples: n + 1, Rank: rank, Required: k}
	}

	kRecon := reconDims(d.Eigenvalues, total, cfg, n, k)
	if kRecon > rank {
		logrus.Warnf("recon dims %d exceed baseline rank %d; clamping", kRecon, rank)
		kRecon = rank
	}
	if kRecon >= n {
		logrus.Warnf("all %d directions retained; reconstruction error will be zero", n)
	}

	sub := &SubspaceModel{
		Components:     make([][]float64, kRecon),
		Eigenvalues:    make([]float64, kRecon),
		ExplainedRatio: make([]float64, kRecon),
		VisualDims:     k,
		ReconDims:      kRecon,
		Rank:           rank,
	}
	for i := 0; i < kRecon; i++ {
		if len(d.Components[i]) != n {
			return nil, fmt.Errorf("%w: component %d has %d entries, want %d", ErrDimensionMismatch, i, len(d.Components[i]), n)
		}
		sub.Components[i] = canonicalSign(d.Components[i])
		sub.Eigenvalues[i] = d.Eigenvalues[i]
		sub.ExplainedRatio[i] = d.Eigenvalues[i] / total
	}
	return sub, nil
}

// reconDims picks the reconstruction component count: a fixed count when
// configured, otherwise the smallest count reaching the variance fraction.
// The result is at least k and, when N > k, at most N-1.
func reconDims(eigenvalues []float64, total float64, cfg FitConfig, n, k int) int {
	kRecon := cfg.ReconDims
	if kRecon == 0 {
		cumulative := 0.0
		for i, v := range eigenvalues {
			cumulative += v
			kRecon = i + 1
			if cumulative/total >= cfg.VarianceFraction {
				break
			}
		}
		if n > k {
			kRecon = min(kRecon, n-1)
		}
	}
	return min(max(kRecon, k), n)
}

// canonicalSign returns a copy of v whose largest-magnitude entry is positive.
func canonicalSign(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	best := 0
	for i := range out {
		if math.Abs(out[i]) > math.Abs(out[best]) {
			best = i
		}
	}
	if out[best] < 0 {
		for i := range out {
			out[i] = -out[i]
		}
	}
	return out
}
