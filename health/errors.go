package health

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a sample's width differs from the model width.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrModelNotFitted is returned when scoring is attempted without a trained model.
	ErrModelNotFitted = errors.New("model not fitted")
	// ErrDegenerateBaseline is returned when the baseline cannot support a non-degenerate fit.
	ErrDegenerateBaseline = errors.New("degenerate baseline")
	// ErrInvalidInput is returned for NaN/Inf readings and out-of-order samples.
	ErrInvalidInput = errors.New("invalid input")
)

// DegenerateBaselineError describes why a baseline was rejected.
// It unwraps to ErrDegenerateBaseline.
type DegenerateBaselineError struct {
	Samples    int // samples in the selected baseline
	Dims       int // sensor width N
	MinSamples int // minimum baseline size required (N+1)
	Rank       int // numerical rank found, -1 when not computed
	Required   int // directions that had to be estimated
}

func (e *DegenerateBaselineError) Error() string {
	if e.Rank >= 0 && e.Samples >= e.MinSamples {
		return fmt.Sprintf("degenerate baseline: rank %d < %d required directions (%d samples, %d dims)",
			e.Rank, e.Required, e.Samples, e.Dims)
	}
	return fmt.Sprintf("degenerate baseline: %d samples for %d dims, need at least %d",
		e.Samples, e.Dims, e.MinSamples)
}

func (e *DegenerateBaselineError) Unwrap() error { return ErrDegenerateBaseline }

func tooFewSamples(samples, dims int) error {
	return &DegenerateBaselineError{Samples: samples, Dims: dims, MinSamples: dims + 1, Rank: -1}
}
