package health

import (
	"fmt"
	"math"
	"time"
)

// SensorSample is one timestamped row of N sensor readings for a machine.
type SensorSample struct {
	Timestamp time.Time
	Values    []float64
}

// Width returns the number of readings in the sample.
func (s SensorSample) Width() int { return len(s.Values) }

// Validate checks the sample against the expected width and rejects
// non-finite readings. Missing values must be resolved before this point.
func (s SensorSample) Validate(width int) error {
	if len(s.Values) != width {
		return fmt.Errorf("%w: sample has %d values, want %d", ErrDimensionMismatch, len(s.Values), width)
	}
	if i := firstNonFinite(s.Values); i >= 0 {
		return fmt.Errorf("%w: value %d is %v", ErrInvalidInput, i, s.Values[i])
	}
	return nil
}

func firstNonFinite(values []float64) int {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
