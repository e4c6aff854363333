package health

import (
	"fmt"
	"math"
	"sort"
)

// DefaultPercentile is the baseline percentile used when none is configured.
const DefaultPercentile = 99.0

// Calibrate returns the p-th percentile (0 < p < 100) of the baseline statistic,
// linearly interpolated between closest ranks.
func Calibrate(values []float64, percentile float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no baseline values to calibrate", ErrInvalidInput)
	}
	if math.IsNaN(percentile) || percentile <= 0 || percentile >= 100 {
		return 0, fmt.Errorf("%w: percentile must be in (0, 100), got %f", ErrInvalidInput, percentile)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileFromSorted(sorted, percentile), nil
}

func percentileFromSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
