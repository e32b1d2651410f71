// Package stats provides the small set of descriptive statistics the
// aggregation and resampling stages need.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Errors returned by the quantile functions.
var (
	ErrEmptySample   = errors.New("empty sample")
	ErrQuantileRange = errors.New("quantile out of range")
)

// QuantileMedian is the default cohort threshold quantile.
const QuantileMedian = 0.5

// Mean returns the arithmetic mean of values, accumulated in float64.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// Quantile returns the q-quantile of values using linear interpolation
// between the closest ranks (Hyndman-Fan type 7). q must be in [0, 1].
// The input slice is not modified.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptySample
	}

	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, fmt.Errorf("%w: %v", ErrQuantileRange, q)
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return SortedQuantile(sorted, q), nil
}

// SortedQuantile is Quantile over an already sorted, non-empty slice with
// q already validated.
func SortedQuantile(sorted []float64, q float64) float64 {
	count := len(sorted)
	idx := q * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Median returns the 0.5-quantile of values.
func Median(values []float64) (float64, error) {
	return Quantile(values, QuantileMedian)
}
