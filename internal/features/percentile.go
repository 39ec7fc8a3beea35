package features

import (
	"math"
	"slices"
)

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between the closest ranks. values is not modified.
func Percentile(values []int, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[hi])-float64(sorted[lo]))*frac
}

// percentileWidth turns a percentile into a fixed sequence width: truncated
// toward zero and never below 1.
func percentileWidth(values []int, p float64) int {
	w := int(Percentile(values, p))
	if w < 1 {
		return 1
	}
	return w
}
