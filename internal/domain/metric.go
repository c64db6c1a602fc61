package domain

import "math"

// SanitizeValue maps non-finite metric values onto their index-safe
// representation. NaN becomes 0 with the is-NaN flag set; infinities are
// clamped to the largest finite magnitude. Finite values pass through.
func SanitizeValue(v float64) (stored float64, isNaN bool) {
	switch {
	case math.IsNaN(v):
		return 0, true
	case math.IsInf(v, 1):
		return math.MaxFloat64, false
	case math.IsInf(v, -1):
		return -math.MaxFloat64, false
	}
	return v, false
}

// MoreRecent reports whether m supersedes other as the latest value for a
// metric key. The ordering is lexicographic on (step, timestamp, value) with
// the greater tuple winning, which keeps "latest" meaningful when metrics
// arrive out of order. Equal tuples do not supersede, so re-applying the same
// point is a no-op.
func (m Metric) MoreRecent(other Metric) bool {
	if m.Step != other.Step {
		return m.Step > other.Step
	}
	if m.Timestamp != other.Timestamp {
		return m.Timestamp > other.Timestamp
	}
	return m.Value > other.Value
}
