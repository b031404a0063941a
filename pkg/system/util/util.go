package util

import (
	"math"
	"strconv"
)

// DeltaU64 returns now-prev for monotonic counters, or 0 when the counter
// went backwards (wrap, reset, or prev unset).
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	return 0
}

// SafeDiv returns n/d, or 0 when |d| is too small to divide by.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// Clamp01 clamps x to [0,1]; NaN becomes 0.
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	if math.IsNaN(x) {
		return 0
	}
	return x
}

// FmtFloat formats f with the shortest representation that round-trips.
func FmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
