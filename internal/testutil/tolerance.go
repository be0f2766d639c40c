package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t when the slices differ in length or any
// pair differs by more than eps.
func RequireSliceNearlyEqual(t testing.TB, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if d := math.Abs(got[i] - want[i]); d > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > %v)", i, got[i], want[i], d, eps)
		}
	}
}

// RequireFinite fails t on any NaN or Inf.
func RequireFinite(t testing.TB, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the largest absolute difference over the common prefix.
func MaxAbsDiff(a, b []float64) float64 {
	n := min(len(a), len(b))
	var m float64
	for i := range n {
		m = math.Max(m, math.Abs(a[i]-b[i]))
	}
	return m
}
