package windowing

import (
	"math"
	"testing"
)

func TestHannSymmetricEndpoints(t *testing.T) {
	h := NewHann(9, true)
	c := h.GetCoefficients()
	if c[0] != 0 || math.Abs(c[8]) > 1e-12 {
		t.Errorf("endpoints = %v, %v; want 0", c[0], c[8])
	}
	if math.Abs(c[4]-1) > 1e-12 {
		t.Errorf("center = %v, want 1", c[4])
	}
}

func TestHannPeriodicOverlapGain(t *testing.T) {
	const size, hop = 1024, 256
	h := NewHann(size, false)
	c := h.GetCoefficients()

	// Squared periodic Hann at 75% overlap sums to a constant
	want := h.OverlapGain(hop)
	for n := size; n < 2*size; n += 37 {
		sum := 0.0
		for start := n - size + 1; start <= n; start++ {
			if start%hop != 0 {
				continue
			}
			w := c[n-start]
			sum += w * w
		}
		if math.Abs(sum-want) > 1e-9 {
			t.Fatalf("overlap sum at %d = %v, want %v", n, sum, want)
		}
	}
	if math.Abs(want-1.5) > 1e-9 {
		t.Errorf("OverlapGain = %v, want 1.5", want)
	}
}

func TestHannApplyInPlaceSizeMismatch(t *testing.T) {
	h := NewHann(4, false)
	if err := h.ApplyInPlace(make([]float64, 3)); err == nil {
		t.Error("expected size mismatch error")
	}
	if h.Apply(make([]float64, 3)) != nil {
		t.Error("Apply should return nil on mismatch")
	}
}
