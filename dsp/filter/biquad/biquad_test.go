package biquad

import (
	"math"
	"testing"
)

const eps = 1e-12

func TestSectionHandTraced(t *testing.T) {
	s := NewSection(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})

	want := []float64{0.25, 0.55, 0.35, 0.048}
	for i, w := range want {
		var x float64
		if i == 0 {
			x = 1
		}
		if y := s.ProcessSample(x); math.Abs(y-w) > eps {
			t.Fatalf("sample %d: got %v, want %v", i, y, w)
		}
	}
}

func TestBlockMatchesSampleLoop(t *testing.T) {
	c := Coefficients{B0: 0.2, B1: 0.1, B2: -0.05, A1: -0.9, A2: 0.3}
	for _, n := range []int{0, 1, 2, 7, 32} {
		in := make([]float64, n)
		for i := range in {
			in[i] = math.Sin(float64(i)*0.37) + 0.1*float64(i%3)
		}

		ref := NewSection(c)
		want := make([]float64, n)
		for i, x := range in {
			want[i] = ref.ProcessSample(x)
		}

		blk := NewSection(c)
		got := make([]float64, n)
		blk.ProcessBlockTo(got, in)
		for i := range want {
			if math.Abs(got[i]-want[i]) > eps {
				t.Fatalf("n=%d sample %d: got %v, want %v", n, i, got[i], want[i])
			}
		}
		// equal delay lines give equal ringing
		for i := range 2 {
			if a, b := blk.ProcessSample(0), ref.ProcessSample(0); math.Abs(a-b) > eps {
				t.Fatalf("n=%d tail %d: got %v, want %v", n, i, a, b)
			}
		}
	}
}

func TestChainProcessBlockToLeavesSource(t *testing.T) {
	ch := NewChain([]Coefficients{{B0: 0.5, B1: 0.5}, {B0: 1, A1: -0.5}}, WithGain(2))
	src := []float64{1, 0, 0, 0}
	dst := make([]float64, 4)
	ch.ProcessBlockTo(dst, src)

	if src[0] != 1 {
		t.Fatalf("source modified: %v", src)
	}
	ir := []float64{1, 1.5, 0.75, 0.375}
	for i := range ir {
		if math.Abs(dst[i]-ir[i]) > eps {
			t.Fatalf("sample %d: got %v, want %v", i, dst[i], ir[i])
		}
	}
	if h := real(ch.Response(0, 48000)); math.Abs(h-4) > eps {
		t.Fatalf("DC gain %v, want 4", h)
	}
}

func TestResponseAtDC(t *testing.T) {
	c := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}
	dc := (c.B0 + c.B1 + c.B2) / (1 + c.A1 + c.A2)
	if got := real(c.Response(0, 48000)); math.Abs(got-dc) > eps {
		t.Fatalf("DC gain %v, want %v", got, dc)
	}
}

func TestStable(t *testing.T) {
	tests := []struct {
		c    Coefficients
		want bool
	}{
		{Coefficients{B0: 1}, true},
		{Coefficients{B0: 1, A1: -1.8, A2: 0.81}, true},
		{Coefficients{B0: 1, A2: 1.01}, false},
		{Coefficients{B0: 1, A1: -2.1, A2: 0.9}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Stable(); got != tt.want {
			t.Errorf("%+v: got %v, want %v", tt.c, got, tt.want)
		}
	}
}
