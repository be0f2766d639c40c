package fir

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

const eps = 1e-12

func TestImpulseAcrossBlocks(t *testing.T) {
	coeffs := []float64{0.1, 0.2, 0.4, 0.2, 0.1}
	f := New(coeffs)

	in := make([]float64, 12)
	in[1] = 1
	out := make([]float64, len(in))
	for i := 0; i < len(in); i += 3 {
		f.ProcessBlockTo(out[i:i+3], in[i:i+3])
	}

	for i, y := range out {
		var want float64
		if k := i - 1; k >= 0 && k < len(coeffs) {
			want = coeffs[k]
		}
		if math.Abs(y-want) > eps {
			t.Fatalf("sample %d: got %v, want %v", i, y, want)
		}
	}
}

func TestInPlaceMatchesOutOfPlace(t *testing.T) {
	coeffs := []float64{0.5, -0.25, 0.125}
	a, b := New(coeffs), New(coeffs)

	for blk := range 4 {
		src := make([]float64, 8)
		for i := range src {
			src[i] = math.Sin(float64(blk*8+i) * 0.3)
		}
		dst := make([]float64, 8)
		a.ProcessBlockTo(dst, src)
		b.ProcessBlock(src)
		for i := range src {
			if math.Abs(src[i]-dst[i]) > eps {
				t.Fatalf("block %d sample %d: %v != %v", blk, i, src[i], dst[i])
			}
		}
	}
}

func TestResetClearsHistory(t *testing.T) {
	f := New([]float64{1, 1, 1})
	f.ProcessBlock([]float64{1, 1, 1, 1})
	f.Reset()
	buf := []float64{0, 0}
	f.ProcessBlock(buf)
	if buf[0] != 0 || buf[1] != 0 {
		t.Fatalf("history survived reset: %v", buf)
	}
}

func TestBandRejectsEvenTaps(t *testing.T) {
	if _, err := Band(0, 1000, 64, 32000); !errors.Is(err, ErrTaps) {
		t.Fatalf("got %v, want ErrTaps", err)
	}
	if _, err := Band(2000, 1000, 65, 32000); err == nil {
		t.Fatal("expected error for empty band")
	}
}

func TestBandLowpassShape(t *testing.T) {
	h, err := Band(0, 4000, 97, 32000)
	if err != nil {
		t.Fatal(err)
	}
	f := New(h)
	if db := 20 * math.Log10(cmplx.Abs(f.Response(0, 32000))); math.Abs(db) > 0.1 {
		t.Errorf("DC gain %.3f dB", db)
	}
	if db := 20 * math.Log10(cmplx.Abs(f.Response(12000, 32000))); db > -35 {
		t.Errorf("stopband gain %.1f dB", db)
	}
	for k := range h {
		if math.Abs(h[k]-h[len(h)-1-k]) > 1e-12 {
			t.Fatalf("not symmetric at %d", k)
		}
	}
}

func TestBandsSumToDelay(t *testing.T) {
	const taps = 97
	edges := []float64{0, 500, 1200, 3000, 7000, 16000}
	sum := make([]float64, taps)
	for i := 1; i < len(edges); i++ {
		h, err := Band(edges[i-1], edges[i], taps, 32000)
		if err != nil {
			t.Fatal(err)
		}
		for k := range h {
			sum[k] += h[k]
		}
	}
	for k, v := range sum {
		want := 0.0
		if k == (taps-1)/2 {
			want = 1
		}
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("tap %d: got %v, want %v", k, v, want)
		}
	}
}
