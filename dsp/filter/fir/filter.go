package fir

import (
	"math"
	"math/cmplx"

	"github.com/tphakala/simd/f64"
)

// Filter is a direct-form FIR filter working on whole blocks.
type Filter struct {
	coeffs   []float64
	reversed []float64
	// work holds len(coeffs)-1 history samples followed by the current block.
	work []float64
}

// New creates a filter from coeffs, which are copied.
func New(coeffs []float64) *Filter {
	n := len(coeffs)
	c := make([]float64, n)
	copy(c, coeffs)
	r := make([]float64, n)
	for i, v := range c {
		r[n-1-i] = v
	}
	return &Filter{coeffs: c, reversed: r}
}

func (f *Filter) history() int { return max(len(f.coeffs)-1, 0) }

// ProcessBlockTo filters src into dst:
//
//	y[n] = sum_k h[k] * x[n-k]
//
// dst must be at least as long as src and may alias it.
func (f *Filter) ProcessBlockTo(dst, src []float64) {
	n := len(src)
	if n == 0 {
		return
	}
	if len(f.coeffs) == 0 {
		clear(dst[:n])
		return
	}

	h := f.history()
	if cap(f.work) < h+n {
		w := make([]float64, h+n)
		copy(w, f.work[:min(len(f.work), h)])
		f.work = w
	}
	f.work = f.work[:h+n]
	copy(f.work[h:], src)

	f64.ConvolveValid(dst[:n], f.work, f.reversed)

	copy(f.work, f.work[n:])
	f.work = f.work[:h]
}

// ProcessBlock filters buf in place.
func (f *Filter) ProcessBlock(buf []float64) {
	f.ProcessBlockTo(buf, buf)
}

// Reset clears the history.
func (f *Filter) Reset() {
	clear(f.work)
}

// Taps returns the number of coefficients.
func (f *Filter) Taps() int { return len(f.coeffs) }

// Coefficients returns a copy of the coefficients.
func (f *Filter) Coefficients() []float64 {
	c := make([]float64, len(f.coeffs))
	copy(c, f.coeffs)
	return c
}

// Response evaluates H(e^jw) at freqHz.
func (f *Filter) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	var h complex128
	for k, c := range f.coeffs {
		h += complex(c, 0) * cmplx.Exp(complex(0, -w*float64(k)))
	}
	return h
}
