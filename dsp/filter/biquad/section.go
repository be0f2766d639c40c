package biquad

import (
	"math"

	"github.com/cwbudde/algo-wdrc/dsp/core"
)

// Coefficients of one second-order section with a0 normalized to 1.
//
// Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Stable reports whether both poles lie strictly inside the unit circle.
func (c Coefficients) Stable() bool {
	// Jury conditions for z^2 + A1 z + A2.
	return math.Abs(c.A2) < 1 && math.Abs(c.A1) < 1+c.A2
}

// Section is one biquad with its delay line.
type Section struct {
	Coefficients

	d0, d1 float64
}

// NewSection returns a section with zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one sample.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y

	return y
}

// ProcessBlock filters buf in place.
func (s *Section) ProcessBlock(buf []float64) {
	s.ProcessBlockTo(buf, buf)
}

// ProcessBlockTo filters src into dst. dst must be at least as long as src and
// may alias it. The loop is unrolled by two.
func (s *Section) ProcessBlockTo(dst, src []float64) {
	n := len(src)
	if n == 0 {
		return
	}
	_ = dst[n-1]

	b0, b1, b2 := s.B0, s.B1, s.B2
	a1, a2 := s.A1, s.A2
	d0, d1 := s.d0, s.d1

	i := 0
	for ; i+1 < n; i += 2 {
		x0 := src[i]
		y0 := b0*x0 + d0
		e0 := b1*x0 - a1*y0 + d1
		e1 := b2*x0 - a2*y0

		x1 := src[i+1]
		y1 := b0*x1 + e0
		d0 = b1*x1 - a1*y1 + e1
		d1 = b2*x1 - a2*y1

		dst[i] = y0
		dst[i+1] = y1
	}

	s.d0, s.d1 = d0, d1
	if i < n {
		dst[i] = s.ProcessSample(src[i])
	}

	s.d0, s.d1 = core.FlushDenormals(s.d0), core.FlushDenormals(s.d1)
}

// Reset clears the delay line.
func (s *Section) Reset() {
	s.d0, s.d1 = 0, 0
}
