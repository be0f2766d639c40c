package transfer

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// BitWidth is the width of one raw hardware sample word.
type BitWidth int

// Supported hardware word widths. Words are right-justified and sign-extended
// in an int32 container.
const (
	Width16 BitWidth = 16
	Width24 BitWidth = 24
	Width32 BitWidth = 32
)

// Valid reports whether w is a supported width.
func (w BitWidth) Valid() bool {
	return w == Width16 || w == Width24 || w == Width32
}

// FullScale returns 2^(w-1), the magnitude that maps to 1.0.
func (w BitWidth) FullScale() float64 {
	return float64(int64(1) << (uint(w) - 1))
}

// Scale returns the fixed factor applied when converting words to floats.
func (w BitWidth) Scale() float64 {
	return 1 / w.FullScale()
}

func (w BitWidth) limits() (int64, int64) {
	fs := int64(1) << (uint(w) - 1)
	return -fs, fs - 1
}

func (w BitWidth) String() string {
	return fmt.Sprintf("%d-bit", int(w))
}

// ToFloat converts raw words to normalized samples. Both slices must have the
// same length.
func ToFloat(dst []float64, src []int32, w BitWidth) {
	for i, v := range src {
		dst[i] = float64(v)
	}
	vecmath.ScaleBlock(dst, dst, w.Scale())
}

// FromFloat converts normalized samples to raw words, saturating at the word
// limits. Both slices must have the same length.
func FromFloat(dst []int32, src []float64, w BitWidth) {
	lo, hi := w.limits()
	fs := w.FullScale()
	for i, v := range src {
		dst[i] = int32(saturate(v*fs, lo, hi))
	}
}

// gather copies channel ch of interleaved raw words into dst.
func gather(dst, raw []int32, ch, channels int) {
	for i := range dst {
		dst[i] = raw[i*channels+ch]
	}
}

// scatter writes src as channel ch of interleaved raw words.
func scatter(raw, src []int32, ch, channels int) {
	for i, v := range src {
		raw[i*channels+ch] = v
	}
}

func zeroChannel(raw []int32, ch, channels, frames int) {
	for i := range frames {
		raw[i*channels+ch] = 0
	}
}

func saturate(x float64, lo, hi int64) int64 {
	if x >= float64(hi) {
		return hi
	}
	if x <= float64(lo) {
		return lo
	}
	if x < 0 {
		return int64(x - 0.5)
	}
	return int64(x + 0.5)
}
