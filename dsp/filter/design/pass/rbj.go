package pass

import (
	"math"

	"github.com/cwbudde/algo-wdrc/dsp/filter/biquad"
)

// LowpassRBJ designs a second-order lowpass from the Audio EQ Cookbook. An
// invalid frequency or Q yields zero coefficients.
func LowpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	if !validFreq(freq, sampleRate) || q <= 0 {
		return biquad.Coefficients{}
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	return normalize((1-cw)/2, 1-cw, (1-cw)/2, 1+alpha, -2*cw, 1-alpha)
}

// HighpassRBJ designs a second-order highpass from the Audio EQ Cookbook.
func HighpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	if !validFreq(freq, sampleRate) || q <= 0 {
		return biquad.Coefficients{}
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	return normalize((1+cw)/2, -(1 + cw), (1+cw)/2, 1+alpha, -2*cw, 1-alpha)
}
