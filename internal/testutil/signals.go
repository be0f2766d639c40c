// Package testutil holds signal generators and assertions shared by the
// package tests.
package testutil

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-wdrc/dsp/core"
)

// Sine returns length samples of a sine with peak amplitude amp.
func Sine(freqHz, sampleRate, amp float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amp * math.Sin(step*float64(i))
	}
	return out
}

// SineDBFS returns a sine whose RMS level is dbfs relative to a full-scale
// RMS of 1.
func SineDBFS(freqHz, sampleRate, dbfs float64, length int) []float64 {
	return Sine(freqHz, sampleRate, math.Sqrt2*core.DBToLinear(dbfs), length)
}

// Noise returns seeded uniform white noise in [-amp, amp).
func Noise(seed uint64, amp float64, length int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, length)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amp
	}
	return out
}

// Impulse returns a unit impulse at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// Blocks splits x into consecutive blocks of blockLen samples. A short tail
// is dropped.
func Blocks(x []float64, blockLen int) [][]float64 {
	n := len(x) / blockLen
	out := make([][]float64, n)
	for i := range out {
		out[i] = x[i*blockLen : (i+1)*blockLen]
	}
	return out
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// RMSDBFS returns the RMS level of x in dB.
func RMSDBFS(x []float64) float64 {
	return core.LinearToDB(RMS(x))
}
