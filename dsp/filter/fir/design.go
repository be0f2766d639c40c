package fir

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// ErrTaps is returned for an even or non-positive tap count.
var ErrTaps = errors.New("fir: tap count must be odd and positive")

const minGrid = 1024

// Band designs a linear-phase filter passing [lo, hi) Hz. lo <= 0 makes it a
// lowpass, hi >= sampleRate/2 a highpass. The ideal response is sampled on a
// frequency grid, transformed back with an inverse FFT, centered and shaped
// by a Hann window. The group delay is (taps-1)/2 samples.
//
// Bands designed with the same taps and sampleRate over adjacent edges sum to
// a unit impulse at the center tap, because every grid bin belongs to exactly
// one band and the window is 1 at the center.
func Band(lo, hi float64, taps int, sampleRate float64) ([]float64, error) {
	if taps <= 0 || taps%2 == 0 {
		return nil, ErrTaps
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("fir: invalid sample rate %v", sampleRate)
	}
	if hi <= lo {
		return nil, fmt.Errorf("fir: empty band [%v, %v)", lo, hi)
	}

	grid := minGrid
	for grid < 8*taps {
		grid *= 2
	}

	bins := make([]complex128, grid)
	binHz := sampleRate / float64(grid)
	nyquist := sampleRate / 2
	for k := 0; k <= grid/2; k++ {
		f := float64(k) * binHz
		in := f >= lo && f < hi
		if k == grid/2 && hi >= nyquist {
			in = true
		}
		if !in {
			continue
		}
		bins[k] = 1
		if k > 0 && k < grid/2 {
			bins[grid-k] = 1
		}
	}

	plan, err := algofft.NewPlan64(grid)
	if err != nil {
		return nil, fmt.Errorf("fir: fft plan: %w", err)
	}
	ir := make([]complex128, grid)
	if err := plan.Inverse(ir, bins); err != nil {
		return nil, fmt.Errorf("fir: inverse fft: %w", err)
	}

	mid := (taps - 1) / 2
	h := make([]float64, taps)
	for k := range h {
		idx := (k - mid + grid) % grid
		h[k] = real(ir[idx]) * hann(k, taps)
	}
	return h, nil
}

// hann is the symmetric Hann window that equals 1 at the center tap.
func hann(k, taps int) float64 {
	if taps == 1 {
		return 1
	}
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(k)/float64(taps-1))
}
