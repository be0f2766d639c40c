package filterbank

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-wdrc/dsp/core"
)

// Validation errors. All of them wrap core.ErrConfigurationRejected.
var (
	ErrNonMonotonic  = fmt.Errorf("%w: crossovers not strictly increasing", core.ErrConfigurationRejected)
	ErrOutOfRange    = fmt.Errorf("%w: crossover outside (0, nyquist)", core.ErrConfigurationRejected)
	ErrTooManyBands  = fmt.Errorf("%w: too many bands", core.ErrConfigurationRejected)
	ErrNoCrossovers  = fmt.Errorf("%w: at least one crossover is required", core.ErrConfigurationRejected)
	ErrUnstable      = fmt.Errorf("%w: unstable band filter", core.ErrConfigurationRejected)
	ErrBandIndex     = errors.New("filterbank: band index out of range")
	ErrShortBuffer   = errors.New("filterbank: destination shorter than source")
	ErrNonFiniteBand = errors.New("filterbank: band output is not finite")
)

// ValidateCrossovers checks a crossover set for a bank of at most maxBands
// bands at sampleRate.
func ValidateCrossovers(freqs []float64, sampleRate float64, maxBands int) error {
	if len(freqs) == 0 {
		return ErrNoCrossovers
	}
	if len(freqs)+1 > maxBands {
		return fmt.Errorf("%w: %d bands, maximum %d", ErrTooManyBands, len(freqs)+1, maxBands)
	}
	nyquist := sampleRate / 2
	for i, f := range freqs {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 || f >= nyquist {
			return fmt.Errorf("%w: crossover %d is %v Hz, nyquist %v Hz", ErrOutOfRange, i, f, nyquist)
		}
		if i > 0 && f <= freqs[i-1] {
			return fmt.Errorf("%w: crossover %d (%.2f Hz) not above %.2f Hz", ErrNonMonotonic, i, f, freqs[i-1])
		}
	}
	return nil
}
