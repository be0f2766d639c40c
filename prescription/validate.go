package prescription

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-wdrc/dsp/core"
	"github.com/cwbudde/algo-wdrc/dsp/filterbank"
)

// Band count limits.
const (
	MinBands = 3
	MaxBands = filterbank.MaxBands
)

// ErrConfigurationRejected is the common cause of every validation error.
var ErrConfigurationRejected = core.ErrConfigurationRejected

// Validation errors.
var (
	ErrNonMonotonic = fmt.Errorf("%w: crossovers not strictly increasing", ErrConfigurationRejected)
	ErrBandCount    = fmt.Errorf("%w: band count out of range", ErrConfigurationRejected)
	ErrBandMismatch = fmt.Errorf("%w: band and crossover counts disagree", ErrConfigurationRejected)
	ErrInvalidParam = fmt.Errorf("%w: parameter out of range", ErrConfigurationRejected)
)

// Validate checks both sides, the ceiling and that both sides have the same
// band count.
func (p *Prescription) Validate() error {
	if math.IsNaN(p.Ceiling) || math.IsInf(p.Ceiling, 0) || p.Ceiling <= 0 || p.Ceiling > 150 {
		return fmt.Errorf("%w: ceiling %v dB SPL", ErrInvalidParam, p.Ceiling)
	}
	if err := p.Left.Validate(MaxBands); err != nil {
		return fmt.Errorf("left: %w", err)
	}
	if err := p.Right.Validate(MaxBands); err != nil {
		return fmt.Errorf("right: %w", err)
	}
	if p.Left.NumBands() != p.Right.NumBands() {
		return fmt.Errorf("%w: left has %d bands, right %d", ErrBandMismatch, p.Left.NumBands(), p.Right.NumBands())
	}
	return nil
}

// Validate checks one side for a bank of at most maxBands bands.
func (s Side) Validate(maxBands int) error {
	n := len(s.Bands)
	if n < MinBands || n > maxBands {
		return fmt.Errorf("%w: %d bands, allowed [%d, %d]", ErrBandCount, n, MinBands, maxBands)
	}
	if len(s.Crossovers) != n-1 {
		return fmt.Errorf("%w: %d crossovers for %d bands", ErrBandMismatch, len(s.Crossovers), n)
	}
	for i, f := range s.Crossovers {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return fmt.Errorf("%w: crossover %d is %v Hz", ErrInvalidParam, i, f)
		}
		if i > 0 && f <= s.Crossovers[i-1] {
			return fmt.Errorf("%w: crossover %d (%.2f Hz) not above %.2f Hz", ErrNonMonotonic, i, f, s.Crossovers[i-1])
		}
	}
	if err := s.Globals().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}
	if math.IsNaN(s.BroadbandGainDB) || math.IsInf(s.BroadbandGainDB, 0) || math.Abs(s.BroadbandGainDB) > 60 {
		return fmt.Errorf("%w: broadband gain %v dB", ErrInvalidParam, s.BroadbandGainDB)
	}
	if err := s.Limiter.raw().Validate(); err != nil {
		return fmt.Errorf("%w: limiter: %w", ErrInvalidParam, err)
	}
	for i, b := range s.Bands {
		if err := b.raw().Validate(); err != nil {
			return fmt.Errorf("%w: band %d: %w", ErrInvalidParam, i, err)
		}
	}
	return nil
}
