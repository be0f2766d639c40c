package filterbank

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"

	"github.com/cwbudde/algo-wdrc/dsp/filter/biquad"
	"github.com/cwbudde/algo-wdrc/dsp/filter/design/pass"
	"github.com/cwbudde/algo-wdrc/dsp/filter/fir"
)

// Kind selects the band filter implementation.
type Kind int

const (
	// KindIIR uses Linkwitz-Riley biquad cascades. Every band also carries
	// the allpass of each crossover above it, so the bands sum to an allpass:
	// flat magnitude, zero latency, phase distorting around the crossovers.
	KindIIR Kind = iota
	// KindFIR uses linear-phase FIR bands with a fixed group delay.
	KindFIR
)

func (k Kind) String() string {
	switch k {
	case KindIIR:
		return "iir"
	case KindFIR:
		return "fir"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts "iir" or "fir".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "iir", "IIR":
		return KindIIR, nil
	case "fir", "FIR":
		return KindFIR, nil
	}
	return 0, fmt.Errorf("filterbank: unknown kind %q", s)
}

const (
	// MaxBands is the largest supported band count.
	MaxBands = 8

	defaultOrder = 4
	defaultTaps  = 97
)

type config struct {
	kind     Kind
	order    int
	taps     int
	maxBands int
}

// Option configures a Bank.
type Option func(*config)

// WithKind selects IIR or FIR bands.
func WithKind(k Kind) Option {
	return func(cfg *config) {
		if k == KindIIR || k == KindFIR {
			cfg.kind = k
		}
	}
}

// WithOrder sets the Linkwitz-Riley order of IIR bands. It must be positive
// and even; defaults to 4.
func WithOrder(n int) Option {
	return func(cfg *config) {
		if n > 0 && n%2 == 0 {
			cfg.order = n
		}
	}
}

// WithTaps sets the FIR length. It must be odd; defaults to 97.
func WithTaps(n int) Option {
	return func(cfg *config) {
		if n > 0 && n%2 == 1 {
			cfg.taps = n
		}
	}
}

// WithMaxBands lowers the band limit below MaxBands.
func WithMaxBands(n int) Option {
	return func(cfg *config) {
		if n >= 2 && n <= MaxBands {
			cfg.maxBands = n
		}
	}
}

type bandFilter interface {
	ProcessBlockTo(dst, src []float64)
	Reset()
	Response(freqHz, sampleRate float64) complex128
}

// Bank is an N-band filterbank. It is not safe for concurrent use; each
// channel owns its own Bank.
type Bank struct {
	cfg        config
	sampleRate float64
	crossovers []float64
	bands      []bandFilter
}

// New builds a bank with len(crossovers)+1 bands.
func New(crossovers []float64, sampleRate float64, opts ...Option) (*Bank, error) {
	cfg := config{
		kind:     KindIIR,
		order:    defaultOrder,
		taps:     defaultTaps,
		maxBands: MaxBands,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("filterbank: sample rate must be positive, got %v", sampleRate)
	}

	b := &Bank{cfg: cfg, sampleRate: sampleRate}
	if err := b.SetCrossovers(crossovers); err != nil {
		return nil, err
	}
	return b, nil
}

// SetCrossovers rebuilds every band for a new layout. On error the previous
// layout and filter states are kept. When an IIR bank keeps its band count the
// delay lines carry over to the new coefficients; otherwise all states start
// from zero.
func (b *Bank) SetCrossovers(freqs []float64) error {
	if err := ValidateCrossovers(freqs, b.sampleRate, b.cfg.maxBands); err != nil {
		return err
	}

	xo := make([]float64, len(freqs))
	copy(xo, freqs)

	var (
		bands []bandFilter
		err   error
	)
	switch b.cfg.kind {
	case KindFIR:
		bands, err = designFIR(xo, b.cfg.taps, b.sampleRate)
	default:
		bands, err = b.rebuildIIR(xo)
	}
	if err != nil {
		return err
	}

	b.crossovers = xo
	b.bands = bands
	return nil
}

// iirDesign is the section list of one band: highpasses at every crossover
// below the band, the lowpass at its upper edge, then the allpasses of the
// remaining crossovers.
type iirDesign struct {
	sections []biquad.Coefficients
	gain     float64
}

func designIIR(xo []float64, order int, sampleRate float64) ([]iirDesign, error) {
	sign := 1.0
	if pass.LinkwitzRileyNeedsHPInvert(order) {
		sign = -1
	}

	hp := make([][]biquad.Coefficients, len(xo))
	lp := make([][]biquad.Coefficients, len(xo))
	ap := make([][]biquad.Coefficients, len(xo))
	for j, f := range xo {
		hp[j] = pass.LinkwitzRileyHP(f, order, sampleRate)
		lp[j] = pass.LinkwitzRileyLP(f, order, sampleRate)
		ap[j] = pass.LinkwitzRileyAP(f, order, sampleRate)
		if hp[j] == nil || lp[j] == nil || ap[j] == nil {
			return nil, fmt.Errorf("filterbank: cannot design LR%d at %.2f Hz", order, f)
		}
	}

	designs := make([]iirDesign, len(xo)+1)
	for k := range designs {
		d := iirDesign{gain: 1}
		for j := range k {
			d.sections = append(d.sections, hp[j]...)
			d.gain *= sign
		}
		if k < len(xo) {
			d.sections = append(d.sections, lp[k]...)
		}
		for j := k + 1; j < len(xo); j++ {
			d.sections = append(d.sections, ap[j]...)
		}
		designs[k] = d
	}
	return designs, nil
}

// rebuildIIR designs the bands for xo. Chains of an equally sized IIR layout
// are updated in place so their delay lines survive.
func (b *Bank) rebuildIIR(xo []float64) ([]bandFilter, error) {
	designs, err := designIIR(xo, b.cfg.order, b.sampleRate)
	if err != nil {
		return nil, err
	}

	fresh := make([]bandFilter, len(designs))
	for i, d := range designs {
		c := biquad.NewChain(d.sections, biquad.WithGain(d.gain))
		if !c.Stable() {
			return nil, fmt.Errorf("%w: band %d", ErrUnstable, i)
		}
		fresh[i] = c
	}

	if len(b.bands) != len(designs) {
		return fresh, nil
	}
	chains := make([]*biquad.Chain, len(b.bands))
	for i, band := range b.bands {
		c, ok := band.(*biquad.Chain)
		if !ok {
			return fresh, nil
		}
		chains[i] = c
	}
	for i, d := range designs {
		chains[i].UpdateCoefficients(d.sections, d.gain)
	}
	return b.bands, nil
}

func designFIR(xo []float64, taps int, sampleRate float64) ([]bandFilter, error) {
	bands := make([]bandFilter, len(xo)+1)
	for i := range bands {
		lo, hi := 0.0, sampleRate/2
		if i > 0 {
			lo = xo[i-1]
		}
		if i < len(xo) {
			hi = xo[i]
		}
		h, err := fir.Band(lo, hi, taps, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("filterbank: band %d: %w", i, err)
		}
		bands[i] = fir.New(h)
	}
	return bands, nil
}

// ProcessBand filters src through band i into dst. A band whose output is not
// finite is reset and reports ErrNonFiniteBand; the other bands are not
// affected.
func (b *Bank) ProcessBand(i int, dst, src []float64) error {
	if i < 0 || i >= len(b.bands) {
		return fmt.Errorf("%w: %d of %d", ErrBandIndex, i, len(b.bands))
	}
	if len(dst) < len(src) {
		return ErrShortBuffer
	}
	if len(src) == 0 {
		return nil
	}

	b.bands[i].ProcessBlockTo(dst, src)

	if s := f64.Sum(dst[:len(src)]); math.IsNaN(s) || math.IsInf(s, 0) {
		b.bands[i].Reset()
		return fmt.Errorf("%w: band %d", ErrNonFiniteBand, i)
	}
	return nil
}

// Process runs every band. dsts must hold one slice per band. Band errors are
// collected; bands that succeeded still hold valid output.
func (b *Bank) Process(src []float64, dsts [][]float64) error {
	if len(dsts) != len(b.bands) {
		return fmt.Errorf("filterbank: %d outputs for %d bands", len(dsts), len(b.bands))
	}
	var errs []error
	for i := range b.bands {
		if err := b.ProcessBand(i, dsts[i], src); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Response returns the frequency response of band i at freqHz.
func (b *Bank) Response(i int, freqHz float64) (complex128, error) {
	if i < 0 || i >= len(b.bands) {
		return 0, fmt.Errorf("%w: %d of %d", ErrBandIndex, i, len(b.bands))
	}
	return b.bands[i].Response(freqHz, b.sampleRate), nil
}

// NumBands returns the band count.
func (b *Bank) NumBands() int { return len(b.bands) }

// Crossovers returns a copy of the crossover frequencies.
func (b *Bank) Crossovers() []float64 {
	out := make([]float64, len(b.crossovers))
	copy(out, b.crossovers)
	return out
}

// Kind returns the band filter implementation.
func (b *Bank) Kind() Kind { return b.cfg.kind }

// SampleRate returns the sample rate in Hz.
func (b *Bank) SampleRate() float64 { return b.sampleRate }

// MaxBands returns the configured band limit.
func (b *Bank) MaxBands() int { return b.cfg.maxBands }

// Latency returns the group delay of the bands in samples.
func (b *Bank) Latency() int {
	if b.cfg.kind == KindFIR {
		return (b.cfg.taps - 1) / 2
	}
	return 0
}

// Reset clears every band state.
func (b *Bank) Reset() {
	for _, band := range b.bands {
		band.Reset()
	}
}
