package wdrc

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-wdrc/dsp/core"
	"github.com/cwbudde/algo-wdrc/dsp/dynamics"
	"github.com/cwbudde/algo-wdrc/dsp/filterbank"
)

// ErrNoOutput is returned when no band produced output for a block.
var ErrNoOutput = errors.New("wdrc: no band produced output")

// Config describes one channel's processing path.
type Config struct {
	SampleRate float64
	BlockSize  int

	Kind     filterbank.Kind
	Order    int // IIR Linkwitz-Riley order, 0 for the default
	Taps     int // FIR length, 0 for the default
	MaxBands int // 0 for filterbank.MaxBands

	Crossovers []float64
	Bands      []dynamics.Params
	Globals    dynamics.Globals

	BroadbandGainDB float64
	Limiter         dynamics.Params
}

// Snapshot is a copy of the live parameters of a Processor.
type Snapshot struct {
	Crossovers      []float64
	Bands           []dynamics.Params
	Globals         dynamics.Globals
	BroadbandGainDB float64
	Limiter         dynamics.Params
}

// Stats counts degraded outcomes since construction.
type Stats struct {
	Blocks        uint64
	SkippedBands  uint64
	DroppedBlocks uint64
}

type splitter interface {
	ProcessBand(i int, dst, src []float64) error
	NumBands() int
	Crossovers() []float64
	Latency() int
	Reset()
}

// Processor is the WDRC path of one channel. ProcessBlock must be called from
// a single goroutine; Stats may be read concurrently.
type Processor struct {
	cfg     Config
	split   splitter
	comp    *dynamics.Bank
	limiter *dynamics.Compressor

	broadbandLin float64
	input        []float64
	scratch      []float64

	blocks  atomic.Uint64
	skipped atomic.Uint64
	dropped atomic.Uint64
}

// New builds a processor. The band count must be len(Crossovers)+1.
func New(cfg Config) (*Processor, error) {
	if cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("wdrc: block size must be positive, got %d", cfg.BlockSize)
	}
	if len(cfg.Bands) != len(cfg.Crossovers)+1 {
		return nil, fmt.Errorf("%w: wdrc: %d band parameter sets for %d crossovers",
			core.ErrConfigurationRejected, len(cfg.Bands), len(cfg.Crossovers))
	}
	if !core.IsFinite(cfg.BroadbandGainDB) {
		return nil, fmt.Errorf("%w: wdrc: broadband gain %v", core.ErrConfigurationRejected, cfg.BroadbandGainDB)
	}

	opts := []filterbank.Option{filterbank.WithKind(cfg.Kind)}
	if cfg.Order > 0 {
		opts = append(opts, filterbank.WithOrder(cfg.Order))
	}
	if cfg.Taps > 0 {
		opts = append(opts, filterbank.WithTaps(cfg.Taps))
	}
	if cfg.MaxBands > 0 {
		opts = append(opts, filterbank.WithMaxBands(cfg.MaxBands))
	}
	split, err := filterbank.New(cfg.Crossovers, cfg.SampleRate, opts...)
	if err != nil {
		return nil, err
	}

	comp, err := dynamics.NewBank(cfg.Bands, cfg.Globals, cfg.SampleRate, cfg.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: wdrc: %w", core.ErrConfigurationRejected, err)
	}
	limiter, err := dynamics.NewCompressor(cfg.Limiter, cfg.Globals, cfg.SampleRate, cfg.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: wdrc: limiter: %w", core.ErrConfigurationRejected, err)
	}

	cfg.Crossovers = split.Crossovers()
	cfg.Bands = append([]dynamics.Params(nil), cfg.Bands...)

	return &Processor{
		cfg:          cfg,
		split:        split,
		comp:         comp,
		limiter:      limiter,
		broadbandLin: core.DBToLinear(cfg.BroadbandGainDB),
		input:        make([]float64, cfg.BlockSize),
		scratch:      make([]float64, cfg.BlockSize),
	}, nil
}

// ProcessBlock runs one block. dst may alias src. On ErrNoOutput the content
// of dst is undefined.
func (p *Processor) ProcessBlock(dst, src []float64) error {
	n := len(src)
	if n > p.cfg.BlockSize {
		return fmt.Errorf("wdrc: block of %d samples exceeds %d", n, p.cfg.BlockSize)
	}
	if len(dst) < n {
		return fmt.Errorf("wdrc: destination holds %d samples, need %d", len(dst), n)
	}
	p.blocks.Add(1)

	in := p.input[:n]
	copy(in, src)
	out := dst[:n]
	buf := p.scratch[:n]

	produced := 0
	for i := range p.split.NumBands() {
		if err := p.split.ProcessBand(i, buf, in); err != nil {
			p.skipped.Add(1)
			continue
		}
		if err := p.comp.ProcessBand(i, buf, buf); err != nil {
			p.skipped.Add(1)
			continue
		}
		if produced == 0 {
			copy(out, buf)
		} else {
			vecmath.AddBlockInPlace(out, buf)
		}
		produced++
	}

	if produced == 0 {
		p.dropped.Add(1)
		return ErrNoOutput
	}

	if p.broadbandLin != 1 {
		vecmath.ScaleBlock(out, out, p.broadbandLin)
	}
	if err := p.limiter.ProcessBlockTo(out, out); err != nil {
		p.dropped.Add(1)
		return fmt.Errorf("%w: limiter: %w", ErrNoOutput, err)
	}
	return nil
}

// SetBandParams changes the curve of band i.
func (p *Processor) SetBandParams(i int, bp dynamics.Params) error {
	if err := p.comp.SetBandParams(i, bp); err != nil {
		return err
	}
	p.cfg.Bands[i] = bp
	return nil
}

// SetGlobals changes attack, release and calibration for every band and the
// limiter.
func (p *Processor) SetGlobals(g dynamics.Globals) error {
	if err := p.comp.SetGlobals(g); err != nil {
		return err
	}
	if err := p.limiter.SetGlobals(g); err != nil {
		return err
	}
	p.cfg.Globals = g
	return nil
}

// SetBroadbandGain sets the gain applied after the overlap-sum.
func (p *Processor) SetBroadbandGain(db float64) error {
	if !core.IsFinite(db) {
		return fmt.Errorf("%w: broadband gain %v", dynamics.ErrInvalidParam, db)
	}
	p.cfg.BroadbandGainDB = db
	p.broadbandLin = core.DBToLinear(db)
	return nil
}

// SetLimiter changes the broadband limiter parameters.
func (p *Processor) SetLimiter(lp dynamics.Params) error {
	if err := p.limiter.SetParams(lp); err != nil {
		return err
	}
	p.cfg.Limiter = lp
	return nil
}

// Params returns a copy of the live parameters.
func (p *Processor) Params() Snapshot {
	return Snapshot{
		Crossovers:      append([]float64(nil), p.cfg.Crossovers...),
		Bands:           append([]dynamics.Params(nil), p.cfg.Bands...),
		Globals:         p.cfg.Globals,
		BroadbandGainDB: p.cfg.BroadbandGainDB,
		Limiter:         p.cfg.Limiter,
	}
}

// BandGainDB returns the gain band i applied to its last block.
func (p *Processor) BandGainDB(i int) (float64, error) {
	return p.comp.GainDB(i)
}

// NumBands returns the band count.
func (p *Processor) NumBands() int { return p.split.NumBands() }

// Crossovers returns the crossover frequencies.
func (p *Processor) Crossovers() []float64 { return p.split.Crossovers() }

// Latency returns the filterbank delay in samples.
func (p *Processor) Latency() int { return p.split.Latency() }

// BlockSize returns the largest accepted block.
func (p *Processor) BlockSize() int { return p.cfg.BlockSize }

// Stats returns the outcome counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Blocks:        p.blocks.Load(),
		SkippedBands:  p.skipped.Load(),
		DroppedBlocks: p.dropped.Load(),
	}
}

// Reset clears filter and envelope states. Counters keep running.
func (p *Processor) Reset() {
	p.split.Reset()
	p.comp.Reset()
	p.limiter.Reset()
}
