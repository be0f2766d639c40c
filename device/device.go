package device

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-wdrc/dsp/buffer"
	"github.com/cwbudde/algo-wdrc/dsp/filterbank"
	"github.com/cwbudde/algo-wdrc/dsp/transfer"
	"github.com/cwbudde/algo-wdrc/dsp/wdrc"
	"github.com/cwbudde/algo-wdrc/prescription"
)

// blocksPerChannel covers one fill block, two ready, one in processing, two
// queued for output and one draining.
const blocksPerChannel = 8

// Config describes a device.
type Config struct {
	Stream     transfer.Config
	PoolBlocks int // 0 sizes the pool from the channel count

	Kind     filterbank.Kind
	Order    int
	Taps     int
	MaxBands int

	// OnError is called from Run with the failures of every step that had
	// any. It runs on the processing goroutine and must not block.
	OnError func(error)
}

// Status is a snapshot of the device's health.
type Status struct {
	Bands     int
	Overrun   bool
	Underrun  bool
	Overruns  uint64
	Underruns uint64
	Frames    uint64 // input blocks delivered per channel
	Processed uint64 // blocks processed over all channels
	Gaps      uint64 // input blocks missing between consecutive sequence ids
	Skipped   uint64 // bands skipped after a processing failure
	Dropped   uint64 // blocks not transmitted
	Errors    uint64 // failed block transmissions, processing errors and staged edits
	LastError error
	Pool      buffer.PoolStats
	Available int
}

// Device wires the pool, the transfer engine and the per-ear processors.
// Run, or Step, must be called from one goroutine only: the processing
// goroutine. The hardware side calls the engine's interrupt methods, and
// configuration goes through Manager.
type Device struct {
	cfg     Config
	pool    *buffer.Pool
	engine  *transfer.Engine
	manager *Manager

	procs   [2]*wdrc.Processor
	lastSeq [2]uint64
	seen    [2]bool

	processed atomic.Uint64
	gaps      atomic.Uint64
	dropped   atomic.Uint64
	failures  atomic.Uint64
	lastErr   atomic.Pointer[error]

	// skipped bands of processors that have been replaced
	retiredSkipped atomic.Uint64
	live           atomic.Pointer[[2]*wdrc.Processor]
}

// New builds a device running prescription p.
func New(cfg Config, p *prescription.Prescription) (*Device, error) {
	if err := cfg.Stream.Validate(); err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	blocks := cfg.PoolBlocks
	if blocks <= 0 {
		blocks = blocksPerChannel * cfg.Stream.Channels
	}
	pool, err := buffer.NewPool(blocks, cfg.Stream.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	engine, err := transfer.NewEngine(cfg.Stream, pool)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	manager, err := NewManager(p, ProcessingConfig{
		SampleRate: cfg.Stream.SampleRate,
		BlockSize:  cfg.Stream.BlockSize,
		Kind:       cfg.Kind,
		Order:      cfg.Order,
		Taps:       cfg.Taps,
		MaxBands:   cfg.MaxBands,
	})
	if err != nil {
		return nil, err
	}

	d := &Device{
		cfg:     cfg,
		pool:    pool,
		engine:  engine,
		manager: manager,
	}
	if err := d.apply(); err != nil {
		return nil, err
	}
	return d, nil
}

// Engine returns the transfer engine for the hardware side.
func (d *Device) Engine() *transfer.Engine { return d.engine }

// Manager returns the configuration surface.
func (d *Device) Manager() *Manager { return d.manager }

// Pool returns the block pool.
func (d *Device) Pool() *buffer.Pool { return d.pool }

// Latency returns the delay of the signal path in samples: one block of
// buffering plus the filterbank delay.
func (d *Device) Latency() int {
	lat := d.cfg.Stream.BlockSize
	if procs := d.live.Load(); procs != nil && procs[0] != nil {
		lat += procs[0].Latency()
	}
	return lat
}

func (d *Device) apply() error {
	retired, err := d.manager.Apply(&d.procs)
	for _, p := range retired {
		d.retiredSkipped.Add(p.Stats().SkippedBands)
	}
	if retired != nil || d.live.Load() == nil {
		procs := d.procs
		d.live.Store(&procs)
	}
	return err
}

// Run is the processing loop. It sleeps until the engine signals a completed
// input block, applies staged configuration and processes every available
// block. Step failures go to Config.OnError and do not stop the loop. It
// returns when ctx is done.
func (d *Device) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.engine.Ready():
		}
		if _, err := d.Step(); err != nil && d.cfg.OnError != nil {
			d.cfg.OnError(err)
		}
	}
}

// Step processes every complete frame waiting in the engine without
// blocking and returns the number of frames processed. Failures are also
// counted in Status.
func (d *Device) Step() (int, error) {
	var errs []error
	frames := 0
	for d.frameReady() {
		if err := d.apply(); err != nil {
			errs = append(errs, err)
		}
		for ch := range d.cfg.Stream.Channels {
			if err := d.processChannel(ch); err != nil {
				errs = append(errs, err)
			}
		}
		frames++
	}
	if len(errs) == 0 {
		return frames, nil
	}
	err := errors.Join(errs...)
	d.failures.Add(uint64(len(errs)))
	d.lastErr.Store(&err)
	return frames, err
}

func (d *Device) frameReady() bool {
	for ch := range d.cfg.Stream.Channels {
		if d.engine.Pending(ch) == 0 {
			return false
		}
	}
	return true
}

func (d *Device) processChannel(ch int) error {
	f, ok := d.engine.Receive(ch)
	if !ok {
		return nil
	}
	if d.seen[ch] {
		d.gaps.Add(transfer.SeqGap(d.lastSeq[ch], f.Seq))
	}
	d.seen[ch], d.lastSeq[ch] = true, f.Seq

	blk := f.Block
	if !blk.Writable() {
		// The silence stand-in is shared; run the processor on a private copy
		// so envelopes and filter states keep moving.
		own, err := d.pool.Allocate()
		if err != nil {
			_ = blk.Release()
			d.dropped.Add(1)
			return nil
		}
		own.SetLen(blk.Len())
		own.CopyFrom(blk.Samples())
		own.SetSeq(f.Seq)
		_ = blk.Release()
		blk = own
	}

	samples, err := blk.MutableSamples()
	if err != nil {
		_ = blk.Release()
		d.dropped.Add(1)
		return fmt.Errorf("device: channel %d: %w", ch, err)
	}
	if err := d.procs[ch].ProcessBlock(samples, samples); err != nil {
		_ = blk.Release()
		d.dropped.Add(1)
		if errors.Is(err, wdrc.ErrNoOutput) {
			return nil
		}
		return fmt.Errorf("device: channel %d: %w", ch, err)
	}
	d.processed.Add(1)

	if err := d.engine.Transmit(ch, blk); err != nil {
		d.dropped.Add(1)
		return fmt.Errorf("device: channel %d: %w", ch, err)
	}
	return nil
}

// Status reports band count, engine flags and counters. It may be called
// from any goroutine.
func (d *Device) Status() Status {
	flags := d.engine.Flags()
	st := Status{
		Bands:     d.manager.BandCount(),
		Overrun:   flags.Overrun,
		Underrun:  flags.Underrun,
		Overruns:  flags.Overruns,
		Underruns: flags.Underruns,
		Frames:    flags.Frames,
		Processed: d.processed.Load(),
		Gaps:      d.gaps.Load(),
		Dropped:   d.dropped.Load(),
		Skipped:   d.retiredSkipped.Load(),
		Errors:    d.failures.Load(),
		Pool:      d.pool.Stats(),
		Available: d.pool.Available(),
	}
	if err := d.lastErr.Load(); err != nil {
		st.LastError = *err
	}
	if procs := d.live.Load(); procs != nil {
		for _, p := range procs {
			if p != nil {
				st.Skipped += p.Stats().SkippedBands
			}
		}
	}
	return st
}

// ClearFlags resets the sticky overrun and underrun indicators.
func (d *Device) ClearFlags() { d.engine.ClearFlags() }
