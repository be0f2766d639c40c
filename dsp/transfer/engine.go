package transfer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-wdrc/dsp/buffer"
	"github.com/cwbudde/algo-wdrc/dsp/core"
)

// ErrQueueFull is returned by Transmit when the hardware side still owns both
// output slots of a channel.
var ErrQueueFull = errors.New("transfer: output queue full")

const maxChannels = 2

// Config describes the hardware stream.
type Config struct {
	Channels   int      // interleaved channels, 1 or 2
	BlockSize  int      // frames per block, even
	Width      BitWidth // raw word width
	SampleRate float64  // hardware sample clock in Hz
}

// NewConfig builds a stream configuration from the shared block settings.
// Options left out keep the wearable defaults of core.DefaultProcessorConfig.
func NewConfig(width BitWidth, opts ...core.ProcessorOption) Config {
	pc := core.ApplyProcessorOptions(opts...)
	return Config{
		Channels:   pc.Channels,
		BlockSize:  pc.BlockSize,
		Width:      width,
		SampleRate: pc.SampleRate,
	}
}

// Processing returns the block settings of the stream.
func (c Config) Processing() core.ProcessorConfig {
	return core.ProcessorConfig{SampleRate: c.SampleRate, BlockSize: c.BlockSize, Channels: c.Channels}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Channels < 1 || c.Channels > maxChannels {
		return fmt.Errorf("transfer: channels must be 1 or 2, got %d", c.Channels)
	}
	if c.BlockSize <= 0 || c.BlockSize%2 != 0 {
		return fmt.Errorf("transfer: block size must be positive and even, got %d", c.BlockSize)
	}
	if !c.Width.Valid() {
		return fmt.Errorf("transfer: unsupported word width %d", int(c.Width))
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("transfer: sample rate must be positive, got %v", c.SampleRate)
	}
	return nil
}

// Quantum returns the number of frames moved per half-buffer interrupt.
func (c Config) Quantum() int { return c.BlockSize / 2 }

// Flags reports the engine's backpressure indicators.
type Flags struct {
	Overrun   bool   // input was lost or replaced by silence since the last ClearFlags
	Underrun  bool   // output had no block and played silence since the last ClearFlags
	Overruns  uint64 // total overrun events
	Underruns uint64 // total underrun events
	Frames    uint64 // completed input blocks per channel
}

type inputSlot struct {
	fill   *buffer.Block
	offset int
	ready  Queue
}

type outputSlot struct {
	drain  *buffer.Block
	offset int
	queue  Queue
}

// Engine is the double-buffered transfer engine. The hardware (or Simulator)
// fills RxDMA and drains TxDMA and calls the ISR methods at every half-buffer
// boundary; the processing context uses Ready, Receive and Transmit.
type Engine struct {
	cfg  Config
	pool *buffer.Pool

	rx, tx         []int32
	words          []int32 // one channel of one quantum
	rxHalf, txHalf int
	seq            uint64

	in      []inputSlot
	out     []outputSlot
	silence *buffer.Block
	primed  atomic.Bool

	doorbell chan struct{}

	overrun   atomic.Bool
	underrun  atomic.Bool
	overruns  atomic.Uint64
	underruns atomic.Uint64
	frames    atomic.Uint64
}

// NewEngine creates an engine that allocates its input blocks from pool. The
// pool's block length must be at least cfg.BlockSize.
func NewEngine(cfg Config, pool *buffer.Pool) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("transfer: nil pool")
	}
	if pool.BlockLen() < cfg.BlockSize {
		return nil, fmt.Errorf("transfer: pool blocks hold %d samples, need %d", pool.BlockLen(), cfg.BlockSize)
	}

	size := cfg.BlockSize * cfg.Channels
	e := &Engine{
		cfg:      cfg,
		pool:     pool,
		rx:       make([]int32, size),
		tx:       make([]int32, size),
		words:    make([]int32, cfg.Quantum()),
		in:       make([]inputSlot, cfg.Channels),
		out:      make([]outputSlot, cfg.Channels),
		silence:  buffer.NewStatic(cfg.BlockSize),
		doorbell: make(chan struct{}, 1),
	}
	for ch := range e.in {
		e.in[ch].fill = e.allocate()
	}
	return e, nil
}

// Config returns the stream configuration.
func (e *Engine) Config() Config { return e.cfg }

// RxDMA returns the raw receive buffer the hardware writes to.
func (e *Engine) RxDMA() []int32 { return e.rx }

// TxDMA returns the raw transmit buffer the hardware reads from.
func (e *Engine) TxDMA() []int32 { return e.tx }

// NextRxHalf returns the half of RxDMA the next ReceiveISR will consume.
func (e *Engine) NextRxHalf() []int32 { return e.half(e.rx, e.rxHalf) }

// NextTxHalf returns the half of TxDMA the next TransmitISR will produce.
func (e *Engine) NextTxHalf() []int32 { return e.half(e.tx, e.txHalf) }

func (e *Engine) half(buf []int32, h int) []int32 {
	n := e.cfg.Quantum() * e.cfg.Channels
	return buf[h*n : (h+1)*n]
}

// ReceiveISR consumes the receive half the hardware just filled. After the
// second quantum of a block it hands the completed block of every channel to
// the processing context and rings the doorbell.
func (e *Engine) ReceiveISR() {
	raw := e.NextRxHalf()
	q := e.cfg.Quantum()

	for ch := range e.in {
		slot := &e.in[ch]
		if slot.fill != nil {
			gather(e.words, raw, ch, e.cfg.Channels)
			ToFloat(slot.fill.Samples()[slot.offset:slot.offset+q], e.words, e.cfg.Width)
		}
		slot.offset += q
	}
	e.rxHalf ^= 1

	if e.in[0].offset < e.cfg.BlockSize {
		return
	}

	for ch := range e.in {
		slot := &e.in[ch]
		b := slot.fill
		if b == nil {
			b = e.silence
			e.raiseOverrun()
		}
		b.SetSeq(e.seq)
		if !slot.ready.Push(Frame{Block: b, Seq: e.seq}) {
			_ = b.Release()
			e.raiseOverrun()
		}
		slot.fill = e.allocate()
		slot.offset = 0
	}
	e.seq++
	e.frames.Add(1)

	select {
	case e.doorbell <- struct{}{}:
	default:
	}
}

// TransmitISR produces the next transmit half from the blocks queued by the
// processing context. A channel with nothing queued plays silence.
func (e *Engine) TransmitISR() {
	raw := e.NextTxHalf()
	q := e.cfg.Quantum()
	starved := false

	for ch := range e.out {
		slot := &e.out[ch]
		if slot.drain == nil {
			if f, ok := slot.queue.Pop(); ok {
				slot.drain = f.Block
				slot.offset = 0
			}
		}
		if slot.drain == nil {
			zeroChannel(raw, ch, e.cfg.Channels, q)
			starved = true
			continue
		}

		samples := slot.drain.Samples()
		end := min(slot.offset+q, len(samples))
		n := max(end-slot.offset, 0)
		if n > 0 {
			FromFloat(e.words[:n], samples[slot.offset:end], e.cfg.Width)
			scatter(raw, e.words[:n], ch, e.cfg.Channels)
		}
		for i := n; i < q; i++ {
			raw[i*e.cfg.Channels+ch] = 0
		}
		slot.offset += q
		if slot.offset >= e.cfg.BlockSize {
			_ = slot.drain.Release()
			slot.drain = nil
		}
	}
	e.txHalf ^= 1

	if starved && e.primed.Load() {
		e.underrun.Store(true)
		e.underruns.Add(1)
	}
}

// allocate claims the next fill block; a nil result is turned into silence
// at the next block boundary.
func (e *Engine) allocate() *buffer.Block {
	b, err := e.pool.Allocate()
	if err != nil {
		return nil
	}
	b.SetLen(e.cfg.BlockSize)
	return b
}

func (e *Engine) raiseOverrun() {
	e.overrun.Store(true)
	e.overruns.Add(1)
}

// Ready returns the doorbell rung after every completed input block. It holds
// at most one pending notification; the receiver must drain all channels with
// Receive after each wake-up.
func (e *Engine) Ready() <-chan struct{} { return e.doorbell }

// Receive takes the oldest completed input block of channel ch. The caller
// becomes the owner and must Release it.
func (e *Engine) Receive(ch int) (Frame, bool) {
	if ch < 0 || ch >= len(e.in) {
		return Frame{}, false
	}
	return e.in[ch].ready.Pop()
}

// Pending returns the number of completed input blocks waiting on channel ch.
func (e *Engine) Pending(ch int) int {
	if ch < 0 || ch >= len(e.in) {
		return 0
	}
	return e.in[ch].ready.Len()
}

// Transmit queues b for output on channel ch and moves ownership to the
// engine. When both output slots are taken the block is released and
// ErrQueueFull is returned.
func (e *Engine) Transmit(ch int, b *buffer.Block) error {
	if ch < 0 || ch >= len(e.out) {
		_ = b.Release()
		return fmt.Errorf("transfer: channel %d out of range [0, %d)", ch, len(e.out))
	}
	if !e.out[ch].queue.Push(Frame{Block: b, Seq: b.Seq()}) {
		_ = b.Release()
		return ErrQueueFull
	}
	e.primed.Store(true)
	return nil
}

// Flags returns a snapshot of the backpressure indicators.
func (e *Engine) Flags() Flags {
	return Flags{
		Overrun:   e.overrun.Load(),
		Underrun:  e.underrun.Load(),
		Overruns:  e.overruns.Load(),
		Underruns: e.underruns.Load(),
		Frames:    e.frames.Load(),
	}
}

// ClearFlags resets the sticky overrun and underrun indicators. Counters keep
// running.
func (e *Engine) ClearFlags() {
	e.overrun.Store(false)
	e.underrun.Store(false)
}

// SeqGap returns the number of blocks missing between two consecutive frames
// of one channel.
func SeqGap(prev, next uint64) uint64 {
	if next <= prev {
		return 0
	}
	return next - prev - 1
}
