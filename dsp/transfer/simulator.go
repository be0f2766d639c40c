package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
)

// SimOption configures a Simulator.
type SimOption func(*simConfig)

type simConfig struct {
	tail int
	hook func()
}

// WithTail sets the number of silent half-buffers fed after the source runs
// out, so that blocks still in flight reach the output.
func WithTail(halves int) SimOption {
	return func(c *simConfig) {
		if halves >= 0 {
			c.tail = halves
		}
	}
}

// WithStepHook installs a function called after every half-buffer interrupt
// pair. Offline drivers use it to run the processing context synchronously.
func WithStepHook(fn func()) SimOption {
	return func(c *simConfig) { c.hook = fn }
}

// Simulator plays the role of the audio hardware: it feeds an interleaved
// source into the engine's receive buffer and collects what the engine
// transmits, one half-buffer per step.
type Simulator struct {
	e   *Engine
	src *audio.IntBuffer
	cfg simConfig

	srcChannels int
	shift       int
	pos         int // next source frame
	tailLeft    int

	out []int
}

// NewSimulator wraps engine e around src. Source words are shifted to the
// engine's word width; a mono source is duplicated on every engine channel
// and extra source channels are ignored.
func NewSimulator(e *Engine, src *audio.IntBuffer, opts ...SimOption) (*Simulator, error) {
	if e == nil {
		return nil, fmt.Errorf("transfer: nil engine")
	}
	if src == nil || src.Format == nil || src.Format.NumChannels < 1 {
		return nil, fmt.Errorf("transfer: source buffer without format")
	}
	depth := src.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	cfg := simConfig{tail: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Simulator{
		e:           e,
		src:         src,
		cfg:         cfg,
		srcChannels: src.Format.NumChannels,
		shift:       int(e.cfg.Width) - depth,
		tailLeft:    cfg.tail,
	}, nil
}

func (s *Simulator) frames() int {
	return len(s.src.Data) / s.srcChannels
}

// Step performs one receive and one transmit interrupt. It returns io.EOF once
// the source and the tail are used up.
func (s *Simulator) Step() error {
	if s.pos >= s.frames() {
		if s.tailLeft == 0 {
			return io.EOF
		}
		s.tailLeft--
	}

	s.fillRx(s.e.NextRxHalf())
	s.e.ReceiveISR()

	tx := s.e.NextTxHalf()
	s.e.TransmitISR()
	for _, v := range tx {
		s.out = append(s.out, int(v))
	}

	if s.cfg.hook != nil {
		s.cfg.hook()
	}
	return nil
}

func (s *Simulator) fillRx(raw []int32) {
	channels := s.e.cfg.Channels
	total := s.frames()
	for i := range s.e.cfg.Quantum() {
		frame := s.pos + i
		for ch := range channels {
			var v int
			if frame < total {
				sc := min(ch, s.srcChannels-1)
				v = s.src.Data[frame*s.srcChannels+sc]
			}
			raw[i*channels+ch] = s.convert(v)
		}
	}
	s.pos += s.e.cfg.Quantum()
}

func (s *Simulator) convert(v int) int32 {
	switch {
	case s.shift > 0:
		return int32(v << s.shift)
	case s.shift < 0:
		return int32(v >> -s.shift)
	}
	return int32(v)
}

// Run steps until the source is exhausted or ctx is cancelled. When paced is
// set, steps are spaced by the half-buffer period of the engine's sample rate.
func (s *Simulator) Run(ctx context.Context, paced bool) error {
	var tick <-chan time.Time
	if paced {
		ticker := time.NewTicker(s.e.cfg.Processing().BlockPeriod() / 2)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		if err := s.Step(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Output returns everything transmitted so far as an interleaved buffer at
// the engine's word width.
func (s *Simulator) Output() *audio.IntBuffer {
	rate := int(s.e.cfg.SampleRate)
	if s.src.Format.SampleRate > 0 {
		rate = s.src.Format.SampleRate
	}
	return &audio.IntBuffer{
		Data: s.out,
		Format: &audio.Format{
			NumChannels: s.e.cfg.Channels,
			SampleRate:  rate,
		},
		SourceBitDepth: int(s.e.cfg.Width),
	}
}
