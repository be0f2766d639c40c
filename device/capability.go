package device

import (
	"github.com/cwbudde/algo-wdrc/dsp/dynamics"
	"github.com/cwbudde/algo-wdrc/dsp/wdrc"
)

// BlockProcessor turns one block of one channel into output.
type BlockProcessor interface {
	ProcessBlock(dst, src []float64) error
	BlockSize() int
	Stats() wdrc.Stats
}

// Configurable exposes the live parameters of a processor.
type Configurable interface {
	SetBandParams(i int, p dynamics.Params) error
	SetGlobals(g dynamics.Globals) error
	SetBroadbandGain(db float64) error
	SetLimiter(p dynamics.Params) error
	Params() wdrc.Snapshot
	NumBands() int
}

// Channel is a processor that can be both run and reconfigured.
type Channel interface {
	BlockProcessor
	Configurable
}

var _ Channel = (*wdrc.Processor)(nil)
