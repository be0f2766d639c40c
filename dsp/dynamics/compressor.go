package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
	"github.com/tphakala/simd/f64"

	"github.com/cwbudde/algo-wdrc/dsp/core"
)

// Compressor is the block-rate WDRC of a single band.
//
// Each block updates the envelope once from its mean-square energy, looks the
// resulting level up on the curve and ramps the linear gain from the previous
// block's value to the new one across the block. It is not safe for
// concurrent use.
type Compressor struct {
	params     Params
	globals    Globals
	sampleRate float64
	blockLen   int

	curve Curve
	env   Envelope

	gainDB  float64
	gainLin float64
	primed  bool
	ramp    []float64
}

// NewCompressor validates p and g and returns a compressor for blocks of
// blockLen samples.
func NewCompressor(p Params, g Globals, sampleRate float64, blockLen int) (*Compressor, error) {
	if !finite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidParam, sampleRate)
	}
	if blockLen <= 0 {
		return nil, fmt.Errorf("%w: block length %d", ErrInvalidParam, blockLen)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	c := &Compressor{
		params:     p,
		globals:    g,
		sampleRate: sampleRate,
		blockLen:   blockLen,
		curve:      NewCurve(p),
		env:        NewEnvelope(g.AttackMs, g.ReleaseMs, sampleRate, blockLen),
		ramp:       make([]float64, blockLen),
	}
	c.gainDB = c.curve.Gain(core.PowerToDB(0, envelopeFloor) + g.CalibrationSPL)
	c.gainLin = core.DBToLinear(c.gainDB)
	return c, nil
}

// NewLimiter returns a compressor that passes levels up to bolt dB SPL
// unchanged and limits 10:1 above.
func NewLimiter(bolt float64, g Globals, sampleRate float64, blockLen int) (*Compressor, error) {
	return NewCompressor(LimiterParams(bolt), g, sampleRate, blockLen)
}

// ProcessBlockTo compresses src into dst. dst must be at least as long as src
// and may alias it. A block with non-finite samples leaves the state
// untouched and returns ErrNonFinite.
func (c *Compressor) ProcessBlockTo(dst, src []float64) error {
	n := len(src)
	if n == 0 {
		return nil
	}
	if len(dst) < n {
		return fmt.Errorf("dynamics: destination holds %d samples, need %d", len(dst), n)
	}

	meanSquare := f64.DotProductUnsafe(src, src) / float64(n)
	if !finite(meanSquare) {
		return ErrNonFinite
	}

	c.env.Update(meanSquare)
	target := c.curve.Gain(c.LevelSPL())
	g1 := core.DBToLinear(target)
	g0 := c.gainLin
	if !c.primed {
		g0 = g1
		c.primed = true
	}

	if cap(c.ramp) < n {
		c.ramp = make([]float64, n)
	}
	ramp := c.ramp[:n]
	step := (g1 - g0) / float64(n)
	for i := range ramp {
		ramp[i] = g0 + step*float64(i+1)
	}
	ramp[n-1] = g1

	vecmath.MulBlock(dst[:n], src, ramp)

	c.gainDB = target
	c.gainLin = g1
	return nil
}

// LevelSPL returns the current envelope level in dB SPL.
func (c *Compressor) LevelSPL() float64 {
	return core.PowerToDB(c.env.Value(), envelopeFloor) + c.globals.CalibrationSPL
}

// GainDB evaluates the static curve at level dB SPL.
func (c *Compressor) GainDB(level float64) float64 {
	return c.curve.Gain(level)
}

// CurrentGainDB returns the gain reached at the end of the last block.
func (c *Compressor) CurrentGainDB() float64 { return c.gainDB }

// Params returns the band parameters.
func (c *Compressor) Params() Params { return c.params }

// Globals returns the shared parameters.
func (c *Compressor) Globals() Globals { return c.globals }

// Curve returns the static gain curve.
func (c *Compressor) Curve() Curve { return c.curve }

// SetParams replaces the curve. The envelope keeps running and the next block
// ramps from the current gain.
func (c *Compressor) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params = p
	c.curve = NewCurve(p)
	return nil
}

// SetGlobals changes the time constants and calibration.
func (c *Compressor) SetGlobals(g Globals) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c.globals = g
	c.env.SetTimes(g.AttackMs, g.ReleaseMs, c.sampleRate, c.blockLen)
	return nil
}

// Reset returns the compressor to silence.
func (c *Compressor) Reset() {
	c.env.Reset()
	c.gainDB = c.curve.Gain(c.LevelSPL())
	c.gainLin = core.DBToLinear(c.gainDB)
	c.primed = false
}
