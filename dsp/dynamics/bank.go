package dynamics

import (
	"errors"
	"fmt"
)

// ErrBandIndex is returned for a band outside the bank.
var ErrBandIndex = errors.New("dynamics: band index out of range")

// Bank holds one compressor per band sharing one set of Globals.
type Bank struct {
	comps   []*Compressor
	globals Globals
}

// NewBank builds a compressor for each entry of params.
func NewBank(params []Params, g Globals, sampleRate float64, blockLen int) (*Bank, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no bands", ErrInvalidParam)
	}
	b := &Bank{comps: make([]*Compressor, len(params)), globals: g}
	for i, p := range params {
		c, err := NewCompressor(p, g, sampleRate, blockLen)
		if err != nil {
			return nil, fmt.Errorf("dynamics: band %d: %w", i, err)
		}
		b.comps[i] = c
	}
	return b, nil
}

func (b *Bank) band(i int) (*Compressor, error) {
	if i < 0 || i >= len(b.comps) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBandIndex, i, len(b.comps))
	}
	return b.comps[i], nil
}

// ProcessBand compresses one band. An error affects only that band.
func (b *Bank) ProcessBand(i int, dst, src []float64) error {
	c, err := b.band(i)
	if err != nil {
		return err
	}
	if err := c.ProcessBlockTo(dst, src); err != nil {
		return fmt.Errorf("dynamics: band %d: %w", i, err)
	}
	return nil
}

// SetBandParams replaces the curve of band i.
func (b *Bank) SetBandParams(i int, p Params) error {
	c, err := b.band(i)
	if err != nil {
		return err
	}
	return c.SetParams(p)
}

// BandParams returns the parameters of band i.
func (b *Bank) BandParams(i int) (Params, error) {
	c, err := b.band(i)
	if err != nil {
		return Params{}, err
	}
	return c.Params(), nil
}

// GainDB returns the current gain of band i.
func (b *Bank) GainDB(i int) (float64, error) {
	c, err := b.band(i)
	if err != nil {
		return 0, err
	}
	return c.CurrentGainDB(), nil
}

// SetGlobals updates every band. Nothing changes when g is invalid.
func (b *Bank) SetGlobals(g Globals) error {
	if err := g.Validate(); err != nil {
		return err
	}
	for _, c := range b.comps {
		if err := c.SetGlobals(g); err != nil {
			return err
		}
	}
	b.globals = g
	return nil
}

// Globals returns the shared parameters.
func (b *Bank) Globals() Globals { return b.globals }

// NumBands returns the band count.
func (b *Bank) NumBands() int { return len(b.comps) }

// Reset clears every envelope.
func (b *Bank) Reset() {
	for _, c := range b.comps {
		c.Reset()
	}
}
