package buffer

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrPoolExhausted is returned by Allocate when every block is outstanding.
	ErrPoolExhausted = errors.New("buffer: pool exhausted")
	// ErrDoubleRelease is returned when a block is released more often than it
	// was retained.
	ErrDoubleRelease = errors.New("buffer: block released with no outstanding reference")
	// ErrShared is returned by MutableSamples when the caller is not the sole
	// owner of the block.
	ErrShared = errors.New("buffer: block is shared or read-only")
)

// noCopy lets go vet flag accidental value copies of a Block.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Block is a fixed-capacity buffer of normalized samples with a sequence id
// and a reference count. Blocks are handled by pointer only.
type Block struct {
	_ noCopy

	samples []float64
	length  int
	seq     uint64
	refs    atomic.Int32

	pool   *Pool
	slot   int
	static bool
}

// NewStatic returns a pinned block that does not belong to any pool. Release
// and Retain are no-ops and the block is never writable. It is used as a
// stand-in (for example a zero-filled substitute) that may be handed out any
// number of times.
func NewStatic(length int) *Block {
	if length < 0 {
		length = 0
	}
	b := &Block{
		samples: make([]float64, length),
		length:  length,
		static:  true,
	}
	b.refs.Store(1)
	return b
}

// Samples returns the valid samples. Only the sole owner may write to the
// returned slice; use MutableSamples to have that checked.
func (b *Block) Samples() []float64 {
	return b.samples[:b.length]
}

// MutableSamples returns the valid samples for writing. It fails with
// ErrShared when the block is static or has more than one holder.
func (b *Block) MutableSamples() ([]float64, error) {
	if !b.Writable() {
		return nil, ErrShared
	}
	return b.samples[:b.length], nil
}

// Writable reports whether the caller, assumed to be a holder, is the only one.
func (b *Block) Writable() bool {
	return !b.static && b.refs.Load() == 1
}

// Len returns the number of valid samples.
func (b *Block) Len() int { return b.length }

// Cap returns the fixed capacity.
func (b *Block) Cap() int { return len(b.samples) }

// SetLen sets the number of valid samples, clamped to [0, Cap()].
func (b *Block) SetLen(n int) {
	if b.static {
		return
	}
	if n < 0 {
		n = 0
	}
	if n > len(b.samples) {
		n = len(b.samples)
	}
	b.length = n
}

// Seq returns the sequence id stamped by the producer.
func (b *Block) Seq() uint64 { return b.seq }

// SetSeq stamps the sequence id. Static blocks keep their id at zero.
func (b *Block) SetSeq(seq uint64) {
	if b.static {
		return
	}
	b.seq = seq
}

// Static reports whether the block is a pinned, pool-less block.
func (b *Block) Static() bool { return b.static }

// Refs returns the current number of holders.
func (b *Block) Refs() int { return int(b.refs.Load()) }

// Retain adds a holder. Every Retain must be paired with a Release.
func (b *Block) Retain() {
	if b.static {
		return
	}
	b.refs.Add(1)
}

// Release drops one holder and returns the block to its pool when it was the
// last one. The caller must not touch the block afterwards.
func (b *Block) Release() error {
	if b == nil || b.static {
		return nil
	}
	n := b.refs.Add(-1)
	switch {
	case n > 0:
		return nil
	case n < 0:
		b.refs.Add(1)
		return ErrDoubleRelease
	}
	if b.pool != nil {
		b.pool.free(b.slot)
	}
	return nil
}

// Zero clears the valid samples.
func (b *Block) Zero() {
	clear(b.samples[:b.length])
}

// CopyFrom copies src into the block and returns the number of copied samples.
func (b *Block) CopyFrom(src []float64) int {
	return copy(b.samples[:b.length], src)
}
