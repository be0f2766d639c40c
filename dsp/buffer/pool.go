package buffer

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

const wordBits = 64

// PoolStats holds allocation counters since the pool was created.
type PoolStats struct {
	Allocations uint64
	Failures    uint64
	Releases    uint64
}

// Pool is a bounded set of equally sized blocks. The number of outstanding
// blocks never exceeds Capacity.
type Pool struct {
	blocks   []Block
	occupied []atomic.Uint64
	lastMask uint64
	blockLen int

	outstanding atomic.Int64
	allocations atomic.Uint64
	failures    atomic.Uint64
	releases    atomic.Uint64
}

// NewPool creates a pool of capacity blocks of blockLen samples each. All
// storage is allocated up front.
func NewPool(capacity, blockLen int) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer: pool capacity must be positive, got %d", capacity)
	}
	if blockLen <= 0 {
		return nil, fmt.Errorf("buffer: block length must be positive, got %d", blockLen)
	}

	words := (capacity + wordBits - 1) / wordBits
	p := &Pool{
		blocks:   make([]Block, capacity),
		occupied: make([]atomic.Uint64, words),
		blockLen: blockLen,
		lastMask: ^uint64(0),
	}
	if rem := capacity % wordBits; rem != 0 {
		p.lastMask = (uint64(1) << rem) - 1
	}

	storage := make([]float64, capacity*blockLen)
	for i := range p.blocks {
		b := &p.blocks[i]
		b.samples = storage[i*blockLen : (i+1)*blockLen : (i+1)*blockLen]
		b.pool = p
		b.slot = i
	}

	return p, nil
}

// Allocate claims a free block. It never waits: when every block is
// outstanding it returns ErrPoolExhausted. The block comes back zeroed, at
// full length, with one holder.
func (p *Pool) Allocate() (*Block, error) {
	for w := range p.occupied {
		mask := ^uint64(0)
		if w == len(p.occupied)-1 {
			mask = p.lastMask
		}

		word := &p.occupied[w]
		for {
			old := word.Load()
			free := ^old & mask
			if free == 0 {
				break
			}
			bit := bits.TrailingZeros64(free)
			if !word.CompareAndSwap(old, old|uint64(1)<<bit) {
				continue
			}

			b := &p.blocks[w*wordBits+bit]
			b.refs.Store(1)
			b.length = p.blockLen
			b.seq = 0
			b.Zero()

			p.outstanding.Add(1)
			p.allocations.Add(1)
			return b, nil
		}
	}

	p.failures.Add(1)
	return nil, ErrPoolExhausted
}

// Release drops one holder of b. It is equivalent to b.Release().
func (p *Pool) Release(b *Block) error {
	if b == nil {
		return nil
	}
	if b.pool != p && !b.static {
		return fmt.Errorf("buffer: block belongs to another pool")
	}
	return b.Release()
}

func (p *Pool) free(slot int) {
	p.occupied[slot/wordBits].And(^(uint64(1) << (slot % wordBits)))
	p.outstanding.Add(-1)
	p.releases.Add(1)
}

// Capacity returns the number of blocks owned by the pool.
func (p *Pool) Capacity() int { return len(p.blocks) }

// BlockLen returns the capacity of every block.
func (p *Pool) BlockLen() int { return p.blockLen }

// Outstanding returns the number of blocks currently allocated.
func (p *Pool) Outstanding() int { return int(p.outstanding.Load()) }

// Available returns the number of blocks that can still be allocated.
func (p *Pool) Available() int { return p.Capacity() - p.Outstanding() }

// Stats returns a snapshot of the allocation counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Allocations: p.allocations.Load(),
		Failures:    p.failures.Load(),
		Releases:    p.releases.Load(),
	}
}
