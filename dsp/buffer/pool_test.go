package buffer

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolValidation(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		blockLen int
		wantErr  bool
	}{
		{"valid", 8, 32, false},
		{"single", 1, 1, false},
		{"multi word", 130, 16, false},
		{"zero capacity", 0, 32, true},
		{"negative capacity", -1, 32, true},
		{"zero length", 8, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPool(tt.capacity, tt.blockLen)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.capacity, p.Capacity())
			assert.Equal(t, tt.blockLen, p.BlockLen())
			assert.Equal(t, 0, p.Outstanding())
		})
	}
}

func TestAllocateReturnsZeroedFullLength(t *testing.T) {
	p, err := NewPool(2, 4)
	require.NoError(t, err)

	b, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 1, b.Refs())
	copy(b.Samples(), []float64{1, 2, 3, 4})
	b.SetSeq(7)
	b.SetLen(2)
	require.NoError(t, b.Release())

	// Both slots are reused eventually; every reuse must be clean.
	for range 4 {
		b, err = p.Allocate()
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 0, 0}, b.Samples())
		assert.Equal(t, uint64(0), b.Seq())
		require.NoError(t, b.Release())
	}
}

func TestExhaustionFailsImmediately(t *testing.T) {
	p, err := NewPool(3, 8)
	require.NoError(t, err)

	held := make([]*Block, 0, 3)
	for range 3 {
		b, err := p.Allocate()
		require.NoError(t, err)
		held = append(held, b)
	}

	b, err := p.Allocate()
	assert.Nil(t, b)
	require.ErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, uint64(1), p.Stats().Failures)

	require.NoError(t, held[1].Release())
	b, err = p.Allocate()
	require.NoError(t, err)
	assert.Same(t, held[1], b)
}

func TestRetainDelaysReturn(t *testing.T) {
	p, err := NewPool(1, 4)
	require.NoError(t, err)

	b, err := p.Allocate()
	require.NoError(t, err)
	b.Retain()
	assert.False(t, b.Writable())
	_, err = b.MutableSamples()
	require.ErrorIs(t, err, ErrShared)

	require.NoError(t, b.Release())
	assert.Equal(t, 1, p.Outstanding())
	assert.True(t, b.Writable())

	require.NoError(t, b.Release())
	assert.Equal(t, 0, p.Outstanding())
	require.ErrorIs(t, b.Release(), ErrDoubleRelease)
	assert.Equal(t, 0, p.Outstanding())
}

func TestReleaseForeignBlock(t *testing.T) {
	a, _ := NewPool(1, 4)
	other, _ := NewPool(1, 4)
	b, err := other.Allocate()
	require.NoError(t, err)
	require.Error(t, a.Release(b))
	require.NoError(t, a.Release(nil))
}

func TestStaticBlockIsPinned(t *testing.T) {
	b := NewStatic(8)
	assert.True(t, b.Static())
	assert.False(t, b.Writable())
	b.Retain()
	require.NoError(t, b.Release())
	require.NoError(t, b.Release())
	require.NoError(t, b.Release())
	b.SetSeq(3)
	b.SetLen(2)
	assert.Equal(t, uint64(0), b.Seq())
	assert.Equal(t, 8, b.Len())
}

// TestOutstandingNeverExceedsCapacity drives random allocate/release sequences
// and checks the pool bound after every step.
func TestOutstandingNeverExceedsCapacity(t *testing.T) {
	for _, capacity := range []int{1, 5, 64, 70} {
		p, err := NewPool(capacity, 4)
		require.NoError(t, err)

		rng := rand.New(rand.NewPCG(uint64(capacity), 42))
		var held []*Block
		for step := range 5000 {
			if rng.IntN(3) > 0 {
				b, err := p.Allocate()
				if len(held) == capacity {
					require.ErrorIs(t, err, ErrPoolExhausted, "step %d", step)
					require.Nil(t, b)
				} else {
					require.NoError(t, err, "step %d", step)
					held = append(held, b)
				}
			} else if len(held) > 0 {
				i := rng.IntN(len(held))
				require.NoError(t, held[i].Release())
				held = append(held[:i], held[i+1:]...)
			}
			require.LessOrEqual(t, p.Outstanding(), capacity)
			require.Equal(t, len(held), p.Outstanding())
		}
	}
}

func TestConcurrentAllocateRelease(t *testing.T) {
	const capacity = 16
	p, err := NewPool(capacity, 8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			for range 2000 {
				b, err := p.Allocate()
				if err != nil {
					continue
				}
				b.Samples()[0] = float64(seed)
				if p.Outstanding() > capacity {
					t.Errorf("outstanding %d exceeds capacity", p.Outstanding())
				}
				_ = b.Release()
			}
		}(uint64(g))
	}
	wg.Wait()

	assert.Equal(t, 0, p.Outstanding())
	stats := p.Stats()
	assert.Equal(t, stats.Allocations, stats.Releases)
}
