// Package buffer provides the fixed-capacity audio block and the bounded block
// pool shared between the hardware interrupt context and the processing
// context.
//
// A [Block] has exactly one owner at a time. Ownership moves between pipeline
// stages (see dsp/transfer) and is never copied; extra holders are added with
// [Block.Retain] and every holder drops its reference with [Block.Release].
// The last release returns the block to its [Pool].
//
// [Pool.Allocate] never blocks: an exhausted pool returns [ErrPoolExhausted].
// The only state mutated under contention is one occupancy word per 64 blocks,
// updated with a single compare-and-swap, so both operations are safe to call
// from the interrupt handler.
package buffer
