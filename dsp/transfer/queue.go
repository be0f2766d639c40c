package transfer

import (
	"sync/atomic"

	"github.com/cwbudde/algo-wdrc/dsp/buffer"
)

// queueSlots is the number of slots in a Queue: one being handed over, one
// ready for the other side.
const queueSlots = 2

// Frame is one block handed between contexts together with the hardware
// sequence id it was stamped with.
type Frame struct {
	Block *buffer.Block
	Seq   uint64
}

// Substitute reports whether the frame carries the engine's silence stand-in
// instead of captured audio.
func (f Frame) Substitute() bool {
	return f.Block != nil && f.Block.Static()
}

// Queue is a bounded single-producer single-consumer queue with two slots.
// Exactly one goroutine may call Push and exactly one may call Pop. A pushed
// block is owned by the queue until it is popped; the producer must not touch
// it afterwards.
type Queue struct {
	slots [queueSlots]Frame
	head  atomic.Uint64 // next slot to pop, written by the consumer
	tail  atomic.Uint64 // next slot to push, written by the producer
}

// Push hands f over to the consumer. It returns false when both slots are
// occupied, in which case ownership stays with the caller.
func (q *Queue) Push(f Frame) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == queueSlots {
		return false
	}
	q.slots[tail%queueSlots] = f
	q.tail.Store(tail + 1)
	return true
}

// Pop takes the oldest frame. ok is false when the queue is empty.
func (q *Queue) Pop() (Frame, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Frame{}, false
	}
	idx := head % queueSlots
	f := q.slots[idx]
	q.slots[idx] = Frame{}
	q.head.Store(head + 1)
	return f, true
}

// Len returns the number of occupied slots.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}
