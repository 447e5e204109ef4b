// SPDX-License-Identifier: MIT
/*
Package snapshot provides a wait-free single-writer/single-reader exchange
cell for passing the latest value of a type across two independently
scheduled goroutines.

The buffer holds two copies of the payload plus a sequence counter. The
writer always writes into the inactive slot, flips the active index, then
bumps the sequence; the reader records the sequence, copies the active
slot, and re-checks the sequence, retrying if a publish landed during the
copy. Neither side ever blocks and neither side allocates.

Each buffer has exactly one writer and one reader. Multiple writers or
readers are out of contract.
*/
package snapshot

import "sync/atomic"

// maxReadRetries bounds the ReadLatest retry loop. The writer's publish
// window is a struct copy plus two atomic stores, so a single retry is
// already exceptionally rare; exhausting the bound would indicate a
// contract violation (multiple writers) rather than a runtime condition.
const maxReadRetries = 4

// Buffer carries the latest T from one goroutine to another without
// locks. T must be a plain value type (no interior pointers shared with
// the writer) so that a struct copy is a complete snapshot.
type Buffer[T any] struct {
	slots  [2]T
	active atomic.Uint32
	seq    atomic.Uint64
}

// New returns an empty buffer. Sequence 0 means nothing has been
// published yet; the first Publish moves it to 1.
func New[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Publish makes v the latest value. Single writer only.
//
// The order matters: the slot contents must be complete before the index
// flip, and the flip must precede the sequence bump, so a reader that
// observes the new sequence is guaranteed to observe the new slot's
// fully written contents.
func (b *Buffer[T]) Publish(v T) {
	next := 1 - b.active.Load()
	b.slots[next] = v
	b.active.Store(next)
	b.seq.Add(1)
}

// ReadLatest copies out the most recently published value. Single reader
// only. The returned sequence identifies the copy: a reader compares it
// against the sequence from its previous cycle to detect new data
// without inspecting the payload.
func (b *Buffer[T]) ReadLatest() (T, uint64) {
	var v T
	var s uint64
	for range maxReadRetries {
		s = b.seq.Load()
		v = b.slots[b.active.Load()]
		if b.seq.Load() == s {
			return v, s
		}
	}
	// Retries exhausted: the writer published on every attempt, which a
	// conforming single writer running at audio cadence cannot do. Return
	// the last copy rather than spinning unboundedly.
	return v, s
}

// Seq returns the current sequence without copying the payload.
func (b *Buffer[T]) Seq() uint64 {
	return b.seq.Load()
}
