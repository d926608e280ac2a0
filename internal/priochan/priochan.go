// Package priochan implements the priority channel abstraction described in
// spec.md §9: a bounded FIFO of keyed records supporting exact-key and
// "lowest key <= K" selective receive, with FIFO ordering preserved among
// records of equal key.
//
// The heap shape is lifted directly from the teacher's order book
// (container/heap.Interface over a price-ordered slice with a timestamp
// tiebreak for equal prices); here the ordering key is the record's
// integer Key and the tiebreak is an insertion sequence number, so the
// wire-visible Key never has to carry tie-breaking information itself.
package priochan

import (
	"container/heap"
	"context"
	"errors"
	"sync"

	"github.com/sorsim/edsim/internal/wire"
)

// ErrClosed is returned by Receive when the channel has been destroyed
// while a reader was waiting on it — the "channel destroyed" receiver path
// in spec.md §7.
var ErrClosed = errors.New("priochan: channel destroyed")

type entry struct {
	rec Record
	seq uint64
}

// Record pairs a wire record with nothing extra; kept as an alias point so
// callers don't need to import wire directly for the channel API.
type Record = wire.Record

// recordHeap is a min-heap ordered by Key, then by insertion sequence.
type recordHeap []entry

func (h recordHeap) Len() int { return len(h) }
func (h recordHeap) Less(i, j int) bool {
	if h[i].rec.Key != h[j].rec.Key {
		return h[i].rec.Key < h[j].rec.Key
	}
	return h[i].seq < h[j].seq
}
func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *recordHeap) Push(x interface{}) {
	*h = append(*h, x.(entry))
}
func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// PriorityChannel is a bounded, keyed, priority-ordered FIFO.
type PriorityChannel struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	h        recordHeap
	capacity int
	nextSeq  uint64
	closed   bool
}

// New creates a PriorityChannel with the given capacity (records, not bytes —
// spec.md's "~256 KB per channel" sizing is a byte budget on the source's
// wire format; this reimplementation sizes by record count instead, since a
// Go record isn't a fixed-width struct on the wire).
func New(capacity int) *PriorityChannel {
	pc := &PriorityChannel{h: make(recordHeap, 0, capacity), capacity: capacity}
	pc.notEmpty = sync.NewCond(&pc.mu)
	return pc
}

// Send is the non-blocking sender discipline of spec.md §3/§5: it never
// blocks. It returns false when the channel is saturated (caller retries
// after a short sleep) or when the channel has been closed (caller treats
// this as a drop and releases any capacity it would otherwise leak).
func (pc *PriorityChannel) Send(rec Record) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.closed {
		return false
	}
	if pc.capacity > 0 && len(pc.h) >= pc.capacity {
		return false
	}

	heap.Push(&pc.h, entry{rec: rec, seq: pc.nextSeq})
	pc.nextSeq++
	pc.notEmpty.Signal()
	return true
}

// Receive blocks until a record with Key <= maxKey is available, ctx is
// canceled, or the channel is closed. maxKey < 0 disables the filter (used
// by Logger, which applies no priority filter).
func (pc *PriorityChannel) Receive(ctx context.Context, maxKey int) (Record, error) {
	// Wake waiters when ctx is canceled, since sync.Cond has no native
	// context support.
	done := make(chan struct{})
	if ctx != nil {
		stop := context.AfterFunc(ctx, func() {
			pc.mu.Lock()
			pc.notEmpty.Broadcast()
			pc.mu.Unlock()
		})
		defer stop()
	}
	defer close(done)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	for {
		if idx, ok := pc.bestIndex(maxKey); ok {
			rec := pc.removeAt(idx)
			return rec, nil
		}
		if pc.closed {
			return Record{}, ErrClosed
		}
		if ctx != nil {
			select {
			case <-ctx.Done():
				return Record{}, ctx.Err()
			default:
			}
		}
		pc.notEmpty.Wait()
	}
}

// bestIndex finds the heap-order-compatible record with the lowest Key <=
// maxKey (or the overall minimum when maxKey < 0). The heap root is always
// the global minimum, so when it already satisfies the filter we take it in
// O(1); otherwise we fall back to a linear scan, since a record satisfying
// a narrower filter is not necessarily at the root.
func (pc *PriorityChannel) bestIndex(maxKey int) (int, bool) {
	if len(pc.h) == 0 {
		return 0, false
	}
	if maxKey < 0 || pc.h[0].rec.Key <= maxKey {
		return 0, true
	}
	best := -1
	for i, e := range pc.h {
		if e.rec.Key > maxKey {
			continue
		}
		if best == -1 || lessEntry(e, pc.h[best]) {
			best = i
		}
	}
	return best, best != -1
}

func lessEntry(a, b entry) bool {
	if a.rec.Key != b.rec.Key {
		return a.rec.Key < b.rec.Key
	}
	return a.seq < b.seq
}

// removeAt removes and returns the entry at heap index idx, preserving heap
// invariants for the rest.
func (pc *PriorityChannel) removeAt(idx int) Record {
	e := pc.h[idx]
	heap.Remove(&pc.h, idx)
	return e.rec
}

// Depth reports the number of records currently buffered (used by the
// Director's provisioning loop as the authoritative channel depth).
func (pc *PriorityChannel) Depth() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.h)
}

// Closed reports whether the channel has been destroyed, without consuming
// any buffered record. Callers that need to distinguish "saturated but
// still open" from "destroyed" on a non-blocking Send failure should probe
// this instead of Receive, which would otherwise dequeue and discard a
// buffered record on a merely-saturated channel.
func (pc *PriorityChannel) Closed() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.closed
}

// Close destroys the channel: blocked receivers observe ErrClosed and
// further sends return false.
func (pc *PriorityChannel) Close() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return
	}
	pc.closed = true
	pc.notEmpty.Broadcast()
}
