// Package race exercises the kernel/channel primitives under concurrent
// load; run with `go test -race ./tests/race/...`.
package race

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
)

// Boundary behavior (spec.md §8): a personsCount=2 requester with a single
// free slot does not complete until two are free. Seats are taken one
// Acquire at a time, so the first free seat is held while it waits.
func TestTwoSeatRequestWaitsForBothSeats(t *testing.T) {
	t.Run("should block a 2-seat request until both seats are free", func(t *testing.T) {
		w := kernel.NewSemaphore(2)
		require.True(t, w.Acquire(nil)) // one seat taken, one free

		acquiredBoth := make(chan struct{})
		go func() {
			w.Acquire(nil)
			w.Acquire(nil)
			close(acquiredBoth)
		}()

		select {
		case <-acquiredBoth:
			t.Fatal("a 2-seat requester proceeded with only one seat free")
		case <-time.After(20 * time.Millisecond):
		}

		w.Release() // now both seats free
		select {
		case <-acquiredBoth:
		case <-time.After(time.Second):
			t.Fatal("2-seat requester never completed once both seats were free")
		}
	})
}

// Boundary behavior (spec.md §8): N=1 serializes the pipeline — at most one
// patient inside the waiting room at any instant.
func TestN1SerialPipeline(t *testing.T) {
	t.Run("should never admit more than one occupant at a time", func(t *testing.T) {
		st := kernel.New(1, 20, 0, kernel.ServiceTimeParams{})
		w := kernel.NewSemaphore(1)

		var wg sync.WaitGroup
		var maxObserved int
		var mu sync.Mutex

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Acquire(nil)
				st.EnterWaitingRoom(1)

				mu.Lock()
				if inside := st.InsideWaitingRoom(); inside > maxObserved {
					maxObserved = inside
				}
				mu.Unlock()

				st.LeaveWaitingRoom(1)
				w.Release()
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, maxObserved, 1)
		assert.Equal(t, 0, st.InsideWaitingRoom())
		assert.Equal(t, 1, w.Value())
	})
}

func TestRegistryConcurrentStopAndRequestLeave(t *testing.T) {
	t.Run("should not race under concurrent Stop/RequestLeave/Unregister", func(t *testing.T) {
		reg := kernel.NewRegistry()
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			id := uuid.New()
			_, cancel := context.WithCancel(context.Background())
			leave := make(chan struct{}, 1)
			reg.Register(&kernel.ActorHandle{ID: id, Role: "specialist-0", Cancel: cancel, Leave: leave})

			wg.Add(3)
			go func(id uuid.UUID) { defer wg.Done(); reg.Stop(id) }(id)
			go func(id uuid.UUID) { defer wg.Done(); reg.RequestLeave(id) }(id)
			go func(id uuid.UUID) { defer wg.Done(); reg.Unregister(id) }(id)
		}
		wg.Wait()
	})
}

// Invariant (spec.md §8 #4): within one specialist queue, records are
// observed in non-decreasing key order and strict FIFO within equal keys,
// even under concurrent senders.
func TestPriorityChannelOrderingUnderConcurrentSenders(t *testing.T) {
	t.Run("should preserve key ordering with many concurrent senders", func(t *testing.T) {
		ch := priochan.New(0)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := wire.KeyNormal
				if i%5 == 0 {
					key = wire.KeyVIP
				}
				ch.Send(wire.Record{Key: key, Payload: wire.Payload{PatientID: int64(i)}})
			}(i)
		}
		wg.Wait()

		var lastKey = -1
		for i := 0; i < 20; i++ {
			rec, err := ch.Receive(context.Background(), -1)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, rec.Key, lastKey)
			lastKey = rec.Key
		}
	})
}
