package kernel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSemaphoreAcquireRelease(t *testing.T) {
	t.Run("should acquire up to capacity then block", func(t *testing.T) {
		sem := NewSemaphore(2)
		assert.Equal(t, 2, sem.Value())

		assert.True(t, sem.Acquire(nil))
		assert.True(t, sem.Acquire(nil))
		assert.Equal(t, 0, sem.Value())

		done := make(chan struct{})
		stop := make(chan struct{})
		go func() {
			sem.Acquire(stop)
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("acquire should have blocked with no free tokens")
		case <-time.After(20 * time.Millisecond):
		}
		close(stop)
		<-done
	})

	t.Run("should unblock a waiter on release", func(t *testing.T) {
		sem := NewSemaphore(1)
		assert.True(t, sem.Acquire(nil))

		acquired := make(chan struct{})
		go func() {
			sem.Acquire(nil)
			close(acquired)
		}()

		time.Sleep(10 * time.Millisecond)
		sem.Release()

		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("waiter was never woken by Release")
		}
	})
}

func TestSemaphoreReleaseN(t *testing.T) {
	t.Run("should free n tokens at once", func(t *testing.T) {
		sem := NewSemaphore(5)
		for i := 0; i < 3; i++ {
			sem.Acquire(nil)
		}
		assert.Equal(t, 2, sem.Value())
		sem.ReleaseN(3)
		assert.Equal(t, 5, sem.Value())
	})
}

func TestSemaphoreReset(t *testing.T) {
	t.Run("should force the token count to exactly n", func(t *testing.T) {
		sem := NewSemaphore(4)
		sem.Acquire(nil)
		sem.Acquire(nil)
		assert.Equal(t, 2, sem.Value())

		sem.Reset(1)
		assert.Equal(t, 1, sem.Value())

		sem.Reset(4)
		assert.Equal(t, 4, sem.Value())
	})
}

func TestSemaphoreConcurrentAcquireRelease(t *testing.T) {
	t.Run("should never allow more concurrent holders than capacity", func(t *testing.T) {
		const capacity = 10
		sem := NewSemaphore(capacity)

		var inside, maxInside int32
		var mu sync.Mutex
		var wg sync.WaitGroup

		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sem.Acquire(nil)
				mu.Lock()
				inside++
				if inside > int32(maxInside) {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				sem.Release()
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, int(maxInside), capacity)
		assert.Equal(t, capacity, sem.Value())
	})
}
