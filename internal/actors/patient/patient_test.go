package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/model"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
)

func testParams() kernel.ServiceTimeParams {
	return kernel.ServiceTimeParams{RegistrationServiceMs: 5, TriageServiceMs: 5}
}

func TestRunHandsOffArrivalRecord(t *testing.T) {
	t.Run("should acquire W, enter the waiting room, and send an Arrival record", func(t *testing.T) {
		st := kernel.New(4, 20, 0, testParams())
		sem := kernel.NewSemaphore(4)
		regCh := priochan.New(4)
		logCh := priochan.New(16)

		p := model.Patient{ID: 1, Age: 30, VIP: false, PersonsCount: 1}
		done := make(chan struct{})
		go func() {
			Run(context.Background(), p, uuid.New(), regCh, logCh, sem, st)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("patient did not complete")
		}

		rec, err := regCh.Receive(context.Background(), -1)
		require.NoError(t, err)
		assert.Equal(t, wire.KindArrival, rec.Kind)
		assert.Equal(t, int64(1), rec.Payload.PatientID)
		assert.Equal(t, wire.KeyNormal, rec.Key)
		assert.Equal(t, 3, sem.Value())
		assert.Equal(t, 1, st.InsideWaitingRoom())
	})

	t.Run("should use the VIP key for a VIP patient", func(t *testing.T) {
		st := kernel.New(4, 20, 0, testParams())
		sem := kernel.NewSemaphore(4)
		regCh := priochan.New(4)
		logCh := priochan.New(16)

		p := model.Patient{ID: 2, Age: 40, VIP: true, PersonsCount: 1}
		Run(context.Background(), p, uuid.New(), regCh, logCh, sem, st)

		rec, err := regCh.Receive(context.Background(), -1)
		require.NoError(t, err)
		assert.Equal(t, wire.KeyVIP, rec.Key)
	})

	t.Run("should acquire PersonsCount seats for a patient with a guardian", func(t *testing.T) {
		st := kernel.New(4, 20, 0, testParams())
		sem := kernel.NewSemaphore(4)
		regCh := priochan.New(4)
		logCh := priochan.New(16)

		p := model.Patient{ID: 3, Age: 10, VIP: false, HasGuardian: true, PersonsCount: 2}
		Run(context.Background(), p, uuid.New(), regCh, logCh, sem, st)

		assert.Equal(t, 2, sem.Value())
		assert.Equal(t, 2, st.InsideWaitingRoom())
	})
}

func TestRunStopsWhileWaitingForASeat(t *testing.T) {
	t.Run("should exit without entering the waiting room when canceled pre-seat", func(t *testing.T) {
		st := kernel.New(1, 20, 0, testParams())
		sem := kernel.NewSemaphore(1)
		sem.Acquire(nil) // no free seats
		regCh := priochan.New(4)
		logCh := priochan.New(16)

		ctx, cancel := context.WithCancel(context.Background())
		p := model.Patient{ID: 4, PersonsCount: 1}

		done := make(chan struct{})
		go func() {
			Run(ctx, p, uuid.New(), regCh, logCh, sem, st)
			close(done)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("patient did not exit after cancellation")
		}
		assert.Equal(t, 0, st.InsideWaitingRoom())
	})
}

func TestRunRegistrationChannelDestroyed(t *testing.T) {
	t.Run("should not release the seats it already holds", func(t *testing.T) {
		st := kernel.New(4, 20, 0, testParams())
		sem := kernel.NewSemaphore(4)
		regCh := priochan.New(4)
		regCh.Close()
		logCh := priochan.New(16)

		p := model.Patient{ID: 5, PersonsCount: 1}
		Run(context.Background(), p, uuid.New(), regCh, logCh, sem, st)

		assert.Equal(t, 3, sem.Value())
		assert.Equal(t, 1, st.InsideWaitingRoom())
	})
}
