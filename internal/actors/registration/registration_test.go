package registration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
)

func testParams() kernel.ServiceTimeParams {
	return kernel.ServiceTimeParams{RegistrationServiceMs: 1}
}

func TestRunForwardsToTriage(t *testing.T) {
	t.Run("should release W, leave the waiting room, and forward a Registered record", func(t *testing.T) {
		st := kernel.New(4, 20, 0, testParams())
		st.EnterWaitingRoom(1)
		w := kernel.NewSemaphore(4)
		w.Acquire(nil)
		regCh := priochan.New(4)
		triageCh := priochan.New(4)
		logCh := priochan.New(16)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan struct{})
		go func() {
			Run(ctx, RolePrimary, uuid.New(), regCh, triageCh, logCh, w, st)
			close(done)
		}()

		require.True(t, regCh.Send(wire.Record{
			Key:  wire.KeyNormal,
			Kind: wire.KindArrival,
			Payload: wire.Payload{PatientID: 7, PersonsCount: 1},
		}))

		rec, err := triageCh.Receive(context.Background(), -1)
		require.NoError(t, err)
		assert.Equal(t, wire.KindRegistered, rec.Kind)
		assert.Equal(t, int64(7), rec.Payload.PatientID)

		assert.Eventually(t, func() bool { return w.Value() == 4 }, time.Second, time.Millisecond)
		assert.Eventually(t, func() bool { return st.InsideWaitingRoom() == 0 }, time.Second, time.Millisecond)

		cancel()
		<-done
	})

	t.Run("should preempt a normal arrival with a VIP one", func(t *testing.T) {
		st := kernel.New(10, 20, 0, testParams())
		w := kernel.NewSemaphore(10)
		regCh := priochan.New(4)
		triageCh := priochan.New(4)
		logCh := priochan.New(16)

		require.True(t, regCh.Send(wire.Record{Key: wire.KeyNormal, Kind: wire.KindArrival, Payload: wire.Payload{PatientID: 1, PersonsCount: 1}}))
		require.True(t, regCh.Send(wire.Record{Key: wire.KeyVIP, Kind: wire.KindArrival, Payload: wire.Payload{PatientID: 2, PersonsCount: 1}}))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go Run(ctx, RolePrimary, uuid.New(), regCh, triageCh, logCh, w, st)

		rec, err := triageCh.Receive(context.Background(), -1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Payload.PatientID)
	})

	t.Run("should still release capacity when the triage channel is destroyed", func(t *testing.T) {
		st := kernel.New(4, 20, 0, testParams())
		st.EnterWaitingRoom(1)
		w := kernel.NewSemaphore(4)
		w.Acquire(nil)
		regCh := priochan.New(4)
		triageCh := priochan.New(4)
		triageCh.Close()
		logCh := priochan.New(16)

		require.True(t, regCh.Send(wire.Record{Key: wire.KeyNormal, Kind: wire.KindArrival, Payload: wire.Payload{PatientID: 9, PersonsCount: 1}}))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go Run(ctx, RolePrimary, uuid.New(), regCh, triageCh, logCh, w, st)

		assert.Eventually(t, func() bool { return w.Value() == 4 }, time.Second, time.Millisecond)
		assert.Eventually(t, func() bool { return st.InsideWaitingRoom() == 0 }, time.Second, time.Millisecond)
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Run("should return once ctx is canceled while idle", func(t *testing.T) {
		st := kernel.New(4, 20, 0, testParams())
		w := kernel.NewSemaphore(4)
		regCh := priochan.New(4)
		triageCh := priochan.New(4)
		logCh := priochan.New(16)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			Run(ctx, RoleSecondary, uuid.New(), regCh, triageCh, logCh, w, st)
			close(done)
		}()

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("registration did not stop")
		}
	})
}
