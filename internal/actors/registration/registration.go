// Package registration implements the Registration actor (spec.md §4.2),
// run for both the primary (Reg1) and the dynamically-provisioned
// secondary (Reg2) desk.
//
// Grounded on internal/matching/engine.go's Start/Stop shape: a
// context-cancelable loop plus a wall-clock ticker for the periodic
// heartbeat, exactly the structure matching.Engine uses for its 100ms
// processAllBooks ticker.
package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sorsim/edsim/internal/actors/common"
	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
)

// Role distinguishes Reg1 from Reg2 for log tagging only; behavior is
// identical (spec.md §4.2: "one or two instances").
type Role string

const (
	RolePrimary   Role = "reg1"
	RoleSecondary Role = "reg2"
)

// Run executes the Registration loop until ctx is canceled or regCh is
// destroyed.
func Run(ctx context.Context, role Role, actorID uuid.UUID, regCh, triageCh, logCh *priochan.PriorityChannel, w *kernel.Semaphore, st *kernel.State) {
	var wg sync.WaitGroup
	hbCtx, stopHB := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runHeartbeat(hbCtx, logCh, st, w, regCh, triageCh, actorID, role)
	}()
	defer func() {
		stopHB()
		wg.Wait()
	}()

	for {
		rec, err := regCh.Receive(ctx, wire.KeyNormal)
		if err != nil {
			// Canceled (stop flag) or channel destroyed: both are normal
			// shutdown paths for Registration (spec.md §4.2 "Shutdown").
			return
		}

		st.DequeueRegistration()
		common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, string(role),
			fmt.Sprintf("Registering patient id=%d", rec.Payload.PatientID), nil)

		params := st.Params()
		common.ScaledSleep(ctx, params.RegistrationServiceMs)

		out := wire.Record{
			Key:  rec.Key,
			Kind: wire.KindRegistered,
			Payload: wire.Payload{
				PatientID:    rec.Payload.PatientID,
				Age:          rec.Payload.Age,
				IsVIP:        rec.Payload.IsVIP,
				PersonsCount: rec.Payload.PersonsCount,
			},
		}

		if common.SendRetrying(ctx, triageCh, out) {
			w.ReleaseN(rec.Payload.PersonsCount)
			st.LeaveWaitingRoom(rec.Payload.PersonsCount)
			common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, string(role),
				fmt.Sprintf("Forwarded patient id=%d to triage", rec.Payload.PatientID), nil)
		} else {
			// Permanent send failure: release the slots anyway, never leak
			// capacity (spec.md §4.2 step 6).
			w.ReleaseN(rec.Payload.PersonsCount)
			st.LeaveWaitingRoom(rec.Payload.PersonsCount)
			common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, string(role),
				fmt.Sprintf("Dropped patient id=%d, triage channel destroyed", rec.Payload.PatientID), nil)
		}
	}
}

// runHeartbeat emits, every ~5s of wall clock, a line summarizing
// registration-queue length, W value and insideWaitingRoom (spec.md §4.2
// step 7), independent of whether Registration is currently blocked
// receiving.
func runHeartbeat(ctx context.Context, logCh *priochan.PriorityChannel, st *kernel.State, w *kernel.Semaphore, regCh, triageCh *priochan.PriorityChannel, actorID uuid.UUID, role Role) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics := common.MetricsSnapshot(st, w, regCh.Depth(), triageCh.Depth(), 0, 0)
			common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, string(role), "heartbeat", metrics)
		}
	}
}
