// Package patient implements the Patient actor (spec.md §4.1): acquires
// waiting-room slots, enqueues an Arrival record, and exits; optionally
// spawns an observability-only guardian child.
package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sorsim/edsim/internal/actors/common"
	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/model"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
)

// Run executes one Patient's lifecycle to completion (or until ctx is
// canceled while still blocked acquiring W). actorID is used only to tag
// log lines; a Patient has no externally-targetable identity (spec.md §5's
// stop/leave stimuli never target a Patient).
func Run(ctx context.Context, p model.Patient, actorID uuid.UUID, regCh *priochan.PriorityChannel, logCh *priochan.PriorityChannel, w *kernel.Semaphore, st *kernel.State) {
	role := "patient"

	common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role, "waiting to enter waiting room", nil)

	for i := 0; i < p.PersonsCount; i++ {
		if !w.Acquire(ctx.Done()) {
			common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role, "stopped while waiting for a seat", nil)
			return
		}
	}

	var guardianStop chan struct{}
	if p.HasGuardian {
		guardianStop = make(chan struct{})
		go runGuardian(ctx, guardianStop, logCh, st, actorID)
	}

	st.EnterWaitingRoom(p.PersonsCount)
	common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role,
		fmt.Sprintf("Patient arrived id=%d age=%d vip=%t personsCount=%d", p.ID, p.Age, p.VIP, p.PersonsCount), nil)

	rec := wire.Record{
		Key:  p.RegistrationKey(),
		Kind: wire.KindArrival,
		Payload: wire.Payload{
			PatientID:    p.ID,
			Age:          p.Age,
			IsVIP:        p.VIP,
			PersonsCount: p.PersonsCount,
		},
	}
	if !common.SendRetrying(ctx, regCh, rec) {
		// Permanent send failure: per spec.md §4.1, terminate quietly. The
		// slots are NOT released here — whoever decides the patient leaves
		// the waiting room releases them, and nobody has made that
		// decision yet, so the capacity is intentionally left outstanding
		// (spec.md §9's "the decider releases, never the patient").
		common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role, "registration channel destroyed before handoff", nil)
		if guardianStop != nil {
			close(guardianStop)
		}
		return
	}

	common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role, fmt.Sprintf("Patient registered id=%d", p.ID), nil)

	if guardianStop != nil {
		close(guardianStop)
	}
}

// runGuardian is the observability-only child: it logs its own enter/exit
// and sleeps until stop, never touching W (spec.md §4.1 "Guardian
// modeling"; §9 "Observability child for guardians"). It cannot outlive its
// parent: it is launched with the parent's ctx and also closed explicitly
// when the parent returns, whichever comes first.
func runGuardian(ctx context.Context, stop <-chan struct{}, logCh *priochan.PriorityChannel, st *kernel.State, parentID uuid.UUID) {
	guardianID := uuid.New()
	common.Log(ctx, logCh, st.SimMinutesElapsed(), guardianID, "patient", fmt.Sprintf("guardian of %s entered", parentID), nil)
	select {
	case <-ctx.Done():
	case <-stop:
	}
	common.Log(context.Background(), logCh, st.SimMinutesElapsed(), guardianID, "patient", fmt.Sprintf("guardian of %s exited", parentID), nil)
}
