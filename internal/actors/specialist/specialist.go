// Package specialist implements the Specialist actor (spec.md §4.4), one
// instance per specialty type 0..5: checks for a pending temporary-leave
// stimulus, receives by severity order within its type, simulates an exam,
// draws an outcome, and releases the patient's waiting-room slots.
package specialist

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sorsim/edsim/internal/actors/common"
	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
	"github.com/sorsim/edsim/pkg/randsrc"
)

// outcome thresholds out of 1000 (spec.md §4.4 step 5).
const (
	thresholdHome = 850
	thresholdWard = 995
	thresholdMax  = 1000
)

// Run executes one Specialist's loop for type idx (0..5) until ctx is
// canceled or specCh is destroyed. leave is the channel Director's
// temporary-leave stimulus (kernel.ActorHandle.Leave) arrives on.
func Run(ctx context.Context, idx int, actorID uuid.UUID, specCh, logCh *priochan.PriorityChannel, w *kernel.Semaphore, st *kernel.State, leave <-chan struct{}, rng *rand.Rand) {
	role := fmt.Sprintf("specialist-%d", idx)
	maxKey := wire.SpecialistMaxKey(idx)

	for {
		select {
		case <-leave:
			params := st.Params()
			dur := randsrc.IntnRange(rng, params.SpecialistLeaveMinMs, params.SpecialistLeaveMaxMs)
			common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role, "on temporary leave", nil)
			common.ScaledSleep(ctx, dur)
			common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role, "resumed from temporary leave", nil)
		default:
		}

		rec, err := specCh.Receive(ctx, maxKey)
		if err != nil {
			return
		}

		common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role,
			fmt.Sprintf("Received patient id=%d color=%s", rec.Payload.PatientID, rec.Payload.TriageColor), nil)

		params := st.Params()
		examMs := randsrc.IntnRange(rng, params.SpecialistExamMinMs, params.SpecialistExamMaxMs)
		common.ScaledSleep(ctx, examMs)

		outcome := drawOutcome(rng)
		switch outcome {
		case outcomeHome:
			st.IncrOutcomeHome()
		case outcomeWard:
			st.IncrOutcomeWard()
		case outcomeOther:
			st.IncrOutcomeOther()
		}

		w.ReleaseN(rec.Payload.PersonsCount)
		st.LeaveWaitingRoom(rec.Payload.PersonsCount)
		common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role,
			fmt.Sprintf("Handled patient id=%d outcome=%s", rec.Payload.PatientID, outcome), nil)
	}
}

type outcome string

const (
	outcomeHome  outcome = "home"
	outcomeWard  outcome = "ward"
	outcomeOther outcome = "other"
)

// drawOutcome draws by thresholds out of 1000: home [0,850), ward
// [850,995), other [995,1000) (spec.md §4.4 step 5).
func drawOutcome(rng *rand.Rand) outcome {
	n := rng.Intn(thresholdMax)
	switch {
	case n < thresholdHome:
		return outcomeHome
	case n < thresholdWard:
		return outcomeWard
	default:
		return outcomeOther
	}
}
