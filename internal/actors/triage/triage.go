// Package triage implements the Triage actor (spec.md §4.3): dequeues
// Registered patients (VIP first), probabilistically sends a patient home
// or assigns a severity color and routes to a specialist queue.
package triage

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sorsim/edsim/internal/actors/common"
	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
)

// Config bundles the configurable send-home probability and color
// thresholds (spec.md §9's explicitly-permitted improvement over the
// source's hard-coded 5% / 10-35-55).
type Config struct {
	SendHomeProbabilityPct int
	ColorRedCutoff         int // cumulative out of 100
	ColorYellowCutoff      int // cumulative out of 100
}

// Run executes the Triage loop until ctx is canceled or triageCh is
// destroyed.
func Run(ctx context.Context, actorID uuid.UUID, triageCh *priochan.PriorityChannel, specCh [6]*priochan.PriorityChannel, logCh *priochan.PriorityChannel, w *kernel.Semaphore, st *kernel.State, cfg Config, rng *rand.Rand) {
	for {
		rec, err := triageCh.Receive(ctx, wire.KeyNormal)
		if err != nil {
			return
		}

		params := st.Params()
		common.ScaledSleep(ctx, params.TriageServiceMs)

		if rng.Intn(100) < cfg.SendHomeProbabilityPct {
			st.IncrTriageSentHome()
			w.ReleaseN(rec.Payload.PersonsCount)
			st.LeaveWaitingRoom(rec.Payload.PersonsCount)
			common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, "triage",
				fmt.Sprintf("Sent home from triage id=%d", rec.Payload.PatientID), nil)
			continue
		}

		color := assignColor(rng, cfg)
		switch color {
		case wire.ColorRed:
			st.IncrTriageRed()
		case wire.ColorYellow:
			st.IncrTriageYellow()
		case wire.ColorGreen:
			st.IncrTriageGreen()
		}

		specIdx := rng.Intn(6)
		out := wire.Record{
			Key:  wire.SpecialistKey(specIdx, color),
			Kind: wire.KindToSpecialist,
			Payload: wire.Payload{
				PatientID:     rec.Payload.PatientID,
				Age:           rec.Payload.Age,
				IsVIP:         rec.Payload.IsVIP,
				PersonsCount:  rec.Payload.PersonsCount,
				SpecialistIdx: specIdx,
				TriageColor:   color,
			},
		}
		// Triage does not release slots for routed patients; the specialist
		// does (spec.md §4.3 closing note, §4.4 step 6). This holds even on
		// permanent send failure to the specialist channel: that failure
		// means the patient is now unreachable, which spec.md treats as an
		// in-flight loss rather than a release event — only an explicit
		// decider outcome releases capacity.
		common.SendRetrying(ctx, specCh[specIdx], out)
		common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, "triage",
			fmt.Sprintf("Routed id=%d color=%s specialist=%d", rec.Payload.PatientID, color, specIdx), nil)
	}
}

// assignColor picks Red/Yellow/Green by the configured cumulative
// distribution (spec.md §4.3 step 4: defaults Red 10%, Yellow 35%, Green
// 55%, cumulative cutoffs at 10 and 45 of 0..99).
func assignColor(rng *rand.Rand, cfg Config) wire.Color {
	n := rng.Intn(100)
	if n < cfg.ColorRedCutoff {
		return wire.ColorRed
	}
	if n < cfg.ColorYellowCutoff {
		return wire.ColorYellow
	}
	return wire.ColorGreen
}
