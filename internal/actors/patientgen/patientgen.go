// Package patientgen implements the PatientFactory actor (spec.md §4.5):
// spawns Patient actors on a randomized inter-arrival cadence, bounded by a
// child cap, until stopped or the configured simulation duration elapses.
package patientgen

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sorsim/edsim/internal/actors/common"
	"github.com/sorsim/edsim/internal/actors/patient"
	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/model"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/pkg/randsrc"
)

// DefaultChildCap is the default outstanding-Patient-goroutine ceiling
// (spec.md §4.5 step 2, "default ~2000").
const DefaultChildCap = 2000

// reapPollInterval is how long the factory sleeps before retrying when it
// is at the child cap (spec.md §4.5 step 2, "sleep 50ms and retry").
const reapPollInterval = 50 * time.Millisecond

// Run executes the PatientFactory loop until ctx is canceled or the
// configured simulation duration elapses, then stops every outstanding
// child and joins them.
func Run(ctx context.Context, actorID uuid.UUID, regCh, logCh *priochan.PriorityChannel, w *kernel.Semaphore, st *kernel.State, childCap int, minMs, maxMs int, rng *rand.Rand) {
	if childCap <= 0 {
		childCap = DefaultChildCap
	}
	ctx, stopChildren := context.WithCancel(ctx)
	defer stopChildren()
	role := "patient_generator"
	common.Log(ctx, logCh, st.SimMinutesElapsed(), actorID, role, "started", nil)

	var wg sync.WaitGroup
	children := make(map[int64]chan struct{})
	var mu sync.Mutex

	reap := func() {
		mu.Lock()
		for id, stop := range children {
			select {
			case <-stop:
				delete(children, id)
			default:
			}
		}
		mu.Unlock()
	}

	var nextID int64 = 1

genLoop:
	for !st.DurationReached() {
		select {
		case <-ctx.Done():
			break genLoop
		default:
		}

		reap()
		mu.Lock()
		atCap := len(children) >= childCap
		mu.Unlock()
		if atCap {
			select {
			case <-ctx.Done():
				break genLoop
			case <-time.After(reapPollInterval):
			}
			continue
		}

		profile := model.NewProfile(rng, nextID)
		nextID++

		childID := uuid.New()
		childStop := make(chan struct{})
		childCtx, cancelChild := context.WithCancel(ctx)

		mu.Lock()
		children[profile.ID] = childStop
		mu.Unlock()

		wg.Add(1)
		go func(p model.Patient, id int64) {
			defer wg.Done()
			defer cancelChild()
			defer close(childStop)
			patient.Run(childCtx, p, childID, regCh, logCh, w, st)
		}(profile, profile.ID)

		interval := randsrc.IntnRange(rng, minMs, maxMs)
		select {
		case <-ctx.Done():
			break genLoop
		case <-time.After(time.Duration(interval) * time.Millisecond):
		}
	}

	common.Log(context.Background(), logCh, st.SimMinutesElapsed(), actorID, role, "stopping, joining children", nil)
	stopChildren()
	wg.Wait()
	common.Log(context.Background(), logCh, st.SimMinutesElapsed(), actorID, role, "stopped", nil)
}
