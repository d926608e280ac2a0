// Package common holds the small pieces of behavior every actor shares:
// the non-blocking-send-with-1ms-retry discipline (spec.md §5 "Suspension
// points") and a helper to emit a LogChan record.
package common

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
)

// SendRetrying implements "non-blocking send with a 1ms retry loop on
// saturation; retry indefinitely", stopping early if ctx is canceled. It
// returns false when ctx is canceled or when the destination channel has
// been destroyed (Close()d) — the "permanent send failure" case callers
// must treat as a drop, per spec.md §7.
func SendRetrying(ctx context.Context, ch *priochan.PriorityChannel, rec wire.Record) bool {
	for {
		if ch.Send(rec) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Millisecond):
		}
		if ch.Closed() {
			return false
		}
	}
}

// Log builds a LogChan record for actorID/role/text with the given
// optional metrics block and sends it (best-effort: Logger's channel is
// sized generously, and a dropped log line is not a correctness failure).
func Log(ctx context.Context, logCh *priochan.PriorityChannel, simMinutes float64, actorID uuid.UUID, role, text string, metrics *wire.MetricsBlock) {
	rec := wire.Record{
		Kind: wire.KindLog,
		Log: &wire.LogPayload{
			SimMinutes: simMinutes,
			ActorID:    actorID,
			Role:       role,
			Text:       text,
			Metrics:    metrics,
		},
	}
	SendRetrying(ctx, logCh, rec)
}

// ScaledSleep sleeps the configured service-time duration. Resolution of an
// Open Question (spec.md §9 is silent on the exact arithmetic of "scaled to
// time factor S"): every *Ms config parameter (registrationServiceMs,
// triageServiceMs, specialist exam/leave bounds, patient-arrival interval)
// is treated as a literal wall-clock millisecond duration in its own right;
// timeScaleMsPerSimMinute (S) is used only to translate elapsed wall-clock
// time into the simMinutes field reported on log lines and into the
// wall-clock budget for a configured simulationDurationMinutes (see
// kernel.State.SimMinutesElapsed / DurationReached). This keeps the two
// knobs independent and avoids compounding scale factors, while still
// letting an operator speed up or slow down the whole run by choosing S.
func ScaledSleep(ctx context.Context, durationMs int) {
	if durationMs <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(durationMs) * time.Millisecond):
	}
}

// MetricsSnapshot builds a MetricsBlock from current state + channel depths.
func MetricsSnapshot(st *kernel.State, w *kernel.Semaphore, regQ, triageQ, specQ int, specSem int) *wire.MetricsBlock {
	return &wire.MetricsBlock{
		WaitingRoomInside:    st.InsideWaitingRoom(),
		WaitingRoomCapacity:  st.WaitingRoomCapacity(),
		RegistrationQueueLen: regQ,
		TriageQueueLen:       triageQ,
		SpecialistQueueLen:   specQ,
		WaitingRoomSemValue:  w.Value(),
		SpecialistSemValue:   specSem,
	}
}
