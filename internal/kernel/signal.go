package kernel

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ActorHandle is the goroutine-world equivalent of a process id: the thing
// Director holds to deliver the two named stimuli of spec.md §5
// ("Signal-equivalent contract") to one actor by identity — stop (any
// actor) and temporary-leave (a specialist only).
type ActorHandle struct {
	ID     uuid.UUID
	Role   string
	Cancel context.CancelFunc // "stop" stimulus
	Leave  chan struct{}      // "temporary leave" stimulus; nil for non-specialists
}

// Registry is the identity -> handle lookup Director uses to target
// stimuli, analogous to looking up a pid before sending a signal.
type Registry struct {
	mu      sync.Mutex
	handles map[uuid.UUID]*ActorHandle
}

// NewRegistry creates an empty actor registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[uuid.UUID]*ActorHandle)}
}

// Register records a new actor's handle under its identity.
func (r *Registry) Register(h *ActorHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.ID] = h
}

// Unregister removes an actor's handle, e.g. once it has been confirmed
// stopped (used for Reg2, which is spawned and torn down repeatedly).
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Stop delivers the "stop" stimulus to the named actor, if still registered.
func (r *Registry) Stop(id uuid.UUID) {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()
	if ok {
		h.Cancel()
	}
}

// StopAll delivers "stop" to every registered actor (shutdown broadcast,
// spec.md §4.6).
func (r *Registry) StopAll() {
	r.mu.Lock()
	handles := make([]*ActorHandle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}
}

// RequestLeave delivers the "temporary leave" stimulus to a specialist.
// Non-blocking: if the specialist hasn't drained a prior request yet, this
// one is dropped rather than piling up (a specialist checks for a pending
// leave once per loop iteration, per spec.md §4.4 step 1).
func (r *Registry) RequestLeave(id uuid.UUID) bool {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()
	if !ok || h.Leave == nil {
		return false
	}
	select {
	case h.Leave <- struct{}{}:
		return true
	default:
		return false
	}
}

// IsLive reports whether id is still registered, for the Director's
// monitor loop (liveness of Reg1/Reg2/Triage, spec.md §4.6).
func (r *Registry) IsLive(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[id]
	return ok
}
