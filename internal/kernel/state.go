// Package kernel holds the process-wide shared state region and the
// waiting-room counting semaphore described in spec.md §3 ("Shared state
// region", "Waiting-room semaphore W") and §5 ("Shared mutable state").
//
// Grounded on internal/positions/tracker.go's mutex-guarded map of live
// state exposed only through typed accessor methods, and on
// pkg/circuit/breaker.go's atomic-plus-mutex hybrid for small state-machine
// flags (Reg2Active here plays the role Breaker.state plays there).
package kernel

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServiceTimeParams holds every scaled service-time / interval parameter
// from spec.md §3 "Configuration".
type ServiceTimeParams struct {
	RegistrationServiceMs int
	TriageServiceMs       int
	SpecialistExamMinMs   int
	SpecialistExamMaxMs   int
	SpecialistLeaveMinMs  int
	SpecialistLeaveMaxMs  int
	PatientGenMinMs       int
	PatientGenMaxMs       int
}

// State is the shared-state region. All mutations happen under mu; callers
// never take mu directly, they call a method here — the Go encoding of
// "All mutations of the shared-state region happen under the state lock."
type State struct {
	mu sync.Mutex

	insideWaitingRoom    int
	waitingRoomCapacity  int
	registrationQueueLen int
	reg2Active           bool

	triageRed, triageYellow, triageGreen, triageSentHome int
	outcomeHome, outcomeWard, outcomeOther               int
	totalPatients                                        int

	director    uuid.UUID
	reg1        uuid.UUID
	reg2        uuid.UUID
	triage      uuid.UUID
	specialists [6]uuid.UUID
	reg2History []uuid.UUID

	simStartMonotonic         time.Time
	timeScaleMsPerSimMinute   int
	simulationDurationMinutes int
	params                    ServiceTimeParams
}

// New creates the shared-state region with waiting-room capacity N and the
// given immutable timing/service-time parameters.
func New(capacityN int, timeScaleMsPerSimMinute, simulationDurationMinutes int, params ServiceTimeParams) *State {
	return &State{
		waitingRoomCapacity:       capacityN,
		simStartMonotonic:         time.Now(),
		timeScaleMsPerSimMinute:   timeScaleMsPerSimMinute,
		simulationDurationMinutes: simulationDurationMinutes,
		params:                    params,
	}
}

// Snapshot is a point-in-time read of every counter, taken under the lock.
type Snapshot struct {
	InsideWaitingRoom    int
	WaitingRoomCapacity  int
	RegistrationQueueLen int
	Reg2Active           bool

	TriageRed, TriageYellow, TriageGreen, TriageSentHome int
	OutcomeHome, OutcomeWard, OutcomeOther               int
	TotalPatients                                        int

	Director, Reg1, Reg2, Triage uuid.UUID
	Specialists                  [6]uuid.UUID
	Reg2History                  []uuid.UUID

	ElapsedSim time.Duration
}

// Snapshot takes a consistent read of the whole region under the lock.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := make([]uuid.UUID, len(s.reg2History))
	copy(hist, s.reg2History)

	return Snapshot{
		InsideWaitingRoom:    s.insideWaitingRoom,
		WaitingRoomCapacity:  s.waitingRoomCapacity,
		RegistrationQueueLen: s.registrationQueueLen,
		Reg2Active:           s.reg2Active,
		TriageRed:            s.triageRed,
		TriageYellow:         s.triageYellow,
		TriageGreen:          s.triageGreen,
		TriageSentHome:       s.triageSentHome,
		OutcomeHome:          s.outcomeHome,
		OutcomeWard:          s.outcomeWard,
		OutcomeOther:         s.outcomeOther,
		TotalPatients:        s.totalPatients,
		Director:             s.director,
		Reg1:                 s.reg1,
		Reg2:                 s.reg2,
		Triage:               s.triage,
		Specialists:          s.specialists,
		Reg2History:          hist,
		ElapsedSim:           s.simElapsed(),
	}
}

func (s *State) simElapsed() time.Duration {
	wall := time.Since(s.simStartMonotonic)
	if s.timeScaleMsPerSimMinute <= 0 {
		return 0
	}
	simMinutes := wall.Milliseconds() / int64(s.timeScaleMsPerSimMinute)
	return time.Duration(simMinutes) * time.Minute
}

// SimMinutesElapsed returns the current simulated-minute count as a float,
// used by the log-line formatter (spec.md §6).
func (s *State) SimMinutesElapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeScaleMsPerSimMinute <= 0 {
		return 0
	}
	wallMs := float64(time.Since(s.simStartMonotonic).Milliseconds())
	return wallMs / float64(s.timeScaleMsPerSimMinute)
}

// DurationReached reports whether the configured simulationDurationMinutes
// have elapsed in simulated time, i.e. whether simulationDurationMinutes * S
// milliseconds of wall-clock time have passed since the start. A duration of
// 0 means "unbounded" (spec.md §4.5, §4.6).
func (s *State) DurationReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulationDurationMinutes <= 0 {
		return false
	}
	elapsedReal := time.Since(s.simStartMonotonic)
	budget := time.Duration(s.simulationDurationMinutes) * time.Duration(s.timeScaleMsPerSimMinute) * time.Millisecond
	return elapsedReal >= budget
}

// Params returns the (immutable) service-time parameters.
func (s *State) Params() ServiceTimeParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// WaitingRoomCapacity returns N.
func (s *State) WaitingRoomCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingRoomCapacity
}

// --- waiting-room occupancy & registration queue length ---

// EnterWaitingRoom records personsCount additional occupants and one more
// arrival queued for registration (spec.md §4.1 step 3).
func (s *State) EnterWaitingRoom(personsCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insideWaitingRoom += personsCount
	s.registrationQueueLen++
	s.totalPatients++
}

// LeaveWaitingRoom decrements insideWaitingRoom by personsCount, floored at
// zero, per the "decider releases" rule (spec.md §4.2 step 5, §4.3 step 3,
// §4.4 step 6).
func (s *State) LeaveWaitingRoom(personsCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insideWaitingRoom -= personsCount
	if s.insideWaitingRoom < 0 {
		s.insideWaitingRoom = 0
	}
}

// InsideWaitingRoom returns the current occupancy.
func (s *State) InsideWaitingRoom() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insideWaitingRoom
}

// DequeueRegistration decrements registrationQueueLen, floored at zero
// (spec.md §4.2 step 2).
func (s *State) DequeueRegistration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registrationQueueLen > 0 {
		s.registrationQueueLen--
	}
}

// RegistrationQueueLen is the shared registration-queue counter. Director's
// provisioning loop reads it alongside the channel's own Depth() and uses
// the larger of the two (spec.md §9 Open Question).
func (s *State) RegistrationQueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registrationQueueLen
}

// --- triage & outcome counters ---

func (s *State) IncrTriageRed()       { s.mu.Lock(); s.triageRed++; s.mu.Unlock() }
func (s *State) IncrTriageYellow()    { s.mu.Lock(); s.triageYellow++; s.mu.Unlock() }
func (s *State) IncrTriageGreen()     { s.mu.Lock(); s.triageGreen++; s.mu.Unlock() }
func (s *State) IncrTriageSentHome()  { s.mu.Lock(); s.triageSentHome++; s.mu.Unlock() }
func (s *State) IncrOutcomeHome()     { s.mu.Lock(); s.outcomeHome++; s.mu.Unlock() }
func (s *State) IncrOutcomeWard()     { s.mu.Lock(); s.outcomeWard++; s.mu.Unlock() }
func (s *State) IncrOutcomeOther()    { s.mu.Lock(); s.outcomeOther++; s.mu.Unlock() }

// --- actor identity registry, used for identity-targeted signaling ---

func (s *State) SetDirector(id uuid.UUID) { s.mu.Lock(); s.director = id; s.mu.Unlock() }
func (s *State) SetReg1(id uuid.UUID)     { s.mu.Lock(); s.reg1 = id; s.mu.Unlock() }
func (s *State) SetTriage(id uuid.UUID)   { s.mu.Lock(); s.triage = id; s.mu.Unlock() }
func (s *State) SetSpecialist(idx int, id uuid.UUID) {
	s.mu.Lock()
	s.specialists[idx] = id
	s.mu.Unlock()
}

// OpenReg2 records the provisioning decision to spawn a second registration
// desk: sets reg2Active, records its identity and appends to history. The
// At-most-one-provisioning rule (spec.md §5) is enforced by the caller
// (Director) serializing open/close through this same lock-guarded method.
func (s *State) OpenReg2(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg2 = id
	s.reg2Active = true
	s.reg2History = append(s.reg2History, id)
}

// CloseReg2 clears the provisioning flag and identity.
func (s *State) CloseReg2() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg2 = uuid.Nil
	s.reg2Active = false
}

// Reg2Active reports whether a Reg2 actor is currently live.
func (s *State) Reg2Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg2Active
}

// Reconcile implements the optional reconcile guardrail (spec.md §4.6,
// §9): it returns expectedFree = capacity - insideWaitingRoom and
// missing = expectedFree - semValue. When missing > 0 and the reconcile
// toggle is on, the caller resets W to expectedFree; Reconcile
// itself only computes the diagnostic, since W lives in a separate type
// (Semaphore) that Director holds the only reference to.
func (s *State) Reconcile(semValue int) (expectedFree, missing int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expectedFree = s.waitingRoomCapacity - s.insideWaitingRoom
	missing = expectedFree - semValue
	return expectedFree, missing
}
