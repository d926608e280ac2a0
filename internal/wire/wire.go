// Package wire defines the event records exchanged between actors over a
// priochan.PriorityChannel: Arrival, Registered, ToSpecialist and LogRecord
// (spec.md §3 "Event records").
package wire

import "github.com/google/uuid"

// RecordKind identifies the payload shape carried by a Record.
type RecordKind int

const (
	KindArrival RecordKind = iota
	KindRegistered
	KindToSpecialist
	KindLog
)

// Priority keys. VIP preempts Normal at Registration and Triage intake;
// specialist intake additionally orders by triage color within a type.
const (
	KeyVIP    = 1
	KeyNormal = 2
)

// Color is the triage severity assigned to a patient.
type Color int

const (
	ColorNone Color = iota
	ColorRed
	ColorYellow
	ColorGreen
)

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorYellow:
		return "yellow"
	case ColorGreen:
		return "green"
	default:
		return "none"
	}
}

// ColorPriority is the per-color priority used in SpecialistKey (Red < Yellow < Green).
func (c Color) ColorPriority() int {
	switch c {
	case ColorRed:
		return 1
	case ColorYellow:
		return 2
	case ColorGreen:
		return 3
	default:
		return 9
	}
}

// SpecialistKey computes the ToSpecialist priority key: spec_index*10 + color_priority.
func SpecialistKey(specialistIdx int, color Color) int {
	return specialistIdx*10 + color.ColorPriority()
}

// SpecialistMaxKey is maxKey(t) = t*10 + 3, the "lowest key <= maxKey" filter
// a specialist of type t applies so it sees Red before Yellow before Green.
func SpecialistMaxKey(specialistIdx int) int {
	return specialistIdx*10 + 3
}

// Payload is the fixed-shape body carried by every Record.
type Payload struct {
	PatientID     int64
	Age           int
	IsVIP         bool
	PersonsCount  int
	SpecialistIdx int
	TriageColor   Color
	Extra         [64]byte
}

// LogPayload carries the fields needed to format one log-file line
// (spec.md §6 "Log file" grammar).
type LogPayload struct {
	SimMinutes float64
	ActorID    uuid.UUID
	Role       string
	Text       string
	Metrics    *MetricsBlock
}

// MetricsBlock is the optional "wR=...;rQ=...;tQ=...;sQ=...;wSem=...;sSem=..."
// fragment a sender may attach to a log line.
type MetricsBlock struct {
	WaitingRoomInside    int
	WaitingRoomCapacity  int
	RegistrationQueueLen int
	TriageQueueLen       int
	SpecialistQueueLen   int
	WaitingRoomSemValue  int
	SpecialistSemValue   int
}

// Record is the single wire type flowing through every PriorityChannel.
type Record struct {
	Key     int
	Kind    RecordKind
	Payload Payload
	Log     *LogPayload // set only when Kind == KindLog
}

// EndText is the literal Logger stops on (spec.md §4.7).
const EndText = "END"
