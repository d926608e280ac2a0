// Package model defines the Patient record carried as an event payload
// (spec.md §3 "Patient record") and its profile generation.
package model

import (
	"math/rand"

	"github.com/sorsim/edsim/internal/wire"
)

// Patient is never stored centrally; it is carried as an event payload and
// otherwise lives only in the actor that currently owns it.
type Patient struct {
	ID               int64
	Age              int
	VIP              bool
	HasGuardian      bool
	PersonsCount     int
	TriageColor      wire.Color
	SpecialistTarget int // 0..5, valid only once TriageColor != ColorNone
}

// NewProfile builds the randomized, pre-triage shape of a new patient
// (spec.md §4.5 step 3): age uniform in [1,90], hasGuardian = age<18,
// personsCount = hasGuardian ? 2 : 1, VIP with probability 10%.
func NewProfile(rng *rand.Rand, id int64) Patient {
	age := 1 + rng.Intn(90)
	hasGuardian := age < 18
	personsCount := 1
	if hasGuardian {
		personsCount = 2
	}
	vip := rng.Intn(100) < 10

	p := Patient{
		ID:           id,
		Age:          age,
		VIP:          vip,
		HasGuardian:  hasGuardian,
		PersonsCount: personsCount,
		TriageColor:  wire.ColorNone,
	}
	return p
}

// RegistrationKey is the priority key a Patient's Arrival record carries
// (VIP preempts Normal at Registration intake, spec.md §4.1 step 4).
func (p Patient) RegistrationKey() int {
	if p.VIP {
		return wire.KeyVIP
	}
	return wire.KeyNormal
}
