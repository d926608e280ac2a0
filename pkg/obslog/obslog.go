// Package obslog formats the simulation's dedicated log-line grammar
// (spec.md §6 "Log file"):
//
//	<simMinute>;<pid>;[wR=<in>/<cap>;rQ=<n>;tQ=<n>;sQ=<n>;wSem=<n>;sSem=<n>;]<role>;<text>
//
// This is a purpose-built wire format, not a generic structured-logging
// need, so it gets its own tiny formatter rather than a logging library;
// see DESIGN.md for why this repo otherwise follows the teacher in using
// the standard `log` package for ambient process-lifecycle logging.
package obslog

import (
	"fmt"
	"strings"

	"github.com/sorsim/edsim/internal/wire"
)

// FormatLine renders one LogPayload as a single log-file line, without the
// trailing newline.
func FormatLine(p wire.LogPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.4f;%s;", p.SimMinutes, p.ActorID)
	if p.Metrics != nil {
		m := p.Metrics
		fmt.Fprintf(&b, "wR=%d/%d;rQ=%d;tQ=%d;sQ=%d;wSem=%d;sSem=%d;",
			m.WaitingRoomInside, m.WaitingRoomCapacity, m.RegistrationQueueLen,
			m.TriageQueueLen, m.SpecialistQueueLen, m.WaitingRoomSemValue, m.SpecialistSemValue)
	}
	fmt.Fprintf(&b, "%s;%s", p.Role, p.Text)
	return b.String()
}
