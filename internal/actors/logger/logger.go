// Package logger implements the Logger actor (spec.md §4.7): it drains
// LogChan with no priority filter, formats each record with pkg/obslog and
// appends it to a file opened append-only, and stops when it receives a
// record whose text is literally "END".
//
// Grounded on cmd/matching/main.go's plain-log lifecycle logging, adapted
// into a dedicated draining actor.
package logger

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/sorsim/edsim/internal/bus"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/wire"
	"github.com/sorsim/edsim/pkg/obslog"
)

// Run drains ch until it observes the END sentinel or ch is closed
// ("channel destroyed" is treated as a normal shutdown path for Logger,
// spec.md §7).
func Run(ctx context.Context, ch *priochan.PriorityChannel, path string, mirror *bus.Client) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logger: open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for {
		rec, err := ch.Receive(ctx, -1)
		if err != nil {
			// Channel destroyed or canceled: normal termination for Logger.
			return nil
		}
		if rec.Kind != wire.KindLog || rec.Log == nil {
			continue
		}
		line := obslog.FormatLine(*rec.Log)
		fmt.Fprintln(w, line)
		w.Flush()
		mirror.Publish(bus.SubjectLog, rec.Log)

		if rec.Log.Text == wire.EndText {
			return nil
		}
	}
}
