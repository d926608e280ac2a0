// Package summary writes the human-readable shutdown summary file (spec.md
// §4.6 "Shutdown orchestration": totals, outcome counts, specialist
// identifiers, Reg2 history, elapsed simulated time), and optionally mirrors
// the same totals into Postgres via lib/pq.
//
// Grounded on internal/ledger/ledger.go's sql.DB-backed row writer, reduced
// to a single best-effort insert since this run produces one summary, not a
// ledger of many.
package summary

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/sorsim/edsim/internal/kernel"
)

// Write renders snap as the shutdown summary text and writes it to path,
// truncating any prior content.
func Write(path string, snap kernel.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("summary: create %s: %w", path, err)
	}
	defer f.Close()

	_, err = fmt.Fprint(f, Render(snap))
	return err
}

// Render formats snap as the summary text body.
func Render(snap kernel.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Emergency Department Simulation Summary ===\n")
	fmt.Fprintf(&b, "elapsed simulated time: %s\n", formatDuration(snap.ElapsedSim))
	fmt.Fprintf(&b, "totalPatients: %d\n", snap.TotalPatients)
	fmt.Fprintf(&b, "\n-- triage --\n")
	fmt.Fprintf(&b, "red: %d\n", snap.TriageRed)
	fmt.Fprintf(&b, "yellow: %d\n", snap.TriageYellow)
	fmt.Fprintf(&b, "green: %d\n", snap.TriageGreen)
	fmt.Fprintf(&b, "sentHome: %d\n", snap.TriageSentHome)
	fmt.Fprintf(&b, "\n-- outcomes --\n")
	fmt.Fprintf(&b, "home: %d\n", snap.OutcomeHome)
	fmt.Fprintf(&b, "ward: %d\n", snap.OutcomeWard)
	fmt.Fprintf(&b, "other: %d\n", snap.OutcomeOther)
	fmt.Fprintf(&b, "\n-- actors --\n")
	fmt.Fprintf(&b, "director: %s\n", snap.Director)
	fmt.Fprintf(&b, "reg1: %s\n", snap.Reg1)
	fmt.Fprintf(&b, "triage: %s\n", snap.Triage)
	for i, id := range snap.Specialists {
		fmt.Fprintf(&b, "specialist[%d]: %s\n", i, id)
	}
	fmt.Fprintf(&b, "reg2History: %s\n", joinUUIDs(snap.Reg2History))
	return b.String()
}

func joinUUIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func formatDuration(d time.Duration) string {
	total := int64(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// PublishRow inserts one summary row into Postgres, best-effort. An empty
// dsn means "no Postgres configured" and is a no-op, mirroring
// internal/bus.Client's nil-safety for the other optional side channels.
func PublishRow(ctx context.Context, dsn string, snap kernel.Snapshot) error {
	if dsn == "" {
		return nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("summary: open postgres: %w", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		INSERT INTO simulation_summaries
			(total_patients, triage_red, triage_yellow, triage_green, triage_sent_home,
			 outcome_home, outcome_ward, outcome_other, elapsed_seconds, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		snap.TotalPatients, snap.TriageRed, snap.TriageYellow, snap.TriageGreen, snap.TriageSentHome,
		snap.OutcomeHome, snap.OutcomeWard, snap.OutcomeOther, int64(snap.ElapsedSim.Seconds()), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("summary: insert row: %w", err)
	}
	return nil
}
