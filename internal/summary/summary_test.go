package summary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorsim/edsim/internal/kernel"
)

func testSnapshot() kernel.Snapshot {
	return kernel.Snapshot{
		TotalPatients:  10,
		TriageRed:      2,
		TriageYellow:   3,
		TriageGreen:    4,
		TriageSentHome: 1,
		OutcomeHome:    5,
		OutcomeWard:    2,
		OutcomeOther:   3,
		Director:       uuid.New(),
		Reg1:           uuid.New(),
		Triage:         uuid.New(),
		Reg2History:    []uuid.UUID{uuid.New(), uuid.New()},
		ElapsedSim:     90*time.Minute + 5*time.Second,
	}
}

func TestRender(t *testing.T) {
	t.Run("should include totals, triage, outcomes, and actor identities", func(t *testing.T) {
		snap := testSnapshot()
		out := Render(snap)
		assert.Contains(t, out, "totalPatients: 10")
		assert.Contains(t, out, "red: 2")
		assert.Contains(t, out, "ward: 2")
		assert.Contains(t, out, "director: "+snap.Director.String())
		assert.Contains(t, out, "0d 1h 30m 5s")
		assert.Contains(t, out, snap.Reg2History[0].String()+","+snap.Reg2History[1].String())
	})

	t.Run("should render an empty reg2History without a trailing separator issue", func(t *testing.T) {
		snap := testSnapshot()
		snap.Reg2History = nil
		out := Render(snap)
		assert.Contains(t, out, "reg2History: \n")
	})
}

func TestWrite(t *testing.T) {
	t.Run("should truncate and write the rendered summary to path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "summary.txt")
		require.NoError(t, os.WriteFile(path, []byte("stale content"), 0o644))

		snap := testSnapshot()
		require.NoError(t, Write(path, snap))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, Render(snap), string(data))
	})
}

func TestPublishRowWithoutDSN(t *testing.T) {
	t.Run("should no-op when no Postgres DSN is configured", func(t *testing.T) {
		err := PublishRow(context.Background(), "", testSnapshot())
		assert.NoError(t, err)
	})
}
