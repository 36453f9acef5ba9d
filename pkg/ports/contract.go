package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract runs a suite of tests to verify that a Journal
// implementation adheres to the interface contract.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	record := func(seq int, name string, o domain.Outcome) domain.OutcomeRecord {
		return domain.OutcomeRecord{RunID: runID, Seq: seq, NodeID: domain.NodeID(seq), NodeName: name, Outcome: o, At: at}
	}

	t.Run("Append and Load", func(t *testing.T) {
		require.NoError(t, journal.Append(ctx, runID, record(1, "fetch", domain.Pass)))
		require.NoError(t, journal.Append(ctx, runID, record(2, "build", domain.Fail)))

		recs, err := journal.Load(ctx, runID)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "fetch", recs[0].NodeName)
		assert.Equal(t, domain.Fail, recs[1].Outcome)
		assert.True(t, at.Equal(recs[1].At))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := journal.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("List", func(t *testing.T) {
		other := runID + "-2"
		require.NoError(t, journal.Append(ctx, other, record(1, "x", domain.Pass)))
		defer func() { _ = journal.Delete(ctx, other) }()

		runs, err := journal.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, runID)
		assert.Contains(t, runs, other)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, journal.Delete(ctx, runID))

		_, err := journal.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
		assert.NoError(t, journal.Delete(ctx, runID), "deleting twice is not an error")
	})
}
