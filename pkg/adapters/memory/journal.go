package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	runs map[string][]domain.OutcomeRecord
	mu   sync.RWMutex
}

// NewJournal creates a new in-memory journal.
func NewJournal() *Journal {
	return &Journal{
		runs: make(map[string][]domain.OutcomeRecord),
	}
}

// Append adds a record to the run.
func (j *Journal) Append(ctx context.Context, runID string, rec domain.OutcomeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs[runID] = append(j.runs[runID], rec)
	return nil
}

// Load returns a copy of the run's records so callers cannot mutate the journal.
func (j *Journal) Load(ctx context.Context, runID string) ([]domain.OutcomeRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	recs, ok := j.runs[runID]
	if !ok || len(recs) == 0 {
		return nil, domain.ErrRunNotFound
	}
	out := make([]domain.OutcomeRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// Delete removes the run.
func (j *Journal) Delete(ctx context.Context, runID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.runs, runID)
	return nil
}

// List returns stored run IDs, sorted.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	ids := make([]string, 0, len(j.runs))
	for id := range j.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
