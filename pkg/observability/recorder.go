package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Recorder appends every resolved node of one run to a journal.
type Recorder struct {
	runID   string
	journal ports.Journal
	logger  *slog.Logger
	seq     atomic.Int64
	failed  atomic.Int64
}

// NewRecorder creates a Recorder for runID. A nil logger discards errors.
func NewRecorder(runID string, journal ports.Journal, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{runID: runID, journal: journal, logger: logger}
}

// RunID returns the run this recorder writes to.
func (r *Recorder) RunID() string { return r.runID }

// Written returns how many records were appended.
func (r *Recorder) Written() int { return int(r.seq.Load() - r.failed.Load()) }

// Hooks returns hooks appending an OutcomeRecord on every outcome.
// Journal errors are logged; they never affect the run.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnOutcome: func(ctx context.Context, ev *domain.NodeEvent) {
			seq := int(r.seq.Add(1))
			at := ev.Timestamp
			if at.IsZero() {
				at = time.Now()
			}
			rec := domain.OutcomeRecord{
				RunID:       r.runID,
				Seq:         seq,
				NodeID:      ev.NodeID,
				NodeName:    ev.NodeName,
				Outcome:     ev.Outcome,
				Interrupted: ev.Interrupted,
				At:          at,
			}
			if err := r.journal.Append(ctx, r.runID, rec); err != nil {
				r.failed.Add(1)
				r.logger.Warn("journal append failed", "run_id", r.runID, "node", ev.NodeName, "error", err)
			}
		},
	}
}
