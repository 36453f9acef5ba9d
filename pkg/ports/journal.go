package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Journal persists the outcomes resolved during runs, in order.
type Journal interface {
	// Append adds a record to the run. Records keep insertion order.
	Append(ctx context.Context, runID string, rec domain.OutcomeRecord) error

	// Load returns the records of a run in insertion order.
	// Returns domain.ErrRunNotFound if the run has no records.
	Load(ctx context.Context, runID string) ([]domain.OutcomeRecord, error)

	// Delete removes a run. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
