package ports

import (
	"context"

	"goabtest/domain/core"
	"goabtest/domain/experiment"
)

// RunRepository defines the interface for stored planning and analysis runs
type RunRepository interface {
	// Save persists a new run
	Save(ctx context.Context, run *experiment.Run) error

	// Get retrieves a run by ID; a missing run yields core.ErrRunNotFound
	Get(ctx context.Context, id core.RunID) (*experiment.Run, error)

	// List returns the newest runs first, optionally filtered by kind and limited
	List(ctx context.Context, kind experiment.RunKind, limit int) ([]*experiment.Run, error)
}
