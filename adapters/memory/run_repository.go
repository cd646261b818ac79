// Package memory holds in-process repositories used when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"goabtest/domain/core"
	"goabtest/domain/experiment"
	"goabtest/internal/errors"
	"goabtest/ports"
)

// RunRepository keeps runs in a map guarded by a RWMutex
type RunRepository struct {
	mu   sync.RWMutex
	runs map[core.RunID]*experiment.Run
}

// NewRunRepository creates an empty in-memory run repository
func NewRunRepository() ports.RunRepository {
	return &RunRepository{runs: make(map[core.RunID]*experiment.Run)}
}

// Save stores a copy of the run
func (r *RunRepository) Save(ctx context.Context, run *experiment.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run == nil || core.ID(run.ID).IsEmpty() {
		return errors.InvalidInput("run must have an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = clone(run)
	return nil
}

// Get returns a copy of the stored run
func (r *RunRepository) Get(ctx context.Context, id core.RunID) (*experiment.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, errors.WithCode(errors.CodeNotFound, core.ErrRunNotFound)
	}
	return clone(run), nil
}

// List returns runs newest first
func (r *RunRepository) List(ctx context.Context, kind experiment.RunKind, limit int) ([]*experiment.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	runs := make([]*experiment.Run, 0, len(r.runs))
	for _, run := range r.runs {
		if kind == "" || run.Kind == kind {
			runs = append(runs, clone(run))
		}
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func clone(run *experiment.Run) *experiment.Run {
	c := *run
	c.Payload = append([]byte(nil), run.Payload...)
	return &c
}
