package migration

import (
	"context"

	"goabtest/internal/errors"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	logger := zerolog.Ctx(ctx).With().Str("component", "migration").Logger()

	if err := r.createExperimentRunsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create experiment_runs table"))
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create indexes"))
	}

	logger.Info().Str("version", r.version).Msg("migrations applied")
	return nil
}

func (r *MigrationRunner) createExperimentRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS experiment_runs (
			id UUID PRIMARY KEY,
			kind VARCHAR(20) NOT NULL CHECK (kind IN ('plan', 'analysis')),
			alpha DOUBLE PRECISION NOT NULL,
			power DOUBLE PRECISION NOT NULL,
			mde DOUBLE PRECISION NOT NULL,
			baseline_rate DOUBLE PRECISION NOT NULL,
			payload JSONB NOT NULL,
			report TEXT NOT NULL DEFAULT '',
			dataset_hash VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_experiment_runs_created_at ON experiment_runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_experiment_runs_kind ON experiment_runs(kind, created_at DESC)`,
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
