package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"goabtest/domain/core"
	"goabtest/domain/experiment"
	"goabtest/internal/errors"
	"goabtest/ports"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// runRow mirrors the experiment_runs table
type runRow struct {
	ID           string    `db:"id"`
	Kind         string    `db:"kind"`
	Alpha        float64   `db:"alpha"`
	Power        float64   `db:"power"`
	MDE          float64   `db:"mde"`
	BaselineRate float64   `db:"baseline_rate"`
	Payload      []byte    `db:"payload"`
	Report       string    `db:"report"`
	DatasetHash  string    `db:"dataset_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r runRow) toRun() *experiment.Run {
	return &experiment.Run{
		ID:   core.RunID(r.ID),
		Kind: experiment.RunKind(r.Kind),
		Parameters: experiment.ParameterSet{
			Alpha:        r.Alpha,
			Power:        r.Power,
			MDE:          r.MDE,
			BaselineRate: r.BaselineRate,
		},
		Payload:     r.Payload,
		Report:      r.Report,
		DatasetHash: core.Hash(r.DatasetHash),
		CreatedAt:   r.CreatedAt,
	}
}

const runColumns = `id, kind, alpha, power, mde, baseline_rate, payload, report, dataset_hash, created_at`

// Save inserts a run
func (r *RunRepositoryImpl) Save(ctx context.Context, run *experiment.Run) error {
	logger := zerolog.Ctx(ctx)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiment_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID.String(), string(run.Kind),
		run.Parameters.Alpha, run.Parameters.Power, run.Parameters.MDE, run.Parameters.BaselineRate,
		[]byte(run.Payload), run.Report, run.DatasetHash.String(), run.CreatedAt)
	if err != nil {
		logger.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to save run")
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to save run"))
	}

	logger.Debug().Str("run_id", run.ID.String()).Str("kind", string(run.Kind)).Msg("run saved")
	return nil
}

// Get retrieves a run by ID
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*experiment.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+runColumns+`
		FROM experiment_runs
		WHERE id = $1
	`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithCode(errors.CodeNotFound, core.ErrRunNotFound)
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("run_id", id.String()).Msg("failed to load run")
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to load run"))
	}
	return row.toRun(), nil
}

// List returns runs newest first
func (r *RunRepositoryImpl) List(ctx context.Context, kind experiment.RunKind, limit int) ([]*experiment.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+runColumns+`
		FROM experiment_runs
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(kind), limit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list runs")
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to list runs"))
	}

	runs := make([]*experiment.Run, len(rows))
	for i, row := range rows {
		runs[i] = row.toRun()
	}
	return runs, nil
}
