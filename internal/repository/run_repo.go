package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/models"
)

const runColumns = `id, year, month, window_start, window_end, status, tasks, succeeded,
	failed, duration_ms, started_at, completed_at`

// runRepo is the relational implementation of RunRepository
type runRepo struct {
	db *database.DB
}

// NewRunRepo creates a new rollup run repository
func NewRunRepo(db *database.DB) RunRepository {
	return &runRepo{db: db}
}

// Create inserts a new run
func (r *runRepo) Create(ctx context.Context, run *models.RollupRun) error {
	query := `
		INSERT INTO rollup_runs (id, year, month, window_start, window_end, status, tasks, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Year, run.Month, run.WindowStart, run.WindowEnd,
		run.Status, run.Tasks, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rollup run: %w", err)
	}
	return nil
}

// Update stores status and counters
func (r *runRepo) Update(ctx context.Context, run *models.RollupRun) error {
	query := `
		UPDATE rollup_runs SET
			status = $1, tasks = $2, succeeded = $3, failed = $4,
			duration_ms = $5, completed_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		run.Status, run.Tasks, run.Succeeded, run.Failed,
		run.DurationMs, run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rollup run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by ID
func (r *runRepo) GetByID(ctx context.Context, id string) (*models.RollupRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM rollup_runs WHERE id = $1`, id)
	return scanRun(row)
}

// GetLatest retrieves the most recently started run
func (r *runRepo) GetLatest(ctx context.Context) (*models.RollupRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM rollup_runs ORDER BY started_at DESC LIMIT 1`)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*models.RollupRun, error) {
	var run models.RollupRun
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.Year, &run.Month, &run.WindowStart, &run.WindowEnd,
		&run.Status, &run.Tasks, &run.Succeeded, &run.Failed, &run.DurationMs,
		&run.StartedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rollup run: %w", err)
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

// AddFailures records failed tasks using the COPY protocol
func (r *runRepo) AddFailures(ctx context.Context, runID string, failures []models.RollupOutcome) error {
	if len(failures) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("rollup_failures", "run_id", "reference", "message"))
	if err != nil {
		return fmt.Errorf("failed to prepare failure copy: %w", err)
	}
	defer stmt.Close()

	for _, f := range failures {
		if _, err := stmt.ExecContext(ctx, runID, nullStringPtr(f.Reference), f.Error); err != nil {
			return fmt.Errorf("failed to buffer failure: %w", err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush failures: %w", err)
	}

	return tx.Commit()
}

// GetFailures retrieves failed tasks of a run
func (r *runRepo) GetFailures(ctx context.Context, runID string, limit int) ([]models.RollupOutcome, error) {
	query := `SELECT reference, message FROM rollup_failures WHERE run_id = $1 ORDER BY id`
	args := []interface{}{runID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get rollup failures: %w", err)
	}
	defer rows.Close()

	var failures []models.RollupOutcome
	for rows.Next() {
		var f models.RollupOutcome
		var reference sql.NullString
		if err := rows.Scan(&reference, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan rollup failure: %w", err)
		}
		if reference.Valid {
			ref := reference.String
			f.Reference = &ref
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
