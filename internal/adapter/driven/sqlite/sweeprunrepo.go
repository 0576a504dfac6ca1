package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SweepRunStore = (*SweepRunRepo)(nil)

// SweepRunRepo is the SQLite implementation of the SweepRunStore port interface.
type SweepRunRepo struct {
	db *DB
}

// NewSweepRunRepo creates a new SweepRunRepo backed by the given DB.
func NewSweepRunRepo(db *DB) *SweepRunRepo {
	return &SweepRunRepo{db: db}
}

// Record inserts a sweep run.
func (r *SweepRunRepo) Record(ctx context.Context, run model.SweepRun) error {
	const query = `
		INSERT INTO sweep_runs (
			id, repo_full_name, started_at, finished_at,
			examined, relabeled, unchanged, skipped, failed, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID, run.RepoFullName, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Examined, run.Relabeled, run.Unchanged, run.Skipped, run.Failed, run.Error,
	)
	if err != nil {
		return fmt.Errorf("record sweep run %s: %w", run.ID, err)
	}
	return nil
}

// ListRecent returns up to limit runs, newest first. Runs started in the same
// instant are ordered by id, which is time-ordered as well.
func (r *SweepRunRepo) ListRecent(ctx context.Context, limit int) ([]model.SweepRun, error) {
	const query = `
		SELECT id, repo_full_name, started_at, finished_at,
		       examined, relabeled, unchanged, skipped, failed, error
		FROM sweep_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sweep runs: %w", err)
	}
	defer rows.Close()

	runs := []model.SweepRun{}
	for rows.Next() {
		var (
			run               model.SweepRun
			started, finished string
		)
		if err := rows.Scan(
			&run.ID, &run.RepoFullName, &started, &finished,
			&run.Examined, &run.Relabeled, &run.Unchanged, &run.Skipped, &run.Failed, &run.Error,
		); err != nil {
			return nil, fmt.Errorf("scan sweep run: %w", err)
		}

		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep runs: %w", err)
	}

	return runs, nil
}
