package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// timeLayout is fixed width so stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Upsert inserts a tracked repository or moves an existing one to a new
// installation. The original added_at is preserved on update. Full names
// compare case-insensitively, as on GitHub; the latest spelling is kept.
func (r *RepoRepo) Upsert(ctx context.Context, repo model.Repository) error {
	const query = `
		INSERT INTO tracked_repositories (full_name, owner, name, installation_id, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(full_name) DO UPDATE SET
			full_name = excluded.full_name,
			owner = excluded.owner,
			name = excluded.name,
			installation_id = excluded.installation_id`

	addedAt := repo.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		repo.FullName, repo.Owner, repo.Name, repo.InstallationID, formatTime(addedAt))
	if err != nil {
		return fmt.Errorf("upsert repository %s: %w", repo.FullName, err)
	}

	return nil
}

// Remove deletes a repository by full name. Returns an error wrapping
// driven.ErrRepoNotFound if the repository is not tracked.
func (r *RepoRepo) Remove(ctx context.Context, fullName string) error {
	const query = `DELETE FROM tracked_repositories WHERE full_name = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, fullName)
	if err != nil {
		return fmt.Errorf("remove repository %s: %w", fullName, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove repository %s: %w", fullName, driven.ErrRepoNotFound)
	}

	return nil
}

// RemoveInstallation deletes every repository of an installation and returns
// how many were removed.
func (r *RepoRepo) RemoveInstallation(ctx context.Context, installationID int64) (int64, error) {
	const query = `DELETE FROM tracked_repositories WHERE installation_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, installationID)
	if err != nil {
		return 0, fmt.Errorf("remove installation %d: %w", installationID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return rows, nil
}

// GetByFullName retrieves a repository by its full name. Returns nil, nil if
// the repository does not exist.
func (r *RepoRepo) GetByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	const query = `
		SELECT full_name, owner, name, installation_id, added_at
		FROM tracked_repositories WHERE full_name = ?`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, fullName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", fullName, err)
	}

	return repo, nil
}

// ListAll returns all repositories ordered by full name.
func (r *RepoRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	const query = `
		SELECT full_name, owner, name, installation_id, added_at
		FROM tracked_repositories ORDER BY full_name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var addedAt string

	err := s.Scan(&repo.FullName, &repo.Owner, &repo.Name, &repo.InstallationID, &addedAt)
	if err != nil {
		return nil, err
	}

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
