package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

// ErrRepoNotFound indicates the requested repository is not tracked.
var ErrRepoNotFound = errors.New("repository not found")

// RepoStore defines the driven port for the tracked-repository registry.
// Remove returns ErrRepoNotFound if the repository is not tracked. Full names
// match case-insensitively, as GitHub treats them.
type RepoStore interface {
	Upsert(ctx context.Context, repo model.Repository) error
	Remove(ctx context.Context, fullName string) error
	RemoveInstallation(ctx context.Context, installationID int64) (int64, error)
	GetByFullName(ctx context.Context, fullName string) (*model.Repository, error)
	ListAll(ctx context.Context) ([]model.Repository, error)
}
