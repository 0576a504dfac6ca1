package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

// Sentinel errors returned by IssueTracker implementations.
var (
	// ErrNotFound indicates the remote resource does not exist, e.g. removing a
	// label that is not on the issue.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the remote resource already exists, e.g.
	// creating a label the repository already has.
	ErrAlreadyExists = errors.New("already exists")
)

// IssueTracker defines the driven port for the remote issue-tracking API,
// scoped to a single installation.
type IssueTracker interface {
	// Read methods

	// ListOpenIssuesWithLabel returns every open issue and pull request carrying
	// the label. Pagination is handled by the implementation.
	ListOpenIssuesWithLabel(ctx context.Context, repo model.RepoRef, label string) ([]model.Issue, error)
	// LastCommentBy returns the most recent comment on the issue written by
	// author, or nil when the author never commented.
	LastCommentBy(ctx context.Context, repo model.RepoRef, number int, author model.User) (*model.Comment, error)
	// PermissionLevel returns the user's permission on the repository.
	PermissionLevel(ctx context.Context, repo model.RepoRef, username string) (model.Permission, error)
	// ListInstallationRepos returns the repositories the installation can access.
	ListInstallationRepos(ctx context.Context) ([]model.RepoRef, error)

	// Write methods

	// AddLabels adds labels to an issue. Adding a label already present is a no-op.
	AddLabels(ctx context.Context, repo model.RepoRef, number int, labels ...string) error
	// RemoveLabel removes a label from an issue. Returns ErrNotFound when the
	// label is not on the issue.
	RemoveLabel(ctx context.Context, repo model.RepoRef, number int, label string) error
	// CreateLabel creates a repository label. Returns ErrAlreadyExists when a
	// label with the same name exists.
	CreateLabel(ctx context.Context, repo model.RepoRef, label model.Label) error
}

// TrackerFactory hands out IssueTracker clients authenticated for an installation.
type TrackerFactory interface {
	Tracker(ctx context.Context, installationID int64) (IssueTracker, error)
}

// InstallationSource lists the installations of the app.
type InstallationSource interface {
	ListInstallations(ctx context.Context) ([]model.Installation, error)
}
