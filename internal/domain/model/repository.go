package model

import "time"

// Repository is a repository the app is installed on and sweeps periodically.
type Repository struct {
	FullName       string
	Owner          string
	Name           string
	InstallationID int64
	AddedAt        time.Time
}

// Ref returns the owner/name pair.
func (r Repository) Ref() RepoRef {
	return RepoRef{Owner: r.Owner, Name: r.Name}
}

// NewRepository builds a Repository from a reference.
func NewRepository(ref RepoRef, installationID int64) Repository {
	return Repository{
		FullName:       ref.FullName(),
		Owner:          ref.Owner,
		Name:           ref.Name,
		InstallationID: installationID,
	}
}

// Installation is a GitHub App installation on a user or organization account.
type Installation struct {
	ID      int64
	Account string
}
