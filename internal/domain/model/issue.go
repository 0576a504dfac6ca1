package model

import (
	"fmt"
	"strings"
	"time"
)

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string
	Name  string
}

// FullName returns "owner/name".
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// String implements fmt.Stringer.
func (r RepoRef) String() string {
	return r.FullName()
}

// ParseRepoRef splits an "owner/name" string.
func ParseRepoRef(fullName string) (RepoRef, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return RepoRef{}, fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return RepoRef{Owner: parts[0], Name: parts[1]}, nil
}

// User is a GitHub account as seen in issue and comment payloads.
type User struct {
	ID    int64
	Login string
}

// SameAs compares by numeric ID when both sides carry one, otherwise by
// case-insensitive login.
func (u User) SameAs(other User) bool {
	if u.ID != 0 && other.ID != 0 {
		return u.ID == other.ID
	}
	return u.Login != "" && strings.EqualFold(u.Login, other.Login)
}

// Issue is an issue or pull request as far as labeling is concerned.
type Issue struct {
	Repo          RepoRef
	Number        int
	Author        User
	Labels        LabelSet
	URL           string
	IsPullRequest bool
}

// Comment is a single entry in an issue's comment thread.
type Comment struct {
	ID        int64
	Author    User
	CreatedAt time.Time
}
