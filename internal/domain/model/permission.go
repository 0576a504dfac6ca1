package model

// Permission is a collaborator's permission level on a repository, as
// reported by the GitHub permission-level endpoint.
type Permission string

const (
	PermissionAdmin Permission = "admin"
	PermissionWrite Permission = "write"
	PermissionRead  Permission = "read"
	PermissionNone  Permission = "none"
)

// IsMaintainer reports whether the permission grants maintainer status.
func (p Permission) IsMaintainer() bool {
	return p == PermissionAdmin || p == PermissionWrite
}
