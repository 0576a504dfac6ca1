package application

import "github.com/ericfisherdev/stalebot/internal/domain/model"

// Role is the part a commenter plays on an issue.
type Role int

const (
	// RoleOther is anyone without write access who did not open the item.
	RoleOther Role = iota
	// RoleAuthor is the user who opened the item.
	RoleAuthor
	// RoleMaintainer is a collaborator with admin or write permission.
	RoleMaintainer
)

// String returns a human-readable name for the role.
func (r Role) String() string {
	switch r {
	case RoleAuthor:
		return "author"
	case RoleMaintainer:
		return "maintainer"
	default:
		return "other"
	}
}

// LabelChange is a set of label writes to apply to one issue.
type LabelChange struct {
	Add    []string
	Remove []string
}

// IsEmpty reports whether the change performs no writes.
func (c LabelChange) IsEmpty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0
}

// Apply returns the label set that results from applying the change.
func (c LabelChange) Apply(current model.LabelSet) model.LabelSet {
	out := make(model.LabelSet, 0, len(current)+len(c.Add))
	for _, l := range current {
		if !contains(c.Remove, l) {
			out = append(out, l)
		}
	}
	for _, l := range c.Add {
		if !out.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// PlanWaitingFor computes the waiting-for change when someone in role comments.
// The returned removals only name labels present in current; additions are
// always issued because adding an existing label is a remote no-op.
func PlanWaitingFor(role Role, current model.LabelSet) LabelChange {
	var keep, drop string
	switch role {
	case RoleAuthor:
		keep, drop = model.LabelWaitingForMaintainer, model.LabelWaitingForAuthor
	case RoleMaintainer:
		keep, drop = model.LabelWaitingForAuthor, model.LabelWaitingForMaintainer
	default:
		return LabelChange{}
	}

	change := LabelChange{Add: []string{keep}}
	if current.Has(drop) {
		change.Remove = []string{drop}
	}
	return change
}

// PlanStatus computes the status change for an issue whose target tier is tier.
// Every other status label is removed; the target label is added only when
// missing, so an issue already in the right tier yields an empty change.
func PlanStatus(tier model.Tier, current model.LabelSet) LabelChange {
	target := tier.Label()

	var change LabelChange
	for _, l := range current.StatusLabels() {
		if l != target {
			change.Remove = append(change.Remove, l)
		}
	}
	if !current.Has(target) {
		change.Add = []string{target}
	}
	return change
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
