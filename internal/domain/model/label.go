package model

import "strings"

// Label names managed by the bot. The set is fixed; nothing outside it is ever
// added or removed.
const (
	LabelWaitingForMaintainer = "stalebot/waiting-for/maintainer"
	LabelWaitingForAuthor     = "stalebot/waiting-for/author"

	LabelStatusFresh          = "stalebot/status/fresh"
	LabelStatusNeedsAttention = "stalebot/status/needs-attention"
	LabelStatusStale          = "stalebot/status/stale"
	LabelStatusDire           = "stalebot/status/dire"
)

// Label name prefixes for the two mutually exclusive label families.
const (
	WaitingForPrefix = "stalebot/waiting-for/"
	StatusPrefix     = "stalebot/status/"
)

// Label is a repository label definition.
type Label struct {
	Name        string
	Color       string // Hex without the leading '#'.
	Description string
}

// LabelCatalog is the immutable set of label definitions the bot provisions.
// It is built once at startup and shared read-only by every service.
type LabelCatalog struct {
	labels []Label
}

// DefaultLabelCatalog returns the six labels with their display colors.
func DefaultLabelCatalog() LabelCatalog {
	return LabelCatalog{labels: []Label{
		{Name: LabelWaitingForMaintainer, Color: "cccccc", Description: "Waiting for a maintainer to respond"},
		{Name: LabelWaitingForAuthor, Color: "cccccc", Description: "Waiting for the author to respond"},
		{Name: LabelStatusFresh, Color: "5dcc77", Description: "Author responded within the last day"},
		{Name: LabelStatusNeedsAttention, Color: "f9dc5c", Description: "Author has been waiting for at least a day"},
		{Name: LabelStatusStale, Color: "ff8552", Description: "Author has been waiting for at least 15 days"},
		{Name: LabelStatusDire, Color: "da344d", Description: "Author has been waiting for at least 90 days"},
	}}
}

// All returns a copy of every label definition in catalog order.
func (c LabelCatalog) All() []Label {
	out := make([]Label, len(c.labels))
	copy(out, c.labels)
	return out
}

// Lookup returns the definition for name.
func (c LabelCatalog) Lookup(name string) (Label, bool) {
	for _, l := range c.labels {
		if l.Name == name {
			return l, true
		}
	}
	return Label{}, false
}

// Len returns the number of labels in the catalog.
func (c LabelCatalog) Len() int {
	return len(c.labels)
}

// IsStatusLabel reports whether name belongs to the status family.
func IsStatusLabel(name string) bool {
	return strings.HasPrefix(name, StatusPrefix)
}

// IsWaitingForLabel reports whether name belongs to the waiting-for family.
func IsWaitingForLabel(name string) bool {
	return strings.HasPrefix(name, WaitingForPrefix)
}

// LabelSet is the set of label names currently on an issue or pull request.
type LabelSet []string

// Has reports whether name is present.
func (s LabelSet) Has(name string) bool {
	for _, l := range s {
		if l == name {
			return true
		}
	}
	return false
}

// StatusLabels returns the labels from the status family, in order.
func (s LabelSet) StatusLabels() []string {
	var out []string
	for _, l := range s {
		if IsStatusLabel(l) {
			out = append(out, l)
		}
	}
	return out
}

// WaitingForLabels returns the labels from the waiting-for family, in order.
func (s LabelSet) WaitingForLabels() []string {
	var out []string
	for _, l := range s {
		if IsWaitingForLabel(l) {
			out = append(out, l)
		}
	}
	return out
}
