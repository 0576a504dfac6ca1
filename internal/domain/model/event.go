package model

// Event is a repository event delivered to the bot.
type Event interface {
	// EventName returns "<event>.<action>" as GitHub names it.
	EventName() string
}

// ItemOpened is raised when an issue or pull request is opened.
type ItemOpened struct {
	InstallationID int64
	Issue          Issue
}

// EventName implements Event.
func (e ItemOpened) EventName() string {
	if e.Issue.IsPullRequest {
		return "pull_request.opened"
	}
	return "issues.opened"
}

// ActivitySource names the webhook that produced a ParticipantActivity.
type ActivitySource string

const (
	SourceIssueComment  ActivitySource = "issue_comment.created"
	SourceReview        ActivitySource = "pull_request_review.submitted"
	SourceReviewComment ActivitySource = "pull_request_review_comment.created"
)

// ParticipantActivity is raised when someone comments on or reviews an issue
// or pull request.
type ParticipantActivity struct {
	InstallationID int64
	Source         ActivitySource
	Issue          Issue // Author is the user who opened the item.
	Actor          User  // The commenter or reviewer.
}

// EventName implements Event.
func (e ParticipantActivity) EventName() string {
	return string(e.Source)
}

// InstallationChanged is raised when the app is installed, uninstalled, or
// its repository selection changes.
type InstallationChanged struct {
	InstallationID int64
	Account        string
	Action         string // "created", "deleted", "added", "removed"
	Added          []RepoRef
	Removed        []RepoRef
}

// EventName implements Event.
func (e InstallationChanged) EventName() string {
	switch e.Action {
	case "added", "removed":
		return "installation_repositories." + e.Action
	default:
		return "installation." + e.Action
	}
}

// Deleted reports whether the whole installation went away.
func (e InstallationChanged) Deleted() bool {
	return e.Action == "deleted"
}

// SweepTick asks for one repository to be swept.
type SweepTick struct {
	InstallationID int64
	Repo           RepoRef
}

// EventName implements Event.
func (e SweepTick) EventName() string {
	return "schedule.repository"
}
