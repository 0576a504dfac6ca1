package httphandler

import (
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

// handledEvents lists the X-GitHub-Event types worth parsing. Everything else
// is acknowledged and ignored without decoding the payload.
var handledEvents = map[string]bool{
	"issues":                      true,
	"pull_request":                true,
	"issue_comment":               true,
	"pull_request_review":         true,
	"pull_request_review_comment": true,
	"installation":                true,
	"installation_repositories":   true,
}

// translate converts a parsed go-github payload into a domain event. The
// second result is false for actions the bot does not react to.
func translate(payload any) (model.Event, bool) {
	switch ev := payload.(type) {
	case *gh.IssuesEvent:
		if ev.GetAction() != "opened" {
			return nil, false
		}
		return model.ItemOpened{
			InstallationID: ev.GetInstallation().GetID(),
			Issue:          issueFromIssue(ev.GetRepo(), ev.GetIssue()),
		}, true

	case *gh.PullRequestEvent:
		if ev.GetAction() != "opened" {
			return nil, false
		}
		return model.ItemOpened{
			InstallationID: ev.GetInstallation().GetID(),
			Issue:          issueFromPullRequest(ev.GetRepo(), ev.GetPullRequest()),
		}, true

	case *gh.IssueCommentEvent:
		if ev.GetAction() != "created" {
			return nil, false
		}
		return model.ParticipantActivity{
			InstallationID: ev.GetInstallation().GetID(),
			Source:         model.SourceIssueComment,
			Issue:          issueFromIssue(ev.GetRepo(), ev.GetIssue()),
			Actor:          user(ev.GetComment().GetUser()),
		}, true

	case *gh.PullRequestReviewEvent:
		if ev.GetAction() != "submitted" {
			return nil, false
		}
		return model.ParticipantActivity{
			InstallationID: ev.GetInstallation().GetID(),
			Source:         model.SourceReview,
			Issue:          issueFromPullRequest(ev.GetRepo(), ev.GetPullRequest()),
			Actor:          user(ev.GetReview().GetUser()),
		}, true

	case *gh.PullRequestReviewCommentEvent:
		if ev.GetAction() != "created" {
			return nil, false
		}
		return model.ParticipantActivity{
			InstallationID: ev.GetInstallation().GetID(),
			Source:         model.SourceReviewComment,
			Issue:          issueFromPullRequest(ev.GetRepo(), ev.GetPullRequest()),
			Actor:          user(ev.GetComment().GetUser()),
		}, true

	case *gh.InstallationEvent:
		inst := ev.GetInstallation()
		changed := model.InstallationChanged{
			InstallationID: inst.GetID(),
			Account:        inst.GetAccount().GetLogin(),
			Action:         ev.GetAction(),
		}
		switch ev.GetAction() {
		case "created":
			changed.Added = repoRefs(ev.Repositories)
		case "deleted":
			changed.Removed = repoRefs(ev.Repositories)
		default:
			return nil, false
		}
		return changed, true

	case *gh.InstallationRepositoriesEvent:
		inst := ev.GetInstallation()
		changed := model.InstallationChanged{
			InstallationID: inst.GetID(),
			Account:        inst.GetAccount().GetLogin(),
			Action:         ev.GetAction(),
		}
		switch ev.GetAction() {
		case "added":
			changed.Added = repoRefs(ev.RepositoriesAdded)
		case "removed":
			changed.Removed = repoRefs(ev.RepositoriesRemoved)
		default:
			return nil, false
		}
		return changed, true
	}

	return nil, false
}

// actionOf returns the payload's action field, if it has one.
func actionOf(payload any) string {
	if a, ok := payload.(interface{ GetAction() string }); ok {
		return a.GetAction()
	}
	return ""
}

func issueFromIssue(repo *gh.Repository, issue *gh.Issue) model.Issue {
	return model.Issue{
		Repo:          repoRef(repo),
		Number:        issue.GetNumber(),
		Author:        user(issue.GetUser()),
		Labels:        labelNames(issue.Labels),
		URL:           issue.GetHTMLURL(),
		IsPullRequest: issue.IsPullRequest(),
	}
}

func issueFromPullRequest(repo *gh.Repository, pr *gh.PullRequest) model.Issue {
	return model.Issue{
		Repo:          repoRef(repo),
		Number:        pr.GetNumber(),
		Author:        user(pr.GetUser()),
		Labels:        labelNames(pr.Labels),
		URL:           pr.GetHTMLURL(),
		IsPullRequest: true,
	}
}

func labelNames(labels []*gh.Label) model.LabelSet {
	out := make(model.LabelSet, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.GetName())
	}
	return out
}

func user(u *gh.User) model.User {
	return model.User{ID: u.GetID(), Login: u.GetLogin()}
}

// repoRef prefers the owner object and falls back to full_name, which is all
// installation payloads carry.
func repoRef(r *gh.Repository) model.RepoRef {
	if owner := r.GetOwner().GetLogin(); owner != "" {
		return model.RepoRef{Owner: owner, Name: r.GetName()}
	}
	ref, err := model.ParseRepoRef(r.GetFullName())
	if err != nil {
		return model.RepoRef{Name: r.GetName()}
	}
	return ref
}

func repoRefs(repos []*gh.Repository) []model.RepoRef {
	out := make([]model.RepoRef, 0, len(repos))
	for _, r := range repos {
		ref := repoRef(r)
		if ref.Owner == "" || ref.Name == "" {
			continue
		}
		out = append(out, ref)
	}
	return out
}
