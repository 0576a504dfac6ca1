// Package github implements the IssueTracker port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// perPage is the page size used for every list call.
const perPage = 100

// Compile-time interface satisfaction check.
var _ driven.IssueTracker = (*Client)(nil)

// Client implements the driven.IssueTracker port for one installation (or one
// personal access token) using the go-github library.
type Client struct {
	gh *gh.Client
}

// newTransport builds the shared part of the transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. revalidateTransport (every cached entry is revalidated)
//  3. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//
// Authentication is layered on top by the caller.
func newTransport() http.RoundTripper {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	return github_ratelimit.NewClient(revalidateTransport{base: cacheTransport}).Transport
}

// revalidateTransport marks requests max-age=0 so the cache never answers
// from a stored response without a conditional request. GitHub sends
// max-age=60 on reads, and labels read back after our own writes must be
// current. A 304 still costs no rate limit.
type revalidateTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t revalidateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Cache-Control") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Cache-Control", "max-age=0")
	}
	return t.base.RoundTrip(req)
}

// NewClient creates a Client that sends every request through httpClient.
// baseURL may be empty for github.com; for GitHub Enterprise Server pass the
// REST root, e.g. "https://ghe.example.com/api/v3/".
func NewClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client, err := newGitHubClient(httpClient, baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{gh: client}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	return NewClient(httpClient, baseURL)
}

func newGitHubClient(httpClient *http.Client, baseURL string) (*gh.Client, error) {
	client := gh.NewClient(httpClient)
	if baseURL == "" {
		return client, nil
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u
	return client, nil
}

// ListOpenIssuesWithLabel retrieves every open issue and pull request in the
// repository carrying label. It handles pagination automatically.
func (c *Client) ListOpenIssuesWithLabel(ctx context.Context, repo model.RepoRef, label string) ([]model.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{label},
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var all []model.Issue

	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues for %s (page %d): %w", repo, opts.ListOptions.Page, mapError(err))
		}

		logRateLimit(resp, repo.FullName()+"/issues", opts.ListOptions.Page, len(issues))

		for _, issue := range issues {
			all = append(all, mapIssue(issue, repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return all, nil
}

// LastCommentBy returns the newest comment on the issue written by author.
// Comments are listed oldest first by the API, so pages are visited from the
// last one backwards and each page is scanned in reverse; the walk stops at
// the first match. Returns nil, nil when the author never commented.
func (c *Client) LastCommentBy(ctx context.Context, repo model.RepoRef, number int, author model.User) (*model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	first, resp, err := c.gh.Issues.ListComments(ctx, repo.Owner, repo.Name, number, opts)
	if err != nil {
		return nil, fmt.Errorf("listing comments for %s#%d: %w", repo, number, mapError(err))
	}
	logRateLimit(resp, fmt.Sprintf("%s#%d/comments", repo, number), 1, len(first))

	for page := resp.LastPage; page > 1; page-- {
		opts.Page = page
		comments, resp, err := c.gh.Issues.ListComments(ctx, repo.Owner, repo.Name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s#%d (page %d): %w", repo, number, page, mapError(err))
		}
		logRateLimit(resp, fmt.Sprintf("%s#%d/comments", repo, number), page, len(comments))

		if found := newestBy(comments, author); found != nil {
			return found, nil
		}
	}

	return newestBy(first, author), nil
}

// newestBy scans comments from the end and returns the first one by author.
func newestBy(comments []*gh.IssueComment, author model.User) *model.Comment {
	for i := len(comments) - 1; i >= 0; i-- {
		c := mapComment(comments[i])
		if c.Author.SameAs(author) {
			return &c
		}
	}
	return nil
}

// PermissionLevel returns the user's permission on the repository. GitHub
// folds "maintain" into "write" and "triage" into "read" for this field.
func (c *Client) PermissionLevel(ctx context.Context, repo model.RepoRef, username string) (model.Permission, error) {
	level, resp, err := c.gh.Repositories.GetPermissionLevel(ctx, repo.Owner, repo.Name, username)
	if err != nil {
		return model.PermissionNone, fmt.Errorf("fetching permission of %s on %s: %w", username, repo, mapError(err))
	}

	logRateLimit(resp, repo.FullName()+"/permission", 0, 1)

	return mapPermission(level.GetPermission()), nil
}

// ListInstallationRepos returns every repository the installation token can
// access. It handles pagination automatically.
func (c *Client) ListInstallationRepos(ctx context.Context) ([]model.RepoRef, error) {
	opts := &gh.ListOptions{PerPage: perPage}

	var all []model.RepoRef

	for {
		list, resp, err := c.gh.Apps.ListRepos(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing installation repositories (page %d): %w", opts.Page, mapError(err))
		}

		logRateLimit(resp, "installation/repositories", opts.Page, len(list.Repositories))

		for _, r := range list.Repositories {
			all = append(all, model.RepoRef{Owner: r.GetOwner().GetLogin(), Name: r.GetName()})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// AddLabels adds labels to an issue or pull request.
func (c *Client) AddLabels(ctx context.Context, repo model.RepoRef, number int, labels ...string) error {
	_, resp, err := c.gh.Issues.AddLabelsToIssue(ctx, repo.Owner, repo.Name, number, labels)
	if err != nil {
		return fmt.Errorf("adding labels to %s#%d: %w", repo, number, mapError(err))
	}
	logRateLimit(resp, fmt.Sprintf("%s#%d/labels", repo, number), 0, len(labels))
	return nil
}

// RemoveLabel removes one label from an issue or pull request. Returns an
// error wrapping driven.ErrNotFound when the label is not on the issue.
func (c *Client) RemoveLabel(ctx context.Context, repo model.RepoRef, number int, label string) error {
	resp, err := c.gh.Issues.RemoveLabelForIssue(ctx, repo.Owner, repo.Name, number, label)
	if err != nil {
		return fmt.Errorf("removing label %q from %s#%d: %w", label, repo, number, mapError(err))
	}
	logRateLimit(resp, fmt.Sprintf("%s#%d/labels", repo, number), 0, 1)
	return nil
}

// CreateLabel creates a repository label. Returns an error wrapping
// driven.ErrAlreadyExists when GitHub rejects the name as taken.
func (c *Client) CreateLabel(ctx context.Context, repo model.RepoRef, label model.Label) error {
	_, resp, err := c.gh.Issues.CreateLabel(ctx, repo.Owner, repo.Name, &gh.Label{
		Name:        gh.Ptr(label.Name),
		Color:       gh.Ptr(label.Color),
		Description: gh.Ptr(label.Description),
	})
	if err != nil {
		return fmt.Errorf("creating label %q in %s: %w", label.Name, repo, mapError(err))
	}
	logRateLimit(resp, repo.FullName()+"/labels", 0, 1)
	return nil
}

// mapError translates the HTTP statuses the services care about into port
// sentinel errors. The original error stays in the chain.
func mapError(err error) error {
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return err
	}

	switch ghErr.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", driven.ErrNotFound, err)
	case http.StatusUnprocessableEntity:
		if isAlreadyExists(ghErr) {
			return fmt.Errorf("%w: %w", driven.ErrAlreadyExists, err)
		}
	}
	return err
}

// isAlreadyExists reports whether a 422 carries the "already_exists" code.
// A 422 without error details is treated the same, matching how label
// creation reports duplicates.
func isAlreadyExists(ghErr *gh.ErrorResponse) bool {
	if len(ghErr.Errors) == 0 {
		return true
	}
	for _, e := range ghErr.Errors {
		if e.Code == "already_exists" {
			return true
		}
	}
	return false
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapIssue converts a go-github Issue to a domain model Issue.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapIssue(issue *gh.Issue, repo model.RepoRef) model.Issue {
	labels := make(model.LabelSet, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return model.Issue{
		Repo:          repo,
		Number:        issue.GetNumber(),
		Author:        mapUser(issue.GetUser()),
		Labels:        labels,
		URL:           issue.GetHTMLURL(),
		IsPullRequest: issue.IsPullRequest(),
	}
}

func mapComment(c *gh.IssueComment) model.Comment {
	return model.Comment{
		ID:        c.GetID(),
		Author:    mapUser(c.GetUser()),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

func mapUser(u *gh.User) model.User {
	return model.User{ID: u.GetID(), Login: u.GetLogin()}
}

func mapPermission(p string) model.Permission {
	switch model.Permission(p) {
	case model.PermissionAdmin, model.PermissionWrite, model.PermissionRead:
		return model.Permission(p)
	case "maintain":
		return model.PermissionWrite
	case "triage":
		return model.PermissionRead
	default:
		return model.PermissionNone
	}
}
