package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.TrackerFactory     = (*App)(nil)
	_ driven.InstallationSource = (*App)(nil)
	_ driven.TrackerFactory     = (*TokenTrackerFactory)(nil)
)

// AppConfig holds what is needed to authenticate as a GitHub App.
type AppConfig struct {
	AppID      int64
	PrivateKey []byte
	// BaseURL is empty for github.com.
	BaseURL string
	// Transport replaces the cache and rate-limit stack. Used by tests.
	Transport http.RoundTripper
}

// App authenticates as a GitHub App and hands out installation clients.
type App struct {
	client    *gh.Client
	baseURL   string
	transport func() http.RoundTripper
}

// NewApp creates an App from the given configuration.
func NewApp(cfg AppConfig) (*App, error) {
	jwtGen, err := NewJWTGenerator(cfg.AppID, cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	transport := newTransport
	if cfg.Transport != nil {
		transport = func() http.RoundTripper { return cfg.Transport }
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, jwtGen),
			Base:   transport(),
		},
	}
	client, err := newGitHubClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	return &App{client: client, baseURL: cfg.BaseURL, transport: transport}, nil
}

// Tracker returns a client authenticated as the installation. The token is
// created lazily on the first request and refreshed before it expires.
func (a *App) Tracker(_ context.Context, installationID int64) (driven.IssueTracker, error) {
	if installationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive, got %d", installationID)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: newInstallationTokenSource(a.client, installationID),
			Base:   a.transport(),
		},
	}
	return NewClient(httpClient, a.baseURL)
}

// ListInstallations returns every installation of the app. It handles
// pagination automatically.
func (a *App) ListInstallations(ctx context.Context) ([]model.Installation, error) {
	opts := &gh.ListOptions{PerPage: perPage}

	var all []model.Installation

	for {
		installs, resp, err := a.client.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing installations (page %d): %w", opts.Page, mapError(err))
		}

		logRateLimit(resp, "app/installations", opts.Page, len(installs))

		for _, inst := range installs {
			all = append(all, model.Installation{
				ID:      inst.GetID(),
				Account: inst.GetAccount().GetLogin(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// TokenTrackerFactory serves one personal-access-token client for every
// installation id. Used for development and single-account setups.
type TokenTrackerFactory struct {
	client *Client
}

// NewTokenTrackerFactory creates a factory authenticated with token.
func NewTokenTrackerFactory(token, baseURL string) (*TokenTrackerFactory, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   newTransport(),
		},
	}
	client, err := NewClient(httpClient, baseURL)
	if err != nil {
		return nil, err
	}
	return &TokenTrackerFactory{client: client}, nil
}

// Tracker returns the shared client regardless of installationID.
func (f *TokenTrackerFactory) Tracker(_ context.Context, _ int64) (driven.IssueTracker, error) {
	return f.client, nil
}
