// Package wiring builds the GitHub adapters selected by configuration. It is
// shared by the server and the operator CLI.
package wiring

import (
	"fmt"

	githubadapter "github.com/ericfisherdev/stalebot/internal/adapter/driven/github"
	"github.com/ericfisherdev/stalebot/internal/config"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// GitHub holds the tracker factory and, in app mode, the installation source.
type GitHub struct {
	Trackers      driven.TrackerFactory
	Installations driven.InstallationSource // nil in token mode
	AppMode       bool
}

// NewGitHub builds the GitHub adapters for cfg. In app mode it authenticates
// as the app; otherwise it uses the personal access token for everything.
func NewGitHub(cfg *config.Config) (*GitHub, error) {
	if err := cfg.RequireGitHub(); err != nil {
		return nil, err
	}

	if !cfg.AppMode() {
		factory, err := githubadapter.NewTokenTrackerFactory(cfg.GitHub.Token, cfg.GitHub.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create token client: %w", err)
		}
		return &GitHub{Trackers: factory}, nil
	}

	pem, err := cfg.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}

	app, err := githubadapter.NewApp(githubadapter.AppConfig{
		AppID:      cfg.GitHub.AppID,
		PrivateKey: pem,
		BaseURL:    cfg.GitHub.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create github app client: %w", err)
	}

	return &GitHub{Trackers: app, Installations: app, AppMode: true}, nil
}
