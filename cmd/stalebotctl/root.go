package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stalebot/internal/config"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
	"github.com/ericfisherdev/stalebot/internal/logging"
	"github.com/ericfisherdev/stalebot/internal/wiring"
)

// cli carries state shared by every subcommand.
type cli struct {
	ui             *ui
	installationID int64

	// Overridable in tests.
	loadConfig func() (*config.Config, error)
	newTracker func(ctx context.Context, cfg *config.Config, installationID int64) (driven.IssueTracker, error)
}

func newRootCmd(u *ui) *cobra.Command {
	c := &cli{
		ui:         u,
		loadConfig: config.Load,
		newTracker: trackerFromConfig,
	}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stalebotctl",
		Short: "Operate the stalebot triage labels",
		Long: `stalebotctl inspects the labels and tiers stalebot manages and runs
provisioning or an escalation sweep against a single repository.

Configuration is read from the same STALEBOT_* environment variables and
STALEBOT_CONFIG_FILE as the server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	root.SetOut(c.ui.out)
	root.SetErr(c.ui.errOut)

	root.PersistentFlags().Int64Var(&c.installationID, "installation", 0, "GitHub App installation ID (required in app mode)")

	root.AddCommand(
		c.labelsCmd(),
		c.tierCmd(),
		c.provisionCmd(),
		c.sweepCmd(),
	)
	return root
}

// logger builds a logger honoring the configured level and format, writing
// to the error stream so tables on stdout stay clean.
func (c *cli) logger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(c.ui.errOut, cfg.Log.Level, cfg.Log.Format)
}

// tracker resolves the repository argument and an authenticated tracker.
func (c *cli) tracker(ctx context.Context, cfg *config.Config, arg string) (driven.IssueTracker, model.RepoRef, error) {
	ref, err := model.ParseRepoRef(arg)
	if err != nil {
		return nil, model.RepoRef{}, err
	}
	if cfg.AppMode() && c.installationID <= 0 {
		return nil, model.RepoRef{}, errors.New("--installation is required when STALEBOT_GITHUB_APP_ID is set")
	}

	t, err := c.newTracker(ctx, cfg, c.installationID)
	if err != nil {
		return nil, model.RepoRef{}, err
	}
	return t, ref, nil
}

func trackerFromConfig(ctx context.Context, cfg *config.Config, installationID int64) (driven.IssueTracker, error) {
	gh, err := wiring.NewGitHub(cfg)
	if err != nil {
		return nil, err
	}
	t, err := gh.Trackers.Tracker(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}
	return t, nil
}
