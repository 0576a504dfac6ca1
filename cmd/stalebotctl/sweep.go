package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stalebot/internal/application"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

func (c *cli) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep <owner/repo>",
		Short: "Run the escalation sweep on a repository",
		Long: `Examine every open issue and pull request waiting for a maintainer and
set its status label from the age of the author's last comment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger, err := c.logger(cfg)
			if err != nil {
				return err
			}

			tracker, ref, err := c.tracker(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			sweeper := application.NewSweepService(cfg.TierThresholds(), nil, logger,
				application.WithConcurrency(cfg.Sweep.Concurrency),
			)
			result, sweepErr := sweeper.SweepRepo(cmd.Context(), tracker, ref)

			if len(result.Issues) > 0 {
				table := c.ui.table([]string{"Number", "Age (days)", "Tier", "Outcome"})
				for _, is := range result.Issues {
					age := "-"
					if is.Outcome != model.OutcomeSkipped {
						age = strconv.FormatFloat(is.AgeDays, 'f', 1, 64)
					}
					_ = table.Append([]string{
						fmt.Sprintf("#%d", is.Number),
						age,
						tierColor(is.Tier),
						outcomeColor(is.Outcome),
					})
				}
				if err := table.Render(); err != nil {
					return err
				}
			}

			fmt.Fprintf(c.ui.out, "%s: %d examined, %d relabeled, %d unchanged, %d skipped, %d failed\n",
				ref.FullName(),
				len(result.Issues),
				result.Count(model.OutcomeRelabeled),
				result.Count(model.OutcomeUnchanged),
				result.Count(model.OutcomeSkipped),
				result.Count(model.OutcomeFailed),
			)

			if sweepErr != nil {
				c.ui.warning("sweep finished with errors")
				return sweepErr
			}
			return nil
		},
	}
}
