package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stalebot/internal/application"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

func (c *cli) labelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Print the label catalog",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			table := c.ui.table([]string{"Name", "Color", "Description"})
			for _, l := range model.DefaultLabelCatalog().All() {
				_ = table.Append([]string{swatch(l), "#" + l.Color, l.Description})
			}
			return table.Render()
		},
	}
}

func (c *cli) tierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tier <days>",
		Short: "Print the tier for an age in days",
		Long: `Print the escalation tier for an author's last comment that is <days> old,
using the configured thresholds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			days, err := strconv.ParseFloat(args[0], 64)
			if err != nil || days < 0 {
				return fmt.Errorf("invalid age %q: expected a non-negative number of days", args[0])
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			tier := application.ClassifyTier(days, cfg.TierThresholds())
			fmt.Fprintf(c.ui.out, "%s  %s\n", tierColor(tier), tier.Label())
			return nil
		},
	}
}
