package main

import (
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stalebot/internal/application"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

func (c *cli) provisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision <owner/repo>",
		Short: "Create the stalebot labels on a repository",
		Long:  `Create every catalog label on the repository. Labels that already exist are left alone.`,
		Args:  cobra.ExactArgs(1),
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

			catalog := model.DefaultLabelCatalog()
			provisioner := application.NewProvisioner(catalog, nil, logger)
			if err := provisioner.ProvisionRepos(cmd.Context(), tracker, []model.RepoRef{ref}); err != nil {
				return err
			}

			c.ui.success("%d labels present on %s", catalog.Len(), ref.FullName())
			return nil
		},
	}
}
