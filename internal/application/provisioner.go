package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
	"github.com/ericfisherdev/stalebot/internal/instrumentation"
)

// Provisioner creates the bot's labels on repositories.
type Provisioner struct {
	catalog model.LabelCatalog
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewProvisioner creates a Provisioner for the given catalog.
func NewProvisioner(catalog model.LabelCatalog, metrics *instrumentation.Metrics, logger *slog.Logger) *Provisioner {
	return &Provisioner{catalog: catalog, metrics: metrics, logger: logger}
}

// ProvisionRepos creates every catalog label in every repository. Existing
// labels are left alone. Every repository is attempted even when an earlier
// one fails; failures are joined into the returned error.
func (p *Provisioner) ProvisionRepos(ctx context.Context, tracker driven.IssueTracker, repos []model.RepoRef) error {
	w := labelWriter{tracker: tracker, metrics: p.metrics, logger: p.logger}

	var errs []error
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var failed int
		for _, label := range p.catalog.All() {
			if err := w.create(ctx, repo, label); err != nil {
				errs = append(errs, err)
				failed++
			}
		}

		p.logger.Info("labels provisioned",
			"repo", repo.FullName(),
			"labels", p.catalog.Len(),
			"failed", failed,
		)
	}

	return errors.Join(errs...)
}
