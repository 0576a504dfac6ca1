package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// ErrUnsupportedEvent is returned by Dispatch for event types it has no route for.
var ErrUnsupportedEvent = errors.New("unsupported event")

// EventRouter dispatches repository events to the service that handles them.
type EventRouter struct {
	trackers    *TrackerProvider
	repoStore   driven.RepoStore
	triage      *TriageService
	sweeper     *SweepService
	provisioner *Provisioner
	logger      *slog.Logger
}

// NewEventRouter creates an EventRouter with all required dependencies.
func NewEventRouter(
	trackers *TrackerProvider,
	repoStore driven.RepoStore,
	triage *TriageService,
	sweeper *SweepService,
	provisioner *Provisioner,
	logger *slog.Logger,
) *EventRouter {
	return &EventRouter{
		trackers:    trackers,
		repoStore:   repoStore,
		triage:      triage,
		sweeper:     sweeper,
		provisioner: provisioner,
		logger:      logger,
	}
}

// Dispatch routes a single event. Each call is independent of every other.
func (r *EventRouter) Dispatch(ctx context.Context, event model.Event) error {
	switch ev := event.(type) {
	case model.ItemOpened:
		tracker, err := r.trackers.Tracker(ctx, ev.InstallationID)
		if err != nil {
			return fmt.Errorf("tracker for installation %d: %w", ev.InstallationID, err)
		}
		return r.triage.HandleItemOpened(ctx, tracker, ev.Issue)

	case model.ParticipantActivity:
		tracker, err := r.trackers.Tracker(ctx, ev.InstallationID)
		if err != nil {
			return fmt.Errorf("tracker for installation %d: %w", ev.InstallationID, err)
		}
		_, err = r.triage.HandleParticipantActivity(ctx, tracker, ev)
		return err

	case model.InstallationChanged:
		return r.handleInstallation(ctx, ev)

	case model.SweepTick:
		_, err := r.Sweep(ctx, ev)
		return err

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedEvent, event)
	}
}

// Sweep runs the escalation sweep for the repository named by tick.
func (r *EventRouter) Sweep(ctx context.Context, tick model.SweepTick) (model.SweepResult, error) {
	tracker, err := r.trackers.Tracker(ctx, tick.InstallationID)
	if err != nil {
		return model.SweepResult{Repo: tick.Repo}, fmt.Errorf("tracker for installation %d: %w", tick.InstallationID, err)
	}
	return r.sweeper.SweepRepo(ctx, tracker, tick.Repo)
}

// Provision creates the label catalog in the given repositories.
func (r *EventRouter) Provision(ctx context.Context, installationID int64, repos []model.RepoRef) error {
	tracker, err := r.trackers.Tracker(ctx, installationID)
	if err != nil {
		return fmt.Errorf("tracker for installation %d: %w", installationID, err)
	}
	return r.provisioner.ProvisionRepos(ctx, tracker, repos)
}

// handleInstallation keeps the tracked-repository registry in step with the
// installation and provisions labels on newly added repositories.
func (r *EventRouter) handleInstallation(ctx context.Context, ev model.InstallationChanged) error {
	var errs []error

	if ev.Deleted() {
		removed, err := r.repoStore.RemoveInstallation(ctx, ev.InstallationID)
		if err != nil {
			errs = append(errs, fmt.Errorf("untracking installation %d: %w", ev.InstallationID, err))
		}
		r.trackers.Forget(ev.InstallationID)
		r.logger.Info("installation removed",
			"installation_id", ev.InstallationID,
			"account", ev.Account,
			"repos_untracked", removed,
		)
		return errors.Join(errs...)
	}

	for _, ref := range ev.Removed {
		err := r.repoStore.Remove(ctx, ref.FullName())
		if err != nil && !errors.Is(err, driven.ErrRepoNotFound) {
			errs = append(errs, fmt.Errorf("untracking %s: %w", ref, err))
		}
	}

	for _, ref := range ev.Added {
		if err := r.repoStore.Upsert(ctx, model.NewRepository(ref, ev.InstallationID)); err != nil {
			errs = append(errs, fmt.Errorf("tracking %s: %w", ref, err))
		}
	}

	if len(ev.Added) > 0 {
		if err := r.Provision(ctx, ev.InstallationID, ev.Added); err != nil {
			errs = append(errs, err)
		}
	}

	r.logger.Info("installation repositories changed",
		"installation_id", ev.InstallationID,
		"account", ev.Account,
		"action", ev.Action,
		"added", len(ev.Added),
		"removed", len(ev.Removed),
	)

	return errors.Join(errs...)
}
