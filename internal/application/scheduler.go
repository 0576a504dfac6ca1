package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
	"github.com/ericfisherdev/stalebot/internal/instrumentation"
)

// defaultDeliveryRetention is how long processed webhook delivery ids are
// kept for duplicate detection.
const defaultDeliveryRetention = 7 * 24 * time.Hour

// sweepRequest represents a manual sweep trigger.
type sweepRequest struct {
	repoFullName string
	done         chan sweepReply
}

type sweepReply struct {
	run model.SweepRun
	err error
}

// Scheduler runs the escalation sweep over every tracked repository on a
// fixed interval and serves manual sweep requests. All sweeps run on the
// scheduler goroutine, so a manual and a periodic sweep never overlap.
type Scheduler struct {
	router        *EventRouter
	trackers      *TrackerProvider
	repoStore     driven.RepoStore
	runStore      driven.SweepRunStore
	deliveryStore driven.DeliveryStore
	installations driven.InstallationSource
	staticRepos   []model.RepoRef
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
	interval      time.Duration
	retention     time.Duration
	now           func() time.Time
	entropy       io.Reader
	requests      chan sweepRequest
	stopped       chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInstallationSource makes the scheduler rebuild the tracked-repository
// registry from the app's installations on start.
func WithInstallationSource(src driven.InstallationSource) SchedulerOption {
	return func(s *Scheduler) {
		s.installations = src
	}
}

// WithStaticRepos tracks a fixed set of repositories under installation 0.
// Used in token mode where there are no installations to enumerate.
func WithStaticRepos(repos []model.RepoRef) SchedulerOption {
	return func(s *Scheduler) {
		s.staticRepos = repos
	}
}

// WithDeliveryRetention sets how long webhook delivery ids are kept.
func WithDeliveryRetention(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSchedulerClock overrides the time source (used by tests).
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a Scheduler with all required dependencies.
func NewScheduler(
	router *EventRouter,
	trackers *TrackerProvider,
	repoStore driven.RepoStore,
	runStore driven.SweepRunStore,
	deliveryStore driven.DeliveryStore,
	metrics *instrumentation.Metrics,
	logger *slog.Logger,
	interval time.Duration,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		router:        router,
		trackers:      trackers,
		repoStore:     repoStore,
		runStore:      runStore,
		deliveryStore: deliveryStore,
		metrics:       metrics,
		logger:        logger,
		interval:      interval,
		retention:     defaultDeliveryRetention,
		now:           time.Now,
		entropy:       ulid.Monotonic(rand.Reader, 0),
		requests:      make(chan sweepRequest),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start synchronises the repository registry, runs an immediate sweep, then
// sweeps on the configured interval. It also listens for manual sweep
// requests. Start blocks until the context is canceled and must be called
// at most once.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)

	if err := s.SyncRepos(ctx); err != nil {
		s.logger.Error("repository sync failed", "error", err)
	}

	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep scheduler stopped")
			return
		case <-ticker.C:
			s.cycle(ctx)
		case req := <-s.requests:
			run, err := s.handleRequest(ctx, req.repoFullName)
			req.done <- sweepReply{run: run, err: err}
		}
	}
}

// Done is closed once Start has returned, after any in-flight sweep has
// finished writing.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}

// SweepRepo triggers a sweep of one tracked repository, bypassing the
// interval. It blocks until the sweep completes or the context is canceled.
// The run is returned even when the sweep reported errors.
func (s *Scheduler) SweepRepo(ctx context.Context, repoFullName string) (model.SweepRun, error) {
	done := make(chan sweepReply, 1)
	req := sweepRequest{repoFullName: repoFullName, done: done}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return model.SweepRun{}, ctx.Err()
	}

	select {
	case reply := <-done:
		return reply.run, reply.err
	case <-ctx.Done():
		return model.SweepRun{}, ctx.Err()
	}
}

// SyncRepos brings the tracked-repository registry in line with what the app
// can access. Repositories seen for the first time get their labels
// provisioned. Repositories of an installation whose listing failed are
// left alone.
func (s *Scheduler) SyncRepos(ctx context.Context) error {
	if s.installations == nil {
		return s.trackStatic(ctx)
	}

	installs, err := s.installations.ListInstallations(ctx)
	if err != nil {
		return fmt.Errorf("listing installations: %w", err)
	}

	tracked, err := s.repoStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing tracked repositories: %w", err)
	}
	known := make(map[string]model.Repository, len(tracked))
	for _, r := range tracked {
		known[r.FullName] = r
	}

	var errs []error
	seen := make(map[string]bool)
	failedInstalls := make(map[int64]bool)
	var added int

	for _, inst := range installs {
		tracker, err := s.trackers.Tracker(ctx, inst.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("tracker for installation %d: %w", inst.ID, err))
			failedInstalls[inst.ID] = true
			continue
		}

		refs, err := tracker.ListInstallationRepos(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("listing repositories of installation %d: %w", inst.ID, err))
			failedInstalls[inst.ID] = true
			continue
		}

		var fresh []model.RepoRef
		for _, ref := range refs {
			seen[ref.FullName()] = true
			if prev, ok := known[ref.FullName()]; ok && prev.InstallationID == inst.ID {
				continue
			}
			if err := s.repoStore.Upsert(ctx, model.NewRepository(ref, inst.ID)); err != nil {
				errs = append(errs, fmt.Errorf("tracking %s: %w", ref, err))
				continue
			}
			if _, ok := known[ref.FullName()]; !ok {
				fresh = append(fresh, ref)
			}
		}

		if len(fresh) > 0 {
			added += len(fresh)
			if err := s.router.Provision(ctx, inst.ID, fresh); err != nil {
				errs = append(errs, err)
			}
		}
	}

	var removed int
	for name, r := range known {
		if seen[name] || failedInstalls[r.InstallationID] {
			continue
		}
		if err := s.repoStore.Remove(ctx, name); err != nil && !errors.Is(err, driven.ErrRepoNotFound) {
			errs = append(errs, fmt.Errorf("untracking %s: %w", name, err))
			continue
		}
		removed++
	}

	s.logger.Info("repositories synchronised",
		"installations", len(installs),
		"tracked", len(seen),
		"added", added,
		"removed", removed,
	)

	return errors.Join(errs...)
}

func (s *Scheduler) trackStatic(ctx context.Context) error {
	var errs []error
	for _, ref := range s.staticRepos {
		if err := s.repoStore.Upsert(ctx, model.NewRepository(ref, 0)); err != nil {
			errs = append(errs, fmt.Errorf("tracking %s: %w", ref, err))
		}
	}
	return errors.Join(errs...)
}

// cycle sweeps every tracked repository and prunes old deliveries.
func (s *Scheduler) cycle(ctx context.Context) {
	if err := s.sweepAll(ctx); err != nil {
		s.logger.Error("sweep cycle failed", "error", err)
	}
	s.pruneDeliveries(ctx)
}

// sweepAll sweeps tracked repositories one after another.
func (s *Scheduler) sweepAll(ctx context.Context) error {
	start := s.now()

	repos, err := s.repoStore.ListAll(ctx)
	if err != nil {
		return err
	}

	var sweepErrors int
	for _, repo := range repos {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.sweepOne(ctx, repo); err != nil {
			s.logger.Error("repo sweep failed", "repo", repo.FullName, "error", err)
			sweepErrors++
		}
	}

	s.logger.Info("sweep cycle complete",
		"repos", len(repos),
		"errors", sweepErrors,
		"duration", s.now().Sub(start).Round(time.Millisecond),
	)

	return nil
}

// sweepOne sweeps a repository and records the run.
func (s *Scheduler) sweepOne(ctx context.Context, repo model.Repository) (model.SweepRun, error) {
	started := s.now()
	result, sweepErr := s.router.Sweep(ctx, model.SweepTick{
		InstallationID: repo.InstallationID,
		Repo:           repo.Ref(),
	})
	finished := s.now()

	run := model.SweepRun{
		ID:           ulid.MustNew(ulid.Timestamp(started), s.entropy).String(),
		RepoFullName: repo.FullName,
		StartedAt:    started,
		FinishedAt:   finished,
		Examined:     len(result.Issues),
		Relabeled:    result.Count(model.OutcomeRelabeled),
		Unchanged:    result.Count(model.OutcomeUnchanged),
		Skipped:      result.Count(model.OutcomeSkipped),
		Failed:       result.Count(model.OutcomeFailed),
	}

	status := instrumentation.ResultSuccess
	if sweepErr != nil {
		run.Error = sweepErr.Error()
		status = instrumentation.ResultError
	}
	s.metrics.RecordSweepDuration(ctx, status, run.Duration())

	if err := s.runStore.Record(ctx, run); err != nil {
		s.logger.Error("recording sweep run failed", "repo", repo.FullName, "run_id", run.ID, "error", err)
	}

	return run, sweepErr
}

// pruneDeliveries drops delivery ids older than the retention window.
func (s *Scheduler) pruneDeliveries(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.deliveryStore.PruneBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("pruning webhook deliveries failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("webhook deliveries pruned", "count", n, "cutoff", cutoff)
	}
}

// handleRequest dispatches a manual sweep request.
func (s *Scheduler) handleRequest(ctx context.Context, repoFullName string) (model.SweepRun, error) {
	repo, err := s.repoStore.GetByFullName(ctx, repoFullName)
	if err != nil {
		return model.SweepRun{}, fmt.Errorf("looking up %s: %w", repoFullName, err)
	}
	if repo == nil {
		return model.SweepRun{}, fmt.Errorf("%w: %s", driven.ErrRepoNotFound, repoFullName)
	}
	return s.sweepOne(ctx, *repo)
}
