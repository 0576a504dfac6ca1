package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
	"github.com/ericfisherdev/stalebot/internal/instrumentation"
)

// defaultSweepConcurrency bounds how many issues of one repository are
// processed at the same time.
const defaultSweepConcurrency = 4

// SweepService recomputes the status label of every issue waiting for a
// maintainer, based on how long ago the author last commented.
type SweepService struct {
	thresholds  model.TierThresholds
	concurrency int
	now         func() time.Time
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
}

// SweepOption configures a SweepService.
type SweepOption func(*SweepService)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) SweepOption {
	return func(s *SweepService) {
		s.now = now
	}
}

// WithConcurrency sets how many issues are processed in parallel. Values
// below one are ignored.
func WithConcurrency(n int) SweepOption {
	return func(s *SweepService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSweepService creates a SweepService with the given tier thresholds.
func NewSweepService(thresholds model.TierThresholds, metrics *instrumentation.Metrics, logger *slog.Logger, opts ...SweepOption) *SweepService {
	s := &SweepService{
		thresholds:  thresholds,
		concurrency: defaultSweepConcurrency,
		now:         time.Now,
		metrics:     metrics,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepRepo examines every open issue labeled waiting-for/maintainer in repo.
// Per-issue failures do not stop the other issues; they are joined into the
// returned error and reported as failed in the result.
func (s *SweepService) SweepRepo(ctx context.Context, tracker driven.IssueTracker, repo model.RepoRef) (model.SweepResult, error) {
	result := model.SweepResult{Repo: repo}

	issues, err := tracker.ListOpenIssuesWithLabel(ctx, repo, model.LabelWaitingForMaintainer)
	if err != nil {
		return result, fmt.Errorf("listing issues waiting for maintainer in %s: %w", repo, err)
	}

	s.logger.Info("running escalation sweep", "repo", repo.FullName(), "issues", len(issues))

	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, issue := range issues {
		g.Go(func() error {
			outcome, err := s.sweepIssue(ctx, tracker, issue)

			mu.Lock()
			defer mu.Unlock()
			result.Issues = append(result.Issues, outcome)
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Issues, func(i, j int) bool {
		return result.Issues[i].Number < result.Issues[j].Number
	})

	s.logger.Info("escalation sweep complete",
		"repo", repo.FullName(),
		"examined", len(result.Issues),
		"relabeled", result.Count(model.OutcomeRelabeled),
		"unchanged", result.Count(model.OutcomeUnchanged),
		"skipped", result.Count(model.OutcomeSkipped),
		"failed", result.Count(model.OutcomeFailed),
	)

	return result, errors.Join(errs...)
}

// sweepIssue handles a single issue.
func (s *SweepService) sweepIssue(ctx context.Context, tracker driven.IssueTracker, issue model.Issue) (model.IssueSweep, error) {
	out := model.IssueSweep{Number: issue.Number}

	if err := ctx.Err(); err != nil {
		out.Outcome = model.OutcomeFailed
		return out, err
	}

	comment, err := tracker.LastCommentBy(ctx, issue.Repo, issue.Number, issue.Author)
	if err != nil {
		out.Outcome = model.OutcomeFailed
		s.metrics.RecordSweepIssue(ctx, string(out.Outcome), "")
		return out, fmt.Errorf("finding last author comment on %s#%d: %w", issue.Repo, issue.Number, err)
	}

	if comment == nil {
		out.Outcome = model.OutcomeSkipped
		s.metrics.RecordSweepIssue(ctx, string(out.Outcome), "")
		s.logger.Debug("no author comment, skipping", "repo", issue.Repo.FullName(), "number", issue.Number)
		return out, nil
	}

	out.AgeDays = ageInDays(comment.CreatedAt, s.now())
	out.Tier = ClassifyTier(out.AgeDays, s.thresholds)

	change := PlanStatus(out.Tier, issue.Labels)
	if change.IsEmpty() {
		out.Outcome = model.OutcomeUnchanged
		s.metrics.RecordSweepIssue(ctx, string(out.Outcome), string(out.Tier))
		return out, nil
	}

	w := labelWriter{tracker: tracker, metrics: s.metrics, logger: s.logger}
	if err := w.apply(ctx, issue, change); err != nil {
		out.Outcome = model.OutcomeFailed
		s.metrics.RecordSweepIssue(ctx, string(out.Outcome), string(out.Tier))
		return out, err
	}

	out.Outcome = model.OutcomeRelabeled
	s.metrics.RecordSweepIssue(ctx, string(out.Outcome), string(out.Tier))
	s.logger.Info("status label updated",
		"repo", issue.Repo.FullName(),
		"number", issue.Number,
		"url", issue.URL,
		"age_days", fmt.Sprintf("%.1f", out.AgeDays),
		"tier", string(out.Tier),
		"removed", change.Remove,
	)
	return out, nil
}
