package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
	"github.com/ericfisherdev/stalebot/internal/instrumentation"
)

// labelWriter performs label writes against a tracker. It swallows the two
// expected failures (removing an absent label, creating an existing one) and
// returns everything else.
type labelWriter struct {
	tracker driven.IssueTracker
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// apply performs removals before additions. If a write fails halfway the issue
// is left with fewer labels rather than two from the same family.
func (w labelWriter) apply(ctx context.Context, issue model.Issue, change LabelChange) error {
	for _, label := range change.Remove {
		if err := w.remove(ctx, issue.Repo, issue.Number, label); err != nil {
			return err
		}
	}
	if len(change.Add) > 0 {
		if err := w.add(ctx, issue.Repo, issue.Number, change.Add...); err != nil {
			return err
		}
	}
	return nil
}

func (w labelWriter) add(ctx context.Context, repo model.RepoRef, number int, labels ...string) error {
	if err := w.tracker.AddLabels(ctx, repo, number, labels...); err != nil {
		w.metrics.RecordLabelOperation(ctx, "add", instrumentation.ResultError)
		return fmt.Errorf("adding labels %v to %s#%d: %w", labels, repo, number, err)
	}
	w.metrics.RecordLabelOperation(ctx, "add", instrumentation.ResultSuccess)
	w.logger.Debug("labels added", "repo", repo.FullName(), "number", number, "labels", labels)
	return nil
}

func (w labelWriter) remove(ctx context.Context, repo model.RepoRef, number int, label string) error {
	err := w.tracker.RemoveLabel(ctx, repo, number, label)
	switch {
	case errors.Is(err, driven.ErrNotFound):
		w.metrics.RecordLabelOperation(ctx, "remove", instrumentation.ResultIgnored)
		w.logger.Debug("label already absent", "repo", repo.FullName(), "number", number, "label", label)
		return nil
	case err != nil:
		w.metrics.RecordLabelOperation(ctx, "remove", instrumentation.ResultError)
		return fmt.Errorf("removing label %s from %s#%d: %w", label, repo, number, err)
	}
	w.metrics.RecordLabelOperation(ctx, "remove", instrumentation.ResultSuccess)
	w.logger.Debug("label removed", "repo", repo.FullName(), "number", number, "label", label)
	return nil
}

func (w labelWriter) create(ctx context.Context, repo model.RepoRef, label model.Label) error {
	err := w.tracker.CreateLabel(ctx, repo, label)
	switch {
	case errors.Is(err, driven.ErrAlreadyExists):
		w.metrics.RecordLabelOperation(ctx, "create", instrumentation.ResultIgnored)
		w.logger.Debug("label already exists", "repo", repo.FullName(), "label", label.Name)
		return nil
	case err != nil:
		w.metrics.RecordLabelOperation(ctx, "create", instrumentation.ResultError)
		return fmt.Errorf("creating label %s in %s: %w", label.Name, repo, err)
	}
	w.metrics.RecordLabelOperation(ctx, "create", instrumentation.ResultSuccess)
	return nil
}
