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

// TriageService keeps the waiting-for label in step with who spoke last.
type TriageService struct {
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewTriageService creates a TriageService. metrics may be nil.
func NewTriageService(metrics *instrumentation.Metrics, logger *slog.Logger) *TriageService {
	return &TriageService{metrics: metrics, logger: logger}
}

// HandleItemOpened labels a newly opened issue or pull request as waiting for
// a maintainer.
func (s *TriageService) HandleItemOpened(ctx context.Context, tracker driven.IssueTracker, issue model.Issue) error {
	w := s.writer(tracker)
	if err := w.add(ctx, issue.Repo, issue.Number, model.LabelWaitingForMaintainer); err != nil {
		return err
	}

	s.logger.Info("new item labeled",
		"repo", issue.Repo.FullName(),
		"number", issue.Number,
		"pull_request", issue.IsPullRequest,
		"label", model.LabelWaitingForMaintainer,
	)
	return nil
}

// HandleParticipantActivity flips the waiting-for label after a comment or
// review. The author responding hands the item to maintainers; a maintainer
// responding hands it back. Anyone else is ignored.
//
// The returned role says how the actor was classified. A failed permission
// lookup returns an error and leaves the labels untouched; a user GitHub
// cannot find counts as RoleOther.
func (s *TriageService) HandleParticipantActivity(ctx context.Context, tracker driven.IssueTracker, ev model.ParticipantActivity) (Role, error) {
	role, err := s.classify(ctx, tracker, ev)
	if err != nil {
		return RoleOther, err
	}

	change := PlanWaitingFor(role, ev.Issue.Labels)
	if change.IsEmpty() {
		s.logger.Debug("activity from non-maintainer ignored",
			"repo", ev.Issue.Repo.FullName(),
			"number", ev.Issue.Number,
			"actor", ev.Actor.Login,
		)
		return role, nil
	}

	if err := s.writer(tracker).apply(ctx, ev.Issue, change); err != nil {
		return role, err
	}

	s.logger.Info("waiting-for label updated",
		"repo", ev.Issue.Repo.FullName(),
		"number", ev.Issue.Number,
		"actor", ev.Actor.Login,
		"role", role.String(),
		"source", string(ev.Source),
		"added", change.Add,
		"removed", change.Remove,
	)
	return role, nil
}

// classify decides whether the actor is the author, a maintainer or neither.
// The author check needs no remote call and wins even when the author also
// has write access.
func (s *TriageService) classify(ctx context.Context, tracker driven.IssueTracker, ev model.ParticipantActivity) (Role, error) {
	if ev.Actor.SameAs(ev.Issue.Author) {
		return RoleAuthor, nil
	}

	perm, err := tracker.PermissionLevel(ctx, ev.Issue.Repo, ev.Actor.Login)
	if errors.Is(err, driven.ErrNotFound) {
		// GitHub answers 404 for accounts it cannot resolve as collaborators
		// (deleted users, some bots); they hold no permission.
		s.logger.Debug("permission lookup found no user, treating as other",
			"repo", ev.Issue.Repo.FullName(), "actor", ev.Actor.Login)
		return RoleOther, nil
	}
	if err != nil {
		return RoleOther, fmt.Errorf("looking up permission of %s on %s: %w", ev.Actor.Login, ev.Issue.Repo, err)
	}

	if perm.IsMaintainer() {
		return RoleMaintainer, nil
	}
	return RoleOther, nil
}

func (s *TriageService) writer(tracker driven.IssueTracker) labelWriter {
	return labelWriter{tracker: tracker, metrics: s.metrics, logger: s.logger}
}
