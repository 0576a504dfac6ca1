// Package httphandler is the HTTP driving adapter: the GitHub webhook
// receiver and the operator REST API.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

const (
	defaultSweepLimit = 20
	maxSweepLimit     = 200
)

// RepoSweeper runs an on-demand sweep of one tracked repository.
type RepoSweeper interface {
	SweepRepo(ctx context.Context, repoFullName string) (model.SweepRun, error)
}

// Handler is the HTTP driving adapter that serves the operator REST API.
type Handler struct {
	repoStore driven.RepoStore
	runStore  driven.SweepRunStore
	catalog   model.LabelCatalog
	sweeper   RepoSweeper
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	repoStore driven.RepoStore,
	runStore driven.SweepRunStore,
	catalog model.LabelCatalog,
	sweeper RepoSweeper,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		repoStore: repoStore,
		runStore:  runStore,
		catalog:   catalog,
		sweeper:   sweeper,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. metrics may be nil.
func NewServeMux(h *Handler, webhooks *WebhookHandler, metrics http.Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /webhooks", webhooks)

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/labels", h.ListLabels)
	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("POST /api/v1/repos/{owner}/{repo}/sweep", h.SweepRepo)
	mux.HandleFunc("GET /api/v1/sweeps", h.ListSweeps)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListLabels returns the label catalog the bot manages.
func (h *Handler) ListLabels(w http.ResponseWriter, _ *http.Request) {
	labels := h.catalog.All()
	resp := make([]LabelResponse, 0, len(labels))
	for _, l := range labels {
		resp = append(resp, toLabelResponse(l))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRepos returns all tracked repositories.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repoStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list repos", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SweepRepo sweeps one tracked repository now and returns the recorded run.
// A sweep that finished with per-issue failures still answers 200; the run's
// error field carries the details.
func (h *Handler) SweepRepo(w http.ResponseWriter, r *http.Request) {
	fullName := r.PathValue("owner") + "/" + r.PathValue("repo")
	if !isValidRepoName(fullName) {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	}

	run, err := h.sweeper.SweepRepo(r.Context(), fullName)
	switch {
	case errors.Is(err, driven.ErrRepoNotFound):
		writeError(w, http.StatusNotFound, "repository not tracked")
		return
	case err != nil && run.ID == "":
		h.logger.Error("manual sweep failed", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	case err != nil:
		h.logger.Warn("manual sweep finished with errors", "repo", fullName, "run_id", run.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, toSweepRunResponse(run))
}

// ListSweeps returns the most recent sweep runs, newest first.
func (h *Handler) ListSweeps(w http.ResponseWriter, r *http.Request) {
	limit := defaultSweepLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSweepLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxSweepLimit))
			return
		}
		limit = n
	}

	runs, err := h.runStore.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sweep runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SweepRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toSweepRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// isValidRepoName validates that name is in owner/repo format where each part
// contains only alphanumeric characters, hyphens, dots, or underscores.
func isValidRepoName(name string) bool {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 2 {
		return false
	}

	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, ch := range part {
			if !isValidRepoChar(ch) {
				return false
			}
		}
	}

	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
