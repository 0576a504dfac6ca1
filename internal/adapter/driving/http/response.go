package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// Webhook outcomes reported in WebhookResponse.Status.
const (
	webhookProcessed = "processed"
	webhookIgnored   = "ignored"
	webhookDuplicate = "duplicate"
)

// WebhookResponse is the body returned to GitHub for every delivery.
type WebhookResponse struct {
	Status string `json:"status"`
	Event  string `json:"event,omitempty"`
}

// HealthResponse is the JSON representation of the health check.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// LabelResponse is the JSON representation of a catalog label.
type LabelResponse struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// RepoResponse is the JSON representation of a tracked repository.
type RepoResponse struct {
	FullName       string `json:"full_name"`
	Owner          string `json:"owner"`
	Name           string `json:"name"`
	InstallationID int64  `json:"installation_id"`
	AddedAt        string `json:"added_at"`
}

// SweepRunResponse is the JSON representation of one sweep run.
type SweepRunResponse struct {
	ID         string `json:"id"`
	Repository string `json:"repository"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	DurationMS int64  `json:"duration_ms"`
	Examined   int    `json:"examined"`
	Relabeled  int    `json:"relabeled"`
	Unchanged  int    `json:"unchanged"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

func toLabelResponse(l model.Label) LabelResponse {
	return LabelResponse{Name: l.Name, Color: l.Color, Description: l.Description}
}

func toRepoResponse(repo model.Repository) RepoResponse {
	return RepoResponse{
		FullName:       repo.FullName,
		Owner:          repo.Owner,
		Name:           repo.Name,
		InstallationID: repo.InstallationID,
		AddedAt:        repo.AddedAt.UTC().Format(time.RFC3339),
	}
}

func toSweepRunResponse(run model.SweepRun) SweepRunResponse {
	return SweepRunResponse{
		ID:         run.ID,
		Repository: run.RepoFullName,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: run.FinishedAt.UTC().Format(time.RFC3339),
		DurationMS: run.Duration().Milliseconds(),
		Examined:   run.Examined,
		Relabeled:  run.Relabeled,
		Unchanged:  run.Unchanged,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		Error:      run.Error,
	}
}
