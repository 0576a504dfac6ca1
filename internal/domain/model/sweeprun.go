package model

import "time"

// SweepOutcome is what the sweep did to a single issue.
type SweepOutcome string

const (
	OutcomeSkipped   SweepOutcome = "skipped"   // No comment from the author.
	OutcomeUnchanged SweepOutcome = "unchanged" // Already carries the right status label.
	OutcomeRelabeled SweepOutcome = "relabeled"
	OutcomeFailed    SweepOutcome = "failed"
)

// IssueSweep records the sweep result for one issue.
type IssueSweep struct {
	Number  int
	Tier    Tier // Empty when skipped or failed.
	Outcome SweepOutcome
	AgeDays float64
}

// SweepResult aggregates the per-issue results for one repository.
type SweepResult struct {
	Repo   RepoRef
	Issues []IssueSweep
}

// Count returns how many issues ended with the given outcome.
func (r SweepResult) Count(outcome SweepOutcome) int {
	n := 0
	for _, is := range r.Issues {
		if is.Outcome == outcome {
			n++
		}
	}
	return n
}

// SweepRun is the persisted summary of one repository sweep.
type SweepRun struct {
	ID           string
	RepoFullName string
	StartedAt    time.Time
	FinishedAt   time.Time
	Examined     int
	Relabeled    int
	Unchanged    int
	Skipped      int
	Failed       int
	Error        string
}

// Duration returns how long the sweep took.
func (r SweepRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
