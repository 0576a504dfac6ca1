package driven

import (
	"context"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

// SweepRunStore defines the driven port for sweep run history.
type SweepRunStore interface {
	Record(ctx context.Context, run model.SweepRun) error
	// ListRecent returns up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.SweepRun, error)
}
