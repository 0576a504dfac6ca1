package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

// DeliveryStore defines the driven port for the webhook delivery ledger used
// to drop redelivered webhooks that were already processed.
type DeliveryStore interface {
	Seen(ctx context.Context, deliveryID string) (bool, error)
	Record(ctx context.Context, delivery model.Delivery) error
	// PruneBefore deletes deliveries received before cutoff and returns how many
	// were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
