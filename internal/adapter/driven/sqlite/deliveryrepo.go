package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DeliveryStore = (*DeliveryRepo)(nil)

// DeliveryRepo is the SQLite implementation of the DeliveryStore port interface.
type DeliveryRepo struct {
	db *DB
}

// NewDeliveryRepo creates a new DeliveryRepo backed by the given DB.
func NewDeliveryRepo(db *DB) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// Seen reports whether a delivery id was already recorded.
func (r *DeliveryRepo) Seen(ctx context.Context, deliveryID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM webhook_deliveries WHERE delivery_id = ?)`

	var exists bool
	if err := r.db.Reader.QueryRowContext(ctx, query, deliveryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check delivery %s: %w", deliveryID, err)
	}
	return exists, nil
}

// Record stores a processed delivery. Recording the same id twice is a no-op.
func (r *DeliveryRepo) Record(ctx context.Context, d model.Delivery) error {
	const query = `
		INSERT INTO webhook_deliveries (delivery_id, event, action, received_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(delivery_id) DO NOTHING`

	receivedAt := d.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err := r.db.Writer.ExecContext(ctx, query, d.ID, d.Event, d.Action, formatTime(receivedAt))
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", d.ID, err)
	}
	return nil
}

// PruneBefore deletes deliveries received before cutoff.
func (r *DeliveryRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM webhook_deliveries WHERE received_at < ?`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return rows, nil
}
