package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

func TestDeliveryRepo_RecordAndSeen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepo(db)
	ctx := context.Background()

	seen, err := repo.Seen(ctx, "abc-123")
	require.NoError(t, err)
	assert.False(t, seen)

	d := model.Delivery{ID: "abc-123", Event: "issues", Action: "opened", ReceivedAt: baseTime}
	require.NoError(t, repo.Record(ctx, d))

	seen, err = repo.Seen(ctx, "abc-123")
	require.NoError(t, err)
	assert.True(t, seen)

	// Recording the same delivery again is not an error.
	require.NoError(t, repo.Record(ctx, d))
}

func TestDeliveryRepo_PruneBefore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepo(db)
	ctx := context.Background()

	for i, id := range []string{"old-1", "old-2", "new-1"} {
		d := model.Delivery{
			ID:         id,
			Event:      "issue_comment",
			Action:     "created",
			ReceivedAt: baseTime.Add(time.Duration(i) * 24 * time.Hour),
		}
		require.NoError(t, repo.Record(ctx, d))
	}

	n, err := repo.PruneBefore(ctx, baseTime.Add(36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, want := range map[string]bool{"old-1": false, "old-2": false, "new-1": true} {
		seen, err := repo.Seen(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, seen, id)
	}
}

func TestDeliveryRepo_PruneComparesSubSecond(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, model.Delivery{ID: "a", Event: "issues", ReceivedAt: baseTime.Add(500 * time.Millisecond)}))

	n, err := repo.PruneBefore(ctx, baseTime.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
