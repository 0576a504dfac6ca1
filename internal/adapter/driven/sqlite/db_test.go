package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_FileWithWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "stalebot.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, path, db.Path())

	var mode string
	require.NoError(t, db.Writer.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	require.NoError(t, RunMigrations(db.Writer))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(db.Writer))

	_, err = NewRepoRepo(db).ListAll(ctx)
	require.NoError(t, err)
}
