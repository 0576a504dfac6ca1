package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

func makeRepo(owner, name string, installationID int64) model.Repository {
	r := model.NewRepository(model.RepoRef{Owner: owner, Name: name}, installationID)
	r.AddedAt = baseTime
	return r
}

func TestRepoRepo_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makeRepo("octocat", "hello-world", 42)))

	got, err := repo.GetByFullName(ctx, "octocat/hello-world")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "octocat/hello-world", got.FullName)
	assert.Equal(t, "octocat", got.Owner)
	assert.Equal(t, "hello-world", got.Name)
	assert.Equal(t, int64(42), got.InstallationID)
	assert.True(t, baseTime.Equal(got.AddedAt))
}

func TestRepoRepo_Upsert_MovesInstallationKeepsAddedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makeRepo("octocat", "hello-world", 42)))

	moved := makeRepo("octocat", "hello-world", 7)
	moved.AddedAt = baseTime.Add(48 * time.Hour)
	require.NoError(t, repo.Upsert(ctx, moved))

	got, err := repo.GetByFullName(ctx, "octocat/hello-world")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.InstallationID)
	assert.True(t, baseTime.Equal(got.AddedAt))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepoRepo_Upsert_DefaultsAddedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	r := model.NewRepository(model.RepoRef{Owner: "octocat", Name: "spoon-knife"}, 1)
	require.NoError(t, repo.Upsert(ctx, r))

	got, err := repo.GetByFullName(ctx, "octocat/spoon-knife")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.AddedAt.IsZero())
}

func TestRepoRepo_FullNameIgnoresCase(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makeRepo("octo", "widgets", 1)))

	got, err := repo.GetByFullName(ctx, "Octo/Widgets")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "octo/widgets", got.FullName)

	require.NoError(t, repo.Upsert(ctx, makeRepo("Octo", "Widgets", 2)))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Octo/Widgets", all[0].FullName)
	assert.Equal(t, int64(2), all[0].InstallationID)

	require.NoError(t, repo.Remove(ctx, "OCTO/widgets"))

	got, err = repo.GetByFullName(ctx, "octo/widgets")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepoRepo_Remove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makeRepo("octocat", "hello-world", 1)))

	require.NoError(t, repo.Remove(ctx, "octocat/hello-world"))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepoRepo_Remove_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)

	err := repo.Remove(context.Background(), "nonexistent/repo")
	require.ErrorIs(t, err, driven.ErrRepoNotFound)
}

func TestRepoRepo_RemoveInstallation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makeRepo("octo", "a", 42)))
	require.NoError(t, repo.Upsert(ctx, makeRepo("octo", "b", 42)))
	require.NoError(t, repo.Upsert(ctx, makeRepo("acme", "c", 7)))

	n, err := repo.RemoveInstallation(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "acme/c", all[0].FullName)

	n, err = repo.RemoveInstallation(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepoRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makeRepo("zeta", "repo", 1)))
	require.NoError(t, repo.Upsert(ctx, makeRepo("alpha", "repo", 1)))
	require.NoError(t, repo.Upsert(ctx, makeRepo("mid", "repo", 2)))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, "alpha/repo", all[0].FullName)
	assert.Equal(t, "mid/repo", all[1].FullName)
	assert.Equal(t, "zeta/repo", all[2].FullName)
}

func TestRepoRepo_GetByFullName_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)

	got, err := repo.GetByFullName(context.Background(), "nonexistent/repo")
	require.NoError(t, err)
	assert.Nil(t, got)
}
