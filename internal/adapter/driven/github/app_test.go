package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/ericfisherdev/stalebot/internal/adapter/driven/github"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

func TestApp_InstallationTrackerExchangesTokenOnce(t *testing.T) {
	key := generateKey(t)
	var exchanges atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /app/installations/42/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !assert.True(t, strings.HasPrefix(auth, "Bearer ")) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		claims := parseClaims(t, key, strings.TrimPrefix(auth, "Bearer "))
		assert.Equal(t, "123", claims.Issuer)

		exchanges.Add(1)
		writeJSON(w, http.StatusCreated, map[string]string{
			"token":      "ghs_installation",
			"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("GET /repos/octo/widgets/collaborators/bob/permission", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token ghs_installation", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"permission": "write"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	app, err := ghAdapter.NewApp(ghAdapter.AppConfig{
		AppID:      123,
		PrivateKey: pkcs1PEM(key),
		BaseURL:    server.URL,
		Transport:  server.Client().Transport,
	})
	require.NoError(t, err)

	tracker, err := app.Tracker(context.Background(), 42)
	require.NoError(t, err)

	for range 2 {
		perm, err := tracker.PermissionLevel(context.Background(), repo, "bob")
		require.NoError(t, err)
		assert.Equal(t, model.PermissionWrite, perm)
	}

	assert.Equal(t, int32(1), exchanges.Load())
}

func TestApp_ListInstallations(t *testing.T) {
	key := generateKey(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /app/installations", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 42, "account": map[string]string{"login": "octo"}},
			{"id": 7, "account": map[string]string{"login": "acme"}},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	app, err := ghAdapter.NewApp(ghAdapter.AppConfig{
		AppID:      123,
		PrivateKey: pkcs8PEM(t, key),
		BaseURL:    server.URL,
		Transport:  server.Client().Transport,
	})
	require.NoError(t, err)

	installs, err := app.ListInstallations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Installation{
		{ID: 42, Account: "octo"},
		{ID: 7, Account: "acme"},
	}, installs)
}

func TestApp_TrackerRejectsInvalidInstallation(t *testing.T) {
	app, err := ghAdapter.NewApp(ghAdapter.AppConfig{AppID: 123, PrivateKey: pkcs1PEM(generateKey(t))})
	require.NoError(t, err)

	_, err = app.Tracker(context.Background(), 0)
	require.Error(t, err)
}

func TestTokenTrackerFactory_SharedClient(t *testing.T) {
	f, err := ghAdapter.NewTokenTrackerFactory("ghp_test", "")
	require.NoError(t, err)

	a, err := f.Tracker(context.Background(), 1)
	require.NoError(t, err)
	b, err := f.Tracker(context.Background(), 2)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = ghAdapter.NewTokenTrackerFactory("", "")
	require.Error(t, err)
}
