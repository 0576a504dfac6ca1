package main

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stalebot/internal/config"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// stubTracker is a minimal in-memory IssueTracker.
type stubTracker struct {
	mu       sync.Mutex
	issues   []model.Issue
	comments map[int]*model.Comment
	created  []string
	added    map[int][]string
	removed  map[int][]string
}

func newStubTracker() *stubTracker {
	return &stubTracker{
		comments: make(map[int]*model.Comment),
		added:    make(map[int][]string),
		removed:  make(map[int][]string),
	}
}

func (s *stubTracker) ListOpenIssuesWithLabel(_ context.Context, _ model.RepoRef, _ string) ([]model.Issue, error) {
	return s.issues, nil
}

func (s *stubTracker) LastCommentBy(_ context.Context, _ model.RepoRef, number int, _ model.User) (*model.Comment, error) {
	return s.comments[number], nil
}

func (s *stubTracker) PermissionLevel(_ context.Context, _ model.RepoRef, _ string) (model.Permission, error) {
	return model.PermissionNone, nil
}

func (s *stubTracker) ListInstallationRepos(_ context.Context) ([]model.RepoRef, error) {
	return nil, nil
}

func (s *stubTracker) AddLabels(_ context.Context, _ model.RepoRef, number int, labels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added[number] = append(s.added[number], labels...)
	return nil
}

func (s *stubTracker) RemoveLabel(_ context.Context, _ model.RepoRef, number int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[number] = append(s.removed[number], label)
	return nil
}

func (s *stubTracker) CreateLabel(_ context.Context, _ model.RepoRef, label model.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, label.Name)
	return nil
}

type cliFixture struct {
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	cfg     *config.Config
	tracker *stubTracker
	gotID   int64
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	color.NoColor = true
	return &cliFixture{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		cfg: &config.Config{
			Log:    config.LogConfig{Level: "error", Format: "text"},
			GitHub: config.GitHubConfig{Token: "ghp_test"},
			Sweep:  config.SweepConfig{Concurrency: 2},
			Tiers:  config.TiersConfig{NeedsAttentionDays: 1, StaleDays: 15, DireDays: 90},
		},
		tracker: newStubTracker(),
	}
}

func (f *cliFixture) run(args ...string) error {
	c := &cli{
		ui:         newUI(f.out, f.errOut),
		loadConfig: func() (*config.Config, error) { return f.cfg, nil },
		newTracker: func(_ context.Context, _ *config.Config, id int64) (driven.IssueTracker, error) {
			f.gotID = id
			return f.tracker, nil
		},
	}
	root := c.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestLabelsCommand(t *testing.T) {
	f := newCLIFixture(t)

	require.NoError(t, f.run("labels"))

	out := f.out.String()
	for _, l := range model.DefaultLabelCatalog().All() {
		assert.Contains(t, out, l.Name)
		assert.Contains(t, out, "#"+l.Color)
	}
}

func TestTierCommand(t *testing.T) {
	tests := []struct {
		days string
		want model.Tier
	}{
		{days: "0", want: model.TierFresh},
		{days: "0.5", want: model.TierFresh},
		{days: "1", want: model.TierNeedsAttention},
		{days: "15", want: model.TierStale},
		{days: "20", want: model.TierStale},
		{days: "90", want: model.TierDire},
	}

	for _, tt := range tests {
		t.Run(tt.days, func(t *testing.T) {
			f := newCLIFixture(t)

			require.NoError(t, f.run("tier", tt.days))

			assert.Contains(t, f.out.String(), tt.want.Label())
		})
	}
}

func TestTierCommand_InvalidAge(t *testing.T) {
	for _, arg := range []string{"abc", "-3"} {
		f := newCLIFixture(t)
		err := f.run("tier", "--", arg)
		assert.Error(t, err, arg)
	}
}

func TestProvisionCommand(t *testing.T) {
	f := newCLIFixture(t)

	require.NoError(t, f.run("provision", "octo/widgets"))

	assert.Len(t, f.tracker.created, model.DefaultLabelCatalog().Len())
	assert.Contains(t, f.out.String(), "octo/widgets")
}

func TestProvisionCommand_InvalidRepo(t *testing.T) {
	f := newCLIFixture(t)

	err := f.run("provision", "widgets")

	assert.Error(t, err)
	assert.Empty(t, f.tracker.created)
}

func TestInstallationFlag(t *testing.T) {
	t.Run("required in app mode", func(t *testing.T) {
		f := newCLIFixture(t)
		f.cfg.GitHub = config.GitHubConfig{AppID: 7, PrivateKey: "pem"}

		err := f.run("provision", "octo/widgets")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "--installation")
	})

	t.Run("passed through", func(t *testing.T) {
		f := newCLIFixture(t)
		f.cfg.GitHub = config.GitHubConfig{AppID: 7, PrivateKey: "pem"}

		require.NoError(t, f.run("--installation", "42", "provision", "octo/widgets"))

		assert.Equal(t, int64(42), f.gotID)
	})
}

func TestSweepCommand(t *testing.T) {
	f := newCLIFixture(t)
	repo := model.RepoRef{Owner: "octo", Name: "widgets"}
	alice := model.User{ID: 1, Login: "alice"}
	f.tracker.issues = []model.Issue{
		{Repo: repo, Number: 1, Author: alice, Labels: model.LabelSet{model.LabelWaitingForMaintainer, model.LabelStatusFresh}},
		{Repo: repo, Number: 2, Author: alice, Labels: model.LabelSet{model.LabelWaitingForMaintainer}},
	}
	f.tracker.comments[1] = &model.Comment{ID: 10, Author: alice, CreatedAt: time.Now().Add(-20 * 24 * time.Hour)}

	require.NoError(t, f.run("sweep", "octo/widgets"))

	assert.Equal(t, []string{model.LabelStatusStale}, f.tracker.added[1])
	assert.Equal(t, []string{model.LabelStatusFresh}, f.tracker.removed[1])
	assert.Empty(t, f.tracker.added[2])

	out := f.out.String()
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "stale")
	assert.Contains(t, out, "octo/widgets: 2 examined, 1 relabeled, 0 unchanged, 1 skipped, 0 failed")
}
