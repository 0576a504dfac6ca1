package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// --- Mock implementations ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testRepo = model.RepoRef{Owner: "octo", Name: "widgets"}

// trackerCall is one write issued against the fake tracker.
type trackerCall struct {
	Op     string
	Number int
	Labels []string
}

// fakeTracker is a stateful in-memory IssueTracker. Label writes mutate the
// stored issues so a second sweep sees the result of the first.
type fakeTracker struct {
	mu sync.Mutex

	issues     map[int]*model.Issue
	comments   map[int]*model.Comment
	commentErr map[int]error
	perms      map[string]model.Permission
	permErr    error
	listErr    error
	addErr     error
	removeErr  error
	repoLabels map[string]bool
	createErr  map[string]error
	repos      []model.RepoRef
	reposErr   error

	calls []trackerCall
}

var _ driven.IssueTracker = (*fakeTracker)(nil)

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		issues:     make(map[int]*model.Issue),
		comments:   make(map[int]*model.Comment),
		commentErr: make(map[int]error),
		perms:      make(map[string]model.Permission),
		repoLabels: make(map[string]bool),
		createErr:  make(map[string]error),
	}
}

func (f *fakeTracker) addIssue(number int, author string, labels ...string) *model.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue := &model.Issue{
		Repo:   testRepo,
		Number: number,
		Author: model.User{Login: author},
		Labels: model.LabelSet(labels),
	}
	f.issues[number] = issue
	return issue
}

func (f *fakeTracker) setComment(number int, author string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[number] = &model.Comment{ID: int64(number) * 100, Author: model.User{Login: author}, CreatedAt: at}
}

func (f *fakeTracker) labelsOf(number int) model.LabelSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(model.LabelSet, len(f.issues[number].Labels))
	copy(out, f.issues[number].Labels)
	return out
}

func (f *fakeTracker) writes() []trackerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trackerCall
	for _, c := range f.calls {
		if c.Op == "add" || c.Op == "remove" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTracker) callsFor(op string) []trackerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trackerCall
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTracker) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeTracker) ListOpenIssuesWithLabel(_ context.Context, _ model.RepoRef, label string) ([]model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Issue
	for _, issue := range f.issues {
		if issue.Labels.Has(label) {
			cp := *issue
			cp.Labels = append(model.LabelSet(nil), issue.Labels...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeTracker) LastCommentBy(_ context.Context, _ model.RepoRef, number int, author model.User) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.commentErr[number]; err != nil {
		return nil, err
	}
	c, ok := f.comments[number]
	if !ok || !c.Author.SameAs(author) {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeTracker) PermissionLevel(_ context.Context, _ model.RepoRef, username string) (model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackerCall{Op: "permission", Labels: []string{username}})
	if f.permErr != nil {
		return "", f.permErr
	}
	if p, ok := f.perms[username]; ok {
		return p, nil
	}
	return model.PermissionNone, nil
}

func (f *fakeTracker) ListInstallationRepos(_ context.Context) ([]model.RepoRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repos, f.reposErr
}

func (f *fakeTracker) AddLabels(_ context.Context, _ model.RepoRef, number int, labels ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackerCall{Op: "add", Number: number, Labels: labels})
	if f.addErr != nil {
		return f.addErr
	}
	issue, ok := f.issues[number]
	if !ok {
		return driven.ErrNotFound
	}
	for _, l := range labels {
		if !issue.Labels.Has(l) {
			issue.Labels = append(issue.Labels, l)
		}
	}
	return nil
}

func (f *fakeTracker) RemoveLabel(_ context.Context, _ model.RepoRef, number int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackerCall{Op: "remove", Number: number, Labels: []string{label}})
	if f.removeErr != nil {
		return f.removeErr
	}
	issue, ok := f.issues[number]
	if !ok || !issue.Labels.Has(label) {
		return driven.ErrNotFound
	}
	kept := issue.Labels[:0]
	for _, l := range issue.Labels {
		if l != label {
			kept = append(kept, l)
		}
	}
	issue.Labels = kept
	return nil
}

func (f *fakeTracker) CreateLabel(_ context.Context, repo model.RepoRef, label model.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackerCall{Op: "create", Labels: []string{repo.FullName(), label.Name}})
	if err := f.createErr[label.Name]; err != nil {
		return err
	}
	key := repo.FullName() + ":" + label.Name
	if f.repoLabels[key] {
		return driven.ErrAlreadyExists
	}
	f.repoLabels[key] = true
	return nil
}

// fakeFactory hands out trackers by installation id and counts creations.
type fakeFactory struct {
	mu       sync.Mutex
	trackers map[int64]*fakeTracker
	err      error
	created  int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{trackers: make(map[int64]*fakeTracker)}
}

func (f *fakeFactory) Tracker(_ context.Context, installationID int64) (driven.IssueTracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created++
	t, ok := f.trackers[installationID]
	if !ok {
		t = newFakeTracker()
		f.trackers[installationID] = t
	}
	return t, nil
}

func (f *fakeFactory) tracker(installationID int64) *fakeTracker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trackers[installationID]
	if !ok {
		t = newFakeTracker()
		f.trackers[installationID] = t
	}
	return t
}

type fakeInstallations struct {
	installs []model.Installation
	err      error
}

func (f *fakeInstallations) ListInstallations(_ context.Context) ([]model.Installation, error) {
	return f.installs, f.err
}

type mockRepoStore struct {
	mu    sync.Mutex
	repos map[string]model.Repository
	err   error
}

func newMockRepoStore(repos ...model.Repository) *mockRepoStore {
	m := &mockRepoStore{repos: make(map[string]model.Repository)}
	for _, r := range repos {
		m.repos[r.FullName] = r
	}
	return m
}

func (m *mockRepoStore) Upsert(_ context.Context, repo model.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.repos[repo.FullName] = repo
	return nil
}

func (m *mockRepoStore) Remove(_ context.Context, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[fullName]; !ok {
		return driven.ErrRepoNotFound
	}
	delete(m.repos, fullName)
	return nil
}

func (m *mockRepoStore) RemoveInstallation(_ context.Context, installationID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for name, r := range m.repos {
		if r.InstallationID == installationID {
			delete(m.repos, name)
			n++
		}
	}
	return n, nil
}

func (m *mockRepoStore) GetByFullName(_ context.Context, fullName string) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[fullName]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockRepoStore) ListAll(_ context.Context) ([]model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Repository, 0, len(m.repos))
	for _, r := range m.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *mockRepoStore) names() []string {
	repos, _ := m.ListAll(context.Background())
	out := make([]string, 0, len(repos))
	for _, r := range repos {
		out = append(out, r.FullName)
	}
	return out
}

type mockSweepRunStore struct {
	mu   sync.Mutex
	runs []model.SweepRun
}

func (m *mockSweepRunStore) Record(_ context.Context, run model.SweepRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockSweepRunStore) ListRecent(_ context.Context, limit int) ([]model.SweepRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SweepRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *mockSweepRunStore) all() []model.SweepRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SweepRun(nil), m.runs...)
}

type mockDeliveryStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (m *mockDeliveryStore) Seen(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockDeliveryStore) Record(_ context.Context, _ model.Delivery) error {
	return nil
}

func (m *mockDeliveryStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	return 0, m.err
}

func (m *mockDeliveryStore) pruned() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.cutoffs...)
}

var errBoom = errors.New("boom")
