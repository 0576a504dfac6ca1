package application

import (
	"context"
	"sync"

	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
)

// TrackerProvider caches one IssueTracker per installation so repeated
// webhooks for the same installation reuse the authenticated client and its
// token. It is safe for concurrent use.
type TrackerProvider struct {
	mu       sync.RWMutex
	factory  driven.TrackerFactory
	trackers map[int64]driven.IssueTracker
}

// Compile-time interface satisfaction check.
var _ driven.TrackerFactory = (*TrackerProvider)(nil)

// NewTrackerProvider wraps factory with a per-installation cache.
func NewTrackerProvider(factory driven.TrackerFactory) *TrackerProvider {
	return &TrackerProvider{
		factory:  factory,
		trackers: make(map[int64]driven.IssueTracker),
	}
}

// Tracker returns the cached tracker for the installation, creating it on
// first use.
func (p *TrackerProvider) Tracker(ctx context.Context, installationID int64) (driven.IssueTracker, error) {
	p.mu.RLock()
	t, ok := p.trackers[installationID]
	p.mu.RUnlock()
	if ok {
		return t, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have created it while we waited for the lock.
	if t, ok := p.trackers[installationID]; ok {
		return t, nil
	}

	t, err := p.factory.Tracker(ctx, installationID)
	if err != nil {
		return nil, err
	}
	p.trackers[installationID] = t
	return t, nil
}

// Forget drops the cached tracker for an installation, e.g. after it was
// uninstalled.
func (p *TrackerProvider) Forget(installationID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.trackers, installationID)
}

// Len returns the number of cached trackers.
func (p *TrackerProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.trackers)
}
