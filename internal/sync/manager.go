// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
manager.go - Refresh Manager Lifecycle

The Manager owns the periodic refresh of every enabled track set and the
publication of the resulting snapshot.

Lifecycle Methods:
  - NewManager(): wire sources, scorer and publisher
  - Start(): optional startup cycle plus the periodic ticker loop
  - Stop(): cancel an in-flight cycle and wait for goroutines
  - RefreshCycle(): run one cycle synchronously
  - TriggerSync(): start one cycle in the background unless one is running

Thread Safety:
  - syncMu: cycles never overlap
  - mu: protects running, lastSync, lastResult and the optional collaborators
  - readers use the Publisher and never block on a cycle
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/models"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
)

// RefreshResult describes one completed cycle.
type RefreshResult = models.RefreshSummary

// FeedSource downloads ranking feeds. Implemented by RankingFeedClient.
type FeedSource interface {
	FetchFeed(ctx context.Context, url string) ([]FeedEntry, error)
}

// UsageSource fills usage scores into a staging store. Implemented by
// UsageScraper.
type UsageSource interface {
	Scrape(ctx context.Context, set config.TrackSetConfig, store *popularity.Store, reconciler *popularity.Reconciler, scorer *popularity.DecayScorer) (ScrapeStats, error)
}

// WikiRefresher reloads the wiki catalogue and returns its size.
// Implemented by wiki.Service.
type WikiRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// EventPublisher announces finished cycles. Implemented by events.Bus.
type EventPublisher interface {
	PublishRefresh(ctx context.Context, result *models.RefreshSummary) error
}

// Manager orchestrates refresh cycles.
type Manager struct {
	cfg       *config.Config
	feed      FeedSource
	usage     UsageSource
	scorer    *popularity.DecayScorer
	publisher *popularity.Publisher

	wiki            WikiRefresher
	events          EventPublisher
	onSyncCompleted func(result *RefreshResult)

	cycle      atomic.Uint64
	refreshing atomic.Bool

	lastSync   time.Time
	lastResult *RefreshResult
	running    bool
	baseCtx    context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	syncMu     sync.Mutex
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewManager creates a refresh manager.
func NewManager(cfg *config.Config, feed FeedSource, usage UsageSource, scorer *popularity.DecayScorer, publisher *popularity.Publisher) *Manager {
	logging.Info().
		Dur("interval", cfg.Refresh.Interval).
		Dur("timeout", cfg.Refresh.Timeout).
		Dur("half_life", scorer.HalfLife()).
		Dur("decay_cap", scorer.Cap()).
		Int("track_sets", len(cfg.TrackSets.Enabled())).
		Msg("Refresh manager config loaded")

	return &Manager{
		cfg:       cfg,
		feed:      feed,
		usage:     usage,
		scorer:    scorer,
		publisher: publisher,
		stopChan:  make(chan struct{}),
	}
}

// SetWikiRefresher adds the wiki catalogue to every cycle.
func (m *Manager) SetWikiRefresher(w WikiRefresher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wiki = w
}

// SetEventPublisher sets where cycle results are announced.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = p
}

// SetOnSyncCompleted sets a callback invoked after every cycle.
func (m *Manager) SetOnSyncCompleted(callback func(result *RefreshResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSyncCompleted = callback
}

// Start begins periodic refreshing. When Refresh.OnStartup is set the first
// cycle runs immediately in the background so startup is not blocked.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("refresh manager is already running")
	}

	logging.Info().Msg("Starting refresh manager...")

	m.running = true
	m.stopChan = make(chan struct{})
	m.baseCtx, m.cancel = context.WithCancel(ctx)
	baseCtx := m.baseCtx
	m.mu.Unlock()

	if m.cfg.Refresh.OnStartup {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if _, err := m.RefreshCycle(baseCtx); err != nil {
				logging.Warn().Err(err).Msg("Initial refresh failed (will retry)")
			}
		}()
	}

	m.wg.Add(1)
	go m.syncLoop(baseCtx)

	return nil
}

// Stop cancels any running cycle and waits for background work to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("refresh manager is not running")
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	logging.Info().Msg("Stopping refresh manager...")

	close(m.stopChan)
	cancel()
	m.wg.Wait()
	logging.Info().Msg("Refresh manager stopped")

	return nil
}

// syncLoop runs a cycle on every tick.
func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Refresh.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			if _, err := m.RefreshCycle(ctx); err != nil {
				logging.Error().Err(err).Msg("Refresh failed")
			}
		}
	}
}

// TriggerSync starts a cycle in the background. It returns
// ErrRefreshInProgress without waiting if a cycle is already running.
func (m *Manager) TriggerSync() error {
	if !m.syncMu.TryLock() {
		return ErrRefreshInProgress
	}

	m.mu.RLock()
	ctx := m.baseCtx
	m.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.syncMu.Unlock()
		if _, err := m.runCycle(ctx); err != nil {
			logging.Warn().Err(err).Msg("Triggered refresh failed")
		}
	}()
	return nil
}

// RefreshCycle runs one cycle and waits for it. Concurrent callers queue.
// On failure the previous snapshot stays published and the error is a
// *popularity.RefreshError naming the source and stage.
func (m *Manager) RefreshCycle(ctx context.Context) (*RefreshResult, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	return m.runCycle(ctx)
}

// IsRefreshing reports whether a cycle is in progress.
func (m *Manager) IsRefreshing() bool {
	return m.refreshing.Load()
}

// LastSyncTime returns when the last successful cycle started.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// LastResult returns the result of the most recent cycle, or nil.
func (m *Manager) LastResult() *RefreshResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastResult
}

// Publisher returns the snapshot publisher.
func (m *Manager) Publisher() *popularity.Publisher {
	return m.publisher
}
