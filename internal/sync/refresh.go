// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"context"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/metrics"
	"github.com/tomtom215/ctgp-popularity/internal/models"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
)

// runCycle builds every enabled track set in private staging stores and
// publishes them together. syncMu must be held.
func (m *Manager) runCycle(parent context.Context) (*RefreshResult, error) {
	m.refreshing.Store(true)
	defer m.refreshing.Store(false)

	cycle := m.cycle.Add(1)
	ctx, cancel := context.WithTimeout(parent, m.cfg.Refresh.Timeout)
	defer cancel()
	ctx = logging.ContextWithNewCorrelationID(ctx)

	start := time.Now()
	result := &RefreshResult{Cycle: cycle, StartedAt: start.UTC()}
	logging.CtxInfo(ctx).Uint64("cycle", cycle).Msg("Refresh cycle started")

	sets, refreshes, err := m.buildTrackSets(ctx)
	if err == nil {
		snapshot := popularity.NewSnapshot(cycle, time.Now().UTC(), sets...)
		m.publisher.Publish(snapshot)
		result.Success = true
		result.TrackSets = refreshes
	} else {
		result.Failure = err.Failure()
	}

	m.refreshWiki(ctx, result)
	m.finalizeSyncOperation(ctx, start, result)

	if err != nil {
		return result, err
	}
	return result, nil
}

// buildTrackSets stages every enabled set. The first failure discards all of
// them so a snapshot never mixes fresh and stale sets.
func (m *Manager) buildTrackSets(ctx context.Context) ([]*popularity.TrackSet, []models.TrackSetRefresh, *popularity.RefreshError) {
	enabled := m.cfg.TrackSets.Enabled()
	sets := make([]*popularity.TrackSet, 0, len(enabled))
	refreshes := make([]models.TrackSetRefresh, 0, len(enabled))

	for _, set := range enabled {
		ts, refresh, err := m.buildTrackSet(ctx, set)
		if err != nil {
			return nil, nil, err
		}
		sets = append(sets, ts)
		refreshes = append(refreshes, refresh)
	}
	return sets, refreshes, nil
}

// buildTrackSet ingests the ranking feed, then the usage table, into a new
// store that nothing else can see until it is frozen.
func (m *Manager) buildTrackSet(ctx context.Context, set config.TrackSetConfig) (*popularity.TrackSet, models.TrackSetRefresh, *popularity.RefreshError) {
	log := logging.Ctx(ctx).With().Str("track_set", set.Name).Logger()
	refresh := models.TrackSetRefresh{Name: set.Name}
	store := popularity.NewStore()

	entries, err := m.feed.FetchFeed(ctx, set.FeedURL)
	if err != nil {
		return nil, refresh, classify(set.Name, popularity.SourceRankingFeed, err)
	}
	refresh.FeedEntries = IngestFeed(store, entries)
	log.Debug().Int("entries", refresh.FeedEntries).Int("tracks", store.Len()).Msg("Ranking feed ingested")

	reconciler := popularity.NewReconciler(store)
	stats, err := m.usage.Scrape(ctx, set, store, reconciler, m.scorer)
	if err != nil {
		return nil, refresh, classify(set.Name, popularity.SourceUsageScraper, err)
	}
	refresh.Usage = stats

	ts := store.Freeze(set.Name, set.Title, time.Now().UTC())
	refresh.Tracks = ts.Len()

	log.Info().
		Int("tracks", refresh.Tracks).
		Int("feed_entries", refresh.FeedEntries).
		Int("usage_pages", stats.Pages).
		Int("usage_updated", stats.Updated).
		Int("usage_unmatched", stats.Unmatched).
		Msg("Track set staged")

	return ts, refresh, nil
}

// refreshWiki reloads the wiki catalogue. Its failure is recorded in the
// result but never affects the track snapshot.
func (m *Manager) refreshWiki(ctx context.Context, result *RefreshResult) {
	m.mu.RLock()
	wiki := m.wiki
	m.mu.RUnlock()
	if wiki == nil {
		return
	}

	n, err := wiki.Refresh(ctx)
	if err != nil {
		re := classify("", popularity.SourceWiki, err)
		result.WikiFailure = re.Failure()
		logging.CtxWarn(ctx).Err(err).Str("source", string(popularity.SourceWiki)).Msg("Wiki catalogue refresh failed, keeping previous catalogue")
		return
	}
	result.WikiTitles = n
}

// finalizeSyncOperation completes the cycle with metrics, events, callbacks
// and logging.
func (m *Manager) finalizeSyncOperation(ctx context.Context, start time.Time, result *RefreshResult) {
	finished := time.Now()
	result.FinishedAt = finished.UTC()
	result.DurationMs = finished.Sub(start).Milliseconds()

	m.mu.Lock()
	if result.Success {
		m.lastSync = start
	}
	m.lastResult = result
	events := m.events
	callback := m.onSyncCompleted
	m.mu.Unlock()

	if result.Success {
		metrics.RecordRefresh(finished.Sub(start), true, "", "")
		tracks := make(map[string]int, len(result.TrackSets))
		for _, ts := range result.TrackSets {
			tracks[ts.Name] = ts.Tracks
		}
		metrics.RecordSnapshot(result.Cycle, tracks)

		event := logging.CtxInfo(ctx).Uint64("cycle", result.Cycle).Int64("duration_ms", result.DurationMs)
		for _, ts := range result.TrackSets {
			event = event.Int(ts.Name+"_tracks", ts.Tracks)
		}
		event.Msg("Refresh cycle published")
	} else {
		metrics.RecordRefresh(finished.Sub(start), false, result.Failure.Source, result.Failure.Stage)
		logging.CtxWarn(ctx).
			Uint64("cycle", result.Cycle).
			Int64("duration_ms", result.DurationMs).
			Str("track_set", result.Failure.TrackSet).
			Str("source", result.Failure.Source).
			Str("stage", result.Failure.Stage).
			Str("error", result.Failure.Message).
			Msg("Refresh cycle failed, previous snapshot kept")
	}

	if events != nil {
		// The cycle context may already be past its deadline.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := events.PublishRefresh(pubCtx, result); err != nil {
			logging.CtxWarn(ctx).Err(err).Msg("Failed to publish refresh event")
		}
		cancel()
	}

	if callback != nil {
		callback(result)
	}
}
