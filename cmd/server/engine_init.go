// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package main

import (
	"fmt"

	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
	"github.com/tomtom215/ctgp-popularity/internal/sync"
	"github.com/tomtom215/ctgp-popularity/internal/wiki"
)

// engine holds the refresh side of the process.
type engine struct {
	manager         *sync.Manager
	publisher       *popularity.Publisher
	wiki            *wiki.Service
	detailCache     *sync.BadgerDetailCache
	persistentCache bool
}

// initEngine builds the fetcher chains, detail cache, refresh manager and,
// when enabled, the wiki catalogue.
func initEngine(cfg *config.Config) (*engine, error) {
	src := cfg.Sources

	feedFetcher, _ := sync.NewSourceFetcher(sync.HTTPClientConfig{
		Name:                "ranking_feed",
		UserAgent:           src.UserAgent,
		Timeout:             src.RequestTimeout,
		MaxRateLimitRetries: src.MaxRateLimitRetries,
	}, cfg.Refresh.RetryAttempts, cfg.Refresh.RetryDelay)

	usageFetcher, _ := sync.NewSourceFetcher(sync.HTTPClientConfig{
		Name:                "usage_scraper",
		UserAgent:           src.UserAgent,
		Timeout:             src.RequestTimeout,
		MaxRateLimitRetries: src.MaxRateLimitRetries,
		Limiter:             sync.NewLimiter(src.RequestsPerSecond, src.Burst),
	}, cfg.Refresh.RetryAttempts, cfg.Refresh.RetryDelay)

	detailCache, err := sync.OpenBadgerDetailCache(src.DetailCachePath, src.DetailCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("open detail cache: %w", err)
	}

	publisher := popularity.NewPublisher()
	manager := sync.NewManager(
		cfg,
		sync.NewRankingFeedClient(feedFetcher),
		sync.NewUsageScraper(usageFetcher, detailCache, src),
		popularity.NewDecayScorer(cfg.Decay.HalfLife, cfg.Decay.Cap),
		publisher,
	)

	eng := &engine{
		manager:         manager,
		publisher:       publisher,
		detailCache:     detailCache,
		persistentCache: src.DetailCachePath != "",
	}

	if cfg.Wiki.Enabled {
		wikiFetcher, _ := sync.NewSourceFetcher(sync.HTTPClientConfig{
			Name:                "wiki",
			UserAgent:           src.UserAgent,
			Timeout:             src.RequestTimeout,
			MaxRateLimitRetries: src.MaxRateLimitRetries,
			Limiter:             sync.NewLimiter(src.RequestsPerSecond, src.Burst),
		}, cfg.Refresh.RetryAttempts, cfg.Refresh.RetryDelay)

		client := wiki.NewClient(wikiFetcher, cfg.Wiki.APIURL, cfg.Wiki.PageURL)
		eng.wiki = wiki.NewService(client, cfg.Wiki.Categories, cfg.Wiki.PageCacheSize, cfg.Wiki.PageCacheTTL)
		manager.SetWikiRefresher(eng.wiki)
		logging.Info().Strs("categories", cfg.Wiki.Categories).Msg("Wiki catalogue enabled")
	}

	return eng, nil
}

// Close releases the detail cache.
func (e *engine) Close() {
	if err := e.detailCache.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing detail cache")
	}
}
