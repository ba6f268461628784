// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package cache provides the in-memory cache used for scraped wiki pages.

LRU combines a capacity bound with per-entry TTL:

	pages := cache.NewLRU[*wiki.TrackPage]("wiki_page", 256, time.Hour)
	pages.Set("Mushroom Gorge", page)
	if p, ok := pages.Get("Mushroom Gorge"); ok {
	    // use p
	}

Every instance reports hits, misses, evictions and size to Prometheus under
its name (label cache_type), so several caches can share the collectors.

Detail page hashes are stored in BadgerDB instead (see internal/sync) since
they are worth keeping across restarts.
*/
package cache
