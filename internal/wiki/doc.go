// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package wiki serves the custom track catalogue of the Custom Mario Kart wiki.

Client lists the pages of the configured categories through the MediaWiki
API (list=categorymembers, 500 per request, both continuation formats) and
scrapes individual track pages. Service keeps the merged title list behind an
atomic pointer so searches never block a refresh, and caches parsed pages in
an LRU with TTL.

The catalogue is refreshed by the sync Manager after the track snapshot is
published; Service implements sync.WikiRefresher.
*/
package wiki
