// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package sync refreshes the popularity snapshot from the upstream sources.

One refresh cycle, for every enabled track set:

 1. Feed: download the time-trial ranking feed and create one record per
    distinct track ID, summing duplicate counts (RankingFeedClient)
 2. Usage: page through the online usage table, match each row to records by
    key containment, falling back to the hashes on the row's detail page, and
    store the decayed usage score (UsageScraper)
 3. Freeze: turn the private staging store into an immutable TrackSet

When every set succeeds the sets are published together as one snapshot.
Any failure leaves the previous snapshot in place and is reported as a
*popularity.RefreshError naming the track set, source and stage. The wiki
catalogue is refreshed afterwards and never blocks publication.

Request Chain:

Every source request goes through the same layers (NewSourceFetcher):

	RetryingFetcher     retries 5xx and network errors with backoff
	CircuitBreakerFetcher  gobreaker, 4xx does not count as failure
	HTTPClient          x/time/rate limiter, 429 backoff with Retry-After

Detail page hashes are cached in BadgerDB (BadgerDetailCache) since they
never change for a given page.

Thread Safety:

Cycles are serialized by the Manager. Readers never see a partially built
track set because staging stores are private to the cycle and publication
is a single atomic pointer swap.
*/
package sync
