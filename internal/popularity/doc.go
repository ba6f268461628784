// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package popularity implements the aggregation engine: staging, reconciliation,
time decay, immutable snapshots and the ranked read path.

# Data Flow

A refresh cycle builds one Store per track set. Ranking feed entries are added
first with Store.AddPrimary, which creates records and sums duplicate keys.
A Reconciler is then built over the staged keys and each usage row is matched
against it; matched records receive DecayScorer output via Store.SetSecondary.
Finally every store is frozen into a TrackSet and grouped into a Snapshot,
which Publisher.Publish makes visible with a single atomic swap.

	store := popularity.NewStore()
	store.AddPrimary("DK Summit", "ABC...", 10)
	rec := popularity.NewReconciler(store)
	for _, r := range rec.Match(rowText) {
	    store.SetSecondary(r, scorer.Score(popularity.Played(20), added), 20, added)
	}
	publisher.Publish(popularity.NewSnapshot(cycle, time.Now(), store.Freeze("ctgp", "CTGP", time.Now())))

# Read Path

RankedList, RangeList and Search operate on a *TrackSet taken from the current
snapshot. Track sets precompute their sorted order per SortKey, so reads are
lock free and never observe a partially built snapshot.

# Decay

The default policy halves usage every 28 days and stops decaying after 84 days
(a twelve week window). Age is counted in whole days.
*/
package popularity
