// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package models defines the data structures shared across the engine, the refresh
manager, the event bus and the HTTP API.

Key Components:

  - TrackIdentity: display name plus normalized primary key; equality is on the key only
  - TrackRecord: reconciled primary (ranking feed) and secondary (decayed usage) scores
  - RankedEntry: one line of a sorted, ranked view
  - RefreshSummary: outcome of a refresh cycle, including the failing source and stage
  - APIResponse: the JSON envelope of every API response

Usage Example:

	id := models.NewTrackIdentity("DK Summit", "1C4E8D0B...")
	rec := models.TrackRecord{Identity: id, PrimaryScore: 10, SecondaryScore: 20}
	total := rec.TotalScore() // 30

Thread Safety:

Values in this package are plain data. Records held by a published snapshot are
never mutated; callers receive copies.
*/
package models
