// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package models

import "time"

// TrackSetSummary describes one published track set.
type TrackSetSummary struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Tracks      int       `json:"tracks"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// UsageStats counts the outcome of a usage scrape for one track set.
type UsageStats struct {
	Pages         int `json:"pages"`
	Rows          int `json:"rows"`
	DirectMatches int `json:"direct_matches"`
	DetailMatches int `json:"detail_matches"`
	DetailLookups int `json:"detail_lookups"`
	Unmatched     int `json:"unmatched"`
	Skipped       int `json:"skipped"`
	Updated       int `json:"updated"`
}

// TrackSetRefresh is the per-set part of a refresh summary.
type TrackSetRefresh struct {
	Name        string     `json:"name"`
	Tracks      int        `json:"tracks"`
	FeedEntries int        `json:"feed_entries"`
	Usage       UsageStats `json:"usage"`
}

// RefreshFailure carries enough detail for a caller to explain a failed cycle.
type RefreshFailure struct {
	TrackSet string `json:"track_set,omitempty"`
	Source   string `json:"source"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
}

// RefreshSummary is the outcome of one refresh cycle.
type RefreshSummary struct {
	Cycle       uint64            `json:"cycle"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	DurationMs  int64             `json:"duration_ms"`
	Success     bool              `json:"success"`
	TrackSets   []TrackSetRefresh `json:"track_sets,omitempty"`
	Failure     *RefreshFailure   `json:"failure,omitempty"`
	WikiTitles  int               `json:"wiki_titles,omitempty"`
	WikiFailure *RefreshFailure   `json:"wiki_failure,omitempty"`
}
