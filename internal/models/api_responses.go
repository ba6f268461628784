// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package models

import (
	"time"
)

// APIResponse is the envelope of every HTTP response.
//
// Status is "success" or "error". Readiness probes use "ready" and
// "not_ready" instead.
//
//	{
//	  "status": "success",
//	  "data": {"track_set": "ctgp", "entries": [...]},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "cycle": 42}
//	}
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "track set not found"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata is attached to every response.
//
// Cycle and PublishedAt identify the snapshot a track set answer was read
// from; both are omitted for endpoints that do not read a snapshot.
type Metadata struct {
	Timestamp   time.Time  `json:"timestamp"`
	QueryTimeMS int64      `json:"query_time_ms,omitempty"`
	Cached      bool       `json:"cached,omitempty"`
	Cycle       uint64     `json:"cycle,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// APIError describes a failed request.
//
// Codes:
//   - VALIDATION_FAILED: bad query parameters or a rejected range
//   - NOT_FOUND: unknown track set or wiki page
//   - CONFLICT: a refresh is already running
//   - SERVICE_UNAVAILABLE: no snapshot published yet, or a component is disabled
//   - EXTERNAL_SERVICE_FAILED: the wiki could not be reached
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by GET /api/v1/health.
type HealthStatus struct {
	Status           string            `json:"status"`
	Version          string            `json:"version"`
	SnapshotCycle    uint64            `json:"snapshot_cycle"`
	LastRefreshTime  *time.Time        `json:"last_refresh_time,omitempty"`
	Refreshing       bool              `json:"refreshing"`
	TrackSets        []TrackSetSummary `json:"track_sets"`
	WikiTitles       int               `json:"wiki_titles"`
	WebSocketClients int               `json:"websocket_clients"`
	Uptime           float64           `json:"uptime"`
}

// TrackSetsResponse lists the published track sets.
type TrackSetsResponse struct {
	TrackSets []TrackSetSummary `json:"track_sets"`
}

// RankedListResponse is the body of top, bottom and range queries.
type RankedListResponse struct {
	TrackSet  string        `json:"track_set"`
	Title     string        `json:"title"`
	Sort      string        `json:"sort"`
	SortLabel string        `json:"sort_label"`
	Total     int           `json:"total"`
	Entries   []RankedEntry `json:"entries"`
}

// TrackSearchResponse is the body of a track set search.
//
// NoResults is true, with Message set to the no-results text, when nothing
// matched. Truncated and Notice are set when more than the result cap matched.
type TrackSearchResponse struct {
	TrackSet  string        `json:"track_set"`
	Query     string        `json:"query"`
	Sort      string        `json:"sort"`
	SortLabel string        `json:"sort_label"`
	Entries   []RankedEntry `json:"entries"`
	Truncated bool          `json:"truncated"`
	Notice    string        `json:"notice,omitempty"`
	NoResults bool          `json:"no_results"`
	Message   string        `json:"message,omitempty"`
}

// WikiSearchResponse is the body of a wiki title search.
type WikiSearchResponse struct {
	Query     string   `json:"query"`
	Titles    []string `json:"titles"`
	Truncated bool     `json:"truncated"`
	Notice    string   `json:"notice,omitempty"`
	NoResults bool     `json:"no_results"`
	Message   string   `json:"message,omitempty"`
}

// RefreshStatus is returned by GET /api/v1/status.
type RefreshStatus struct {
	Refreshing      bool            `json:"refreshing"`
	SnapshotCycle   uint64          `json:"snapshot_cycle"`
	PublishedAt     *time.Time      `json:"published_at,omitempty"`
	LastRefreshTime *time.Time      `json:"last_refresh_time,omitempty"`
	LastResult      *RefreshSummary `json:"last_result,omitempty"`
}

// RefreshAccepted is returned by POST /api/v1/refresh.
type RefreshAccepted struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}
