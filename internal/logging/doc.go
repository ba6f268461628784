// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

// Package logging is the zerolog-based structured logger shared by every
// package in the service.
//
// A single global logger is configured once from main:
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//	logging.Info().Str("track_set", "ctgp").Int("tracks", 218).Msg("Track set published")
//
// Refresh cycles carry a short correlation ID in their context and HTTP
// requests carry a request ID; logging.Ctx(ctx) adds both to every entry.
//
// NewSlogHandler bridges log/slog callers (the supervision tree's
// sutureslog handler and the event bus adapter) onto the same zerolog
// output.
//
// Field names are snake_case: track_set, source, stage, duration_ms,
// correlation_id, request_id.
package logging
