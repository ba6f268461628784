// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package api

import "errors"

var (
	// ErrTrackSetNotFound is returned for a set name that is not published.
	ErrTrackSetNotFound = errors.New("track set not found")

	// ErrSnapshotNotReady is returned before the first successful refresh.
	ErrSnapshotNotReady = errors.New("no snapshot published yet")
)

// Error codes used in APIError.Code.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeConflict              = "CONFLICT"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeExternalServiceFailed = "EXTERNAL_SERVICE_FAILED"
	CodeInternal              = "INTERNAL_ERROR"
	CodeRateLimited           = "RATE_LIMIT_EXCEEDED"
)
