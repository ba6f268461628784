// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package sync

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/ctgp-popularity/internal/popularity"
)

var (
	// ErrMalformedDocument marks a document that was fetched but does not
	// have the expected shape. The refresh cycle reports it as stage "parse".
	ErrMalformedDocument = errors.New("malformed document")

	// ErrRefreshInProgress is returned by TriggerSync while a cycle runs.
	ErrRefreshInProgress = errors.New("refresh already in progress")
)

// StatusError is a non-2xx response from an upstream source.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// IsClientError reports whether the status is 4xx. Client errors are not
// retried and do not count against a circuit breaker.
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsNotFound reports whether the document is gone (404 or 410).
func IsNotFound(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone
}

// classify turns an error from a source into a *popularity.RefreshError.
// Errors that already carry a stage keep it.
func classify(trackSet string, source popularity.Source, err error) *popularity.RefreshError {
	if re, ok := popularity.AsRefreshError(err); ok {
		if re.TrackSet == "" {
			re.TrackSet = trackSet
		}
		return re
	}

	stage := popularity.StageFetch
	if errors.Is(err, ErrMalformedDocument) {
		stage = popularity.StageParse
	}
	return &popularity.RefreshError{
		TrackSet: trackSet,
		Source:   source,
		Stage:    stage,
		Err:      err,
	}
}
