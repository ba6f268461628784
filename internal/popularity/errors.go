// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package popularity

import (
	"errors"
	"fmt"

	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// Source names an upstream the refresh cycle reads from.
type Source string

const (
	SourceRankingFeed  Source = "ranking_feed"
	SourceUsageScraper Source = "usage_scraper"
	SourceWiki         Source = "wiki"
)

// Stage names the step of a refresh cycle that failed.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageParse  Stage = "parse"
	StageDetail Stage = "detail"
)

// RefreshError is the failure result of a refresh cycle. It identifies the
// track set, source and stage so a presentation layer can explain it.
type RefreshError struct {
	TrackSet string
	Source   Source
	Stage    Stage
	Err      error
}

func (e *RefreshError) Error() string {
	if e.TrackSet == "" {
		return fmt.Sprintf("%s %s failed: %v", e.Source, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s %s failed: %v", e.TrackSet, e.Source, e.Stage, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Failure converts the error to its wire form.
func (e *RefreshError) Failure() *models.RefreshFailure {
	return &models.RefreshFailure{
		TrackSet: e.TrackSet,
		Source:   string(e.Source),
		Stage:    string(e.Stage),
		Message:  e.Err.Error(),
	}
}

// AsRefreshError extracts a *RefreshError from err's chain.
func AsRefreshError(err error) (*RefreshError, bool) {
	var re *RefreshError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
