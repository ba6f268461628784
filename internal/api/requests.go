// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package api

import "github.com/tomtom215/ctgp-popularity/internal/popularity"

// DefaultListCount is used by top and bottom when count is absent.
const DefaultListCount = 10

// ListRequest holds the parameters of top and bottom.
type ListRequest struct {
	Count int    `query:"count" validate:"min=1,max=25"`
	Sort  string `query:"sort" validate:"sortkey"`
}

// RangeRequest holds the parameters of range. Bounds are checked by
// popularity.RangeList so its messages reach the client unchanged.
type RangeRequest struct {
	Start int    `query:"start"`
	End   int    `query:"end"`
	Sort  string `query:"sort" validate:"sortkey"`
}

// SearchRequest holds the parameters of a track set search.
type SearchRequest struct {
	Query string `query:"q" validate:"required,max=100"`
	Sort  string `query:"sort" validate:"sortkey"`
}

// WikiSearchRequest holds the parameters of a wiki search.
type WikiSearchRequest struct {
	Query string `query:"q" validate:"required,max=100"`
}

// WikiTrackRequest names one wiki page.
type WikiTrackRequest struct {
	Title string `query:"title" validate:"wikititle,max=255"`
}

func (r *ListRequest) sortKey() popularity.SortKey {
	return popularity.ParseSortKey(r.Sort)
}

func (r *RangeRequest) sortKey() popularity.SortKey {
	return popularity.ParseSortKey(r.Sort)
}
