// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

// Package validation validates API query parameters with go-playground/validator.
//
// A single validator instance is shared by all handlers. Error messages name
// the query parameter (from the `query` struct tag) rather than the Go field:
//
//	type TopRequest struct {
//	    Count int    `query:"count" validate:"min=1,max=25"`
//	    Sort  string `query:"sort" validate:"sortkey"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError() // Code: VALIDATION_FAILED
//	    ...
//	}
//
// Custom tags:
//   - sortkey: empty, "tt" or "wf" (any case)
//   - wikititle: non-blank and free of characters MediaWiki forbids in titles
package validation
