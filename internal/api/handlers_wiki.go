// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/models"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
	"github.com/tomtom215/ctgp-popularity/internal/validation"
	"github.com/tomtom215/ctgp-popularity/internal/wiki"
)

func (h *Handler) wikiAvailable(w http.ResponseWriter) bool {
	if h.wiki == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "Wiki catalogue is disabled", nil)
		return false
	}
	return true
}

// WikiSearch searches the wiki catalogue titles.
func (h *Handler) WikiSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.wikiAvailable(w) {
		return
	}

	req := &WikiSearchRequest{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondValidation(w, verr)
		return
	}

	resp := models.WikiSearchResponse{Query: req.Query, Titles: []string{}}
	meta := models.Metadata{}

	result, err := h.wiki.Search(req.Query)
	switch {
	case errors.Is(err, popularity.ErrNoResults):
		resp.NoResults = true
		resp.Message = popularity.NoResultsText
	case err != nil:
		var qerr *popularity.QueryError
		if errors.As(err, &qerr) {
			respondQueryError(w, qerr)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternal, "Wiki search failed", err)
		return
	default:
		resp.Titles = result.Titles
		resp.Truncated = result.Truncated
		resp.Notice = result.Notice
	}

	meta.QueryTimeMS = time.Since(start).Milliseconds()
	respondSuccess(w, resp, meta)
}

// WikiTrack returns the parsed wiki page of one track.
func (h *Handler) WikiTrack(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.wikiAvailable(w) {
		return
	}

	req := &WikiTrackRequest{Title: chi.URLParam(r, "title")}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondValidation(w, verr)
		return
	}

	page, err := h.wiki.TrackPage(r.Context(), req.Title)
	if err != nil {
		var qerr *popularity.QueryError
		switch {
		case errors.As(err, &qerr):
			respondQueryError(w, qerr)
		case errors.Is(err, wiki.ErrPageNotFound):
			respondError(w, http.StatusNotFound, CodeNotFound, "Wiki page not found", nil)
		default:
			logging.Ctx(r.Context()).Warn().Err(err).Str("title", sanitizeLogValue(req.Title)).Msg("Wiki page fetch failed")
			respondError(w, http.StatusBadGateway, CodeExternalServiceFailed, "Wiki is unavailable", nil)
		}
		return
	}

	respondSuccess(w, page, models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}
