// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/ctgp-popularity/internal/models"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
	"github.com/tomtom215/ctgp-popularity/internal/validation"
)

// trackSetFromRequest resolves the {set} URL parameter against the current
// snapshot. It writes the error response and returns ok=false when the
// snapshot or the set is missing.
func (h *Handler) trackSetFromRequest(w http.ResponseWriter, r *http.Request) (*popularity.Snapshot, *popularity.TrackSet, bool) {
	snap := h.currentSnapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, ErrSnapshotNotReady.Error(), nil)
		return nil, nil, false
	}

	name := strings.ToLower(chi.URLParam(r, "set"))
	ts, ok := snap.TrackSet(name)
	if !ok {
		respondErrorDetails(w, http.StatusNotFound, CodeNotFound, ErrTrackSetNotFound.Error(),
			map[string]interface{}{"track_set": sanitizeLogValue(name)}, nil)
		return nil, nil, false
	}
	return snap, ts, true
}

// TrackSets lists the published track sets.
func (h *Handler) TrackSets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap := h.currentSnapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, ErrSnapshotNotReady.Error(), nil)
		return
	}

	resp := models.TrackSetsResponse{TrackSets: make([]models.TrackSetSummary, 0, len(snap.TrackSets()))}
	for _, ts := range snap.TrackSets() {
		resp.TrackSets = append(resp.TrackSets, ts.Summary())
	}
	respondSuccess(w, resp, snapshotMetadata(snap, start))
}

func (h *Handler) parseListRequest(w http.ResponseWriter, r *http.Request) (*ListRequest, bool) {
	count, err := getIntParam(r, "count", DefaultListCount)
	if err != nil {
		respondParamError(w, err)
		return nil, false
	}

	req := &ListRequest{Count: count, Sort: r.URL.Query().Get("sort")}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondValidation(w, verr)
		return nil, false
	}
	return req, true
}

// Top returns the best count entries of a set.
func (h *Handler) Top(w http.ResponseWriter, r *http.Request) {
	h.rankedList(w, r, false)
}

// Bottom returns the worst count entries of a set, last place first.
func (h *Handler) Bottom(w http.ResponseWriter, r *http.Request) {
	h.rankedList(w, r, true)
}

func (h *Handler) rankedList(w http.ResponseWriter, r *http.Request, reverse bool) {
	start := time.Now()
	req, ok := h.parseListRequest(w, r)
	if !ok {
		return
	}
	snap, ts, ok := h.trackSetFromRequest(w, r)
	if !ok {
		return
	}

	startIndex := 0
	if reverse {
		startIndex = ts.Len()
	}
	key := req.sortKey()
	entries, _ := popularity.RankedList(ts, startIndex, req.Count, reverse, key)

	respondSuccess(w, rankedListResponse(ts, key, entries), snapshotMetadata(snap, start))
}

// Range returns ranks start..end inclusive.
func (h *Handler) Range(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	startRank, err := getIntParam(r, "start", 0)
	if err != nil {
		respondParamError(w, err)
		return
	}
	endRank, err := getIntParam(r, "end", 0)
	if err != nil {
		respondParamError(w, err)
		return
	}
	req := &RangeRequest{Start: startRank, End: endRank, Sort: r.URL.Query().Get("sort")}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondValidation(w, verr)
		return
	}

	snap, ts, ok := h.trackSetFromRequest(w, r)
	if !ok {
		return
	}

	key := req.sortKey()
	entries, err := popularity.RangeList(ts, req.Start, req.End, key)
	if err != nil {
		var qerr *popularity.QueryError
		if errors.As(err, &qerr) {
			respondQueryError(w, qerr)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternal, "Range query failed", err)
		return
	}

	respondSuccess(w, rankedListResponse(ts, key, entries), snapshotMetadata(snap, started))
}

// Search finds tracks by name. A trailing " tt" or " wf" in q selects the
// ordering when no sort parameter is given.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := &SearchRequest{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Sort:  r.URL.Query().Get("sort"),
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondValidation(w, verr)
		return
	}

	snap, ts, ok := h.trackSetFromRequest(w, r)
	if !ok {
		return
	}

	query, key := popularity.ParseSearchQuery(req.Query)
	if req.Sort != "" {
		key = popularity.ParseSortKey(req.Sort)
	}

	resp := models.TrackSearchResponse{
		TrackSet:  ts.Name(),
		Query:     query,
		Sort:      string(key),
		SortLabel: key.Label(),
		Entries:   []models.RankedEntry{},
	}
	meta := snapshotMetadata(snap, start)

	cacheKey := fmt.Sprintf("%d|%s|%s|%s", snap.Cycle(), ts.Name(), key, strings.ToLower(query))
	result, cached := h.searchCache.Get(cacheKey)
	if !cached {
		var err error
		result, err = popularity.Search(ts, query, key)
		switch {
		case errors.Is(err, popularity.ErrNoResults):
			resp.NoResults = true
			resp.Message = popularity.NoResultsText
			respondSuccess(w, resp, meta)
			return
		case err != nil:
			var qerr *popularity.QueryError
			if errors.As(err, &qerr) {
				respondQueryError(w, qerr)
				return
			}
			respondError(w, http.StatusInternalServerError, CodeInternal, "Search failed", err)
			return
		}
		h.searchCache.Set(cacheKey, result)
	}

	resp.Entries = result.Entries
	resp.Truncated = result.Truncated
	resp.Notice = result.Notice
	meta.Cached = cached
	respondSuccess(w, resp, meta)
}

func rankedListResponse(ts *popularity.TrackSet, key popularity.SortKey, entries []models.RankedEntry) models.RankedListResponse {
	if entries == nil {
		entries = []models.RankedEntry{}
	}
	return models.RankedListResponse{
		TrackSet:  ts.Name(),
		Title:     ts.Title(),
		Sort:      string(key),
		SortLabel: key.Label(),
		Total:     ts.Len(),
		Entries:   entries,
	}
}
