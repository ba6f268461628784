// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/models"
	syncpkg "github.com/tomtom215/ctgp-popularity/internal/sync"
)

// Status reports the published snapshot and the last refresh cycle.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := models.RefreshStatus{}

	if snap := h.currentSnapshot(); snap != nil {
		published := snap.PublishedAt().UTC()
		status.SnapshotCycle = snap.Cycle()
		status.PublishedAt = &published
	}
	if h.refresh != nil {
		status.Refreshing = h.refresh.IsRefreshing()
		status.LastResult = h.refresh.LastResult()
		if last := h.refresh.LastSyncTime(); !last.IsZero() {
			status.LastRefreshTime = &last
		}
	}

	respondSuccess(w, status, models.Metadata{})
}

// TriggerRefresh starts a refresh cycle in the background. It answers 202
// when the cycle starts and 409 when one is already running.
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refresh == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "Refresh manager unavailable", nil)
		return
	}

	if err := h.refresh.TriggerSync(); err != nil {
		if errors.Is(err, syncpkg.ErrRefreshInProgress) {
			respondError(w, http.StatusConflict, CodeConflict, "A refresh is already in progress", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to start refresh", err)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Manual refresh triggered")
	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status: "success",
		Data: models.RefreshAccepted{
			Accepted: true,
			Message:  "Refresh started",
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
