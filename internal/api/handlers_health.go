// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// Health reports the snapshot, refresh and connection state.
//
// Status is "healthy" once a snapshot is published and "starting" before.
// The endpoint always answers 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := models.HealthStatus{
		Status:    "starting",
		Version:   Version,
		TrackSets: []models.TrackSetSummary{},
		Uptime:    time.Since(h.startTime).Seconds(),
	}

	if snap := h.currentSnapshot(); snap != nil {
		health.Status = "healthy"
		health.SnapshotCycle = snap.Cycle()
		for _, ts := range snap.TrackSets() {
			health.TrackSets = append(health.TrackSets, ts.Summary())
		}
	}

	if h.refresh != nil {
		health.Refreshing = h.refresh.IsRefreshing()
		if last := h.refresh.LastSyncTime(); !last.IsZero() {
			health.LastRefreshTime = &last
		}
		if result := h.refresh.LastResult(); result != nil && !result.Success && health.Status == "healthy" {
			health.Status = "degraded"
		}
	}
	if h.wiki != nil {
		health.WikiTitles = h.wiki.Len()
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}

	respondSuccess(w, health, models.Metadata{})
}

// HealthLive answers 200 while the process is running.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady answers 200 once a snapshot is published and 503 before.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSnapshot()
	ready := snap != nil

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	data := map[string]interface{}{
		"snapshot_published": ready,
		"uptime":             time.Since(h.startTime).Seconds(),
	}
	if ready {
		data["snapshot_cycle"] = snap.Cycle()
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status:   status,
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
