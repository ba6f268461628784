// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/ctgp-popularity/internal/cache"
	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/models"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
	"github.com/tomtom215/ctgp-popularity/internal/wiki"
	ws "github.com/tomtom215/ctgp-popularity/internal/websocket"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const (
	searchCacheSize = 512
	searchCacheTTL  = 10 * time.Minute
)

// SnapshotSource returns the published snapshot, or nil before the first
// successful refresh. Implemented by popularity.Publisher.
type SnapshotSource interface {
	Current() *popularity.Snapshot
}

// RefreshController is the part of the refresh manager the API drives.
type RefreshController interface {
	TriggerSync() error
	IsRefreshing() bool
	LastSyncTime() time.Time
	LastResult() *models.RefreshSummary
}

// WikiCatalogue is implemented by wiki.Service.
type WikiCatalogue interface {
	Search(query string) (*wiki.SearchResult, error)
	TrackPage(ctx context.Context, title string) (*wiki.TrackPage, error)
	Len() int
}

// Handler serves every API endpoint.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, websocket upgrade
//   - handlers_helpers.go: response and parameter helpers
//   - handlers_health.go: health, liveness and readiness probes
//   - handlers_tracksets.go: ranked lists and search over track sets
//   - handlers_wiki.go: wiki catalogue search and track pages
//   - handlers_refresh.go: refresh status and manual trigger
type Handler struct {
	config    *config.Config
	snapshots SnapshotSource
	refresh   RefreshController
	wiki      WikiCatalogue
	wsHub     *ws.Hub
	startTime time.Time

	// searchCache holds track set search results keyed by cycle, set, sort
	// and query. It is cleared after every successful refresh.
	searchCache *cache.LRU[*popularity.SearchResult]
}

// NewHandler creates a handler. refresh, wikiSvc and wsHub may be nil; the
// endpoints that need them then answer 503.
func NewHandler(cfg *config.Config, snapshots SnapshotSource, refresh RefreshController, wikiSvc WikiCatalogue, wsHub *ws.Hub) *Handler {
	return &Handler{
		config:      cfg,
		snapshots:   snapshots,
		refresh:     refresh,
		wiki:        wikiSvc,
		wsHub:       wsHub,
		startTime:   time.Now(),
		searchCache: cache.NewLRU[*popularity.SearchResult]("api_search", searchCacheSize, searchCacheTTL),
	}
}

// ClearCache drops cached search results.
func (h *Handler) ClearCache() {
	h.searchCache.Clear()
	logging.Debug().Msg("Search cache cleared")
}

// OnRefreshCompleted is registered with the refresh manager and runs after
// every cycle. Websocket clients are notified through the event bus, not here.
func (h *Handler) OnRefreshCompleted(result *models.RefreshSummary) {
	if result != nil && result.Success {
		h.ClearCache()
	}
}

func (h *Handler) currentSnapshot() *popularity.Snapshot {
	if h.snapshots == nil {
		return nil
	}
	return h.snapshots.Current()
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts browser origins listed in the CORS
// configuration. Requests without an Origin header come from non-browser
// clients and are accepted.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
