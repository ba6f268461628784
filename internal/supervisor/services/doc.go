// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package services adapts application components to suture.Service.

Each wrapper turns one lifecycle shape into Serve(ctx) error:

	RefreshService         Start(ctx) / Stop() on *sync.Manager
	WebSocketHubService    RunWithContext(ctx) on *websocket.Hub
	EventForwarderService  Start(ctx) / Stop() on *websocket.EventForwarder
	HTTPServerService      listener + http.Server per run, built from config.ServerConfig
	DetailCacheGCService   periodic RunGC on *sync.BadgerDetailCache

The wrappers depend on small interfaces rather than the concrete types so
this package imports neither sync nor websocket. The HTTP tests drive the
real API router.

Every wrapper implements fmt.Stringer; suture uses the name in its logs.
*/
package services
