// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package api serves the published popularity snapshot over HTTP.

Routes (chi v5):

	GET  /api/v1/health                      snapshot, refresh and client state
	GET  /api/v1/health/live                 liveness probe
	GET  /api/v1/health/ready                503 until the first snapshot
	GET  /api/v1/tracksets                   published sets and their sizes
	GET  /api/v1/tracksets/{set}/top         ?count=1..25&sort=tt|wf
	GET  /api/v1/tracksets/{set}/bottom      ?count=1..25&sort=tt|wf
	GET  /api/v1/tracksets/{set}/range       ?start=&end=&sort=
	GET  /api/v1/tracksets/{set}/search      ?q=&sort=
	GET  /api/v1/wiki/search                 ?q=
	GET  /api/v1/wiki/tracks/{title}         parsed wiki page
	GET  /api/v1/status                      last refresh result
	POST /api/v1/refresh                     202 started, 409 already running
	GET  /api/v1/ws                          websocket refresh notifications
	GET  /metrics                            Prometheus exposition

Every response uses the models.APIResponse envelope. Track set answers carry
the snapshot cycle and publish time in metadata so a client can tell when two
answers came from the same refresh.

Handlers read the snapshot once per request through SnapshotSource, so a
refresh that publishes mid-request never mixes two snapshots in one answer.

Middleware order: request ID and correlation ID, real IP, panic recovery,
CORS, then per-group rate limiting (go-chi/httprate) and Prometheus metrics.
*/
package api
