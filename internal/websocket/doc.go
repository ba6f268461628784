// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package websocket pushes refresh notifications to connected clients.

Key Components:

  - Hub: owns the client set and fans messages out
  - Client: one connection with a read pump and a write pump
  - EventForwarder: subscribes to the event bus and feeds the hub

Data Flow:

	refresh.Manager -> events.Bus -> EventForwarder -> Hub -> Client(s)

Message Types:

  - refresh_completed: a new snapshot is live (cycle, duration, per-set counts)
  - refresh_failed: the cycle failed; data has the failure source and stage
  - ping / pong: clients may send ping at any time and receive pong

Every frame is a JSON object:

	{"type": "refresh_completed", "data": {"cycle": 12, "duration_ms": 5120, ...}}

Ordering:

Clients get increasing IDs and broadcasts are delivered in ID order. A client
whose send buffer is full is disconnected rather than blocking the hub.

Supervision:

RunWithContext returns when its context is canceled, after closing every
client, so the hub can run as a suture service and be restarted cleanly.
*/
package websocket
