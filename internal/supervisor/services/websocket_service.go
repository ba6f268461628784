// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package services

import (
	"context"
	"fmt"
)

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the hub's event loop under supervision.
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService wraps hub.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve delegates to RunWithContext, which closes every client on return.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

func (w *WebSocketHubService) String() string {
	return w.name
}

// Forwarder is satisfied by *websocket.EventForwarder.
type Forwarder interface {
	Start(ctx context.Context) error
	Stop()
}

// EventForwarderService relays refresh events from the bus to the hub.
//
// It must run in the same layer as the hub: a forwarder without a running
// hub fills the broadcast queue and drops every message.
type EventForwarderService struct {
	forwarder Forwarder
	name      string
}

// NewEventForwarderService wraps forwarder.
func NewEventForwarderService(forwarder Forwarder) *EventForwarderService {
	return &EventForwarderService{
		forwarder: forwarder,
		name:      "event-forwarder",
	}
}

// Serve implements suture.Service.
func (s *EventForwarderService) Serve(ctx context.Context) error {
	if err := s.forwarder.Start(ctx); err != nil {
		return fmt.Errorf("event forwarder start failed: %w", err)
	}

	<-ctx.Done()
	s.forwarder.Stop()

	return ctx.Err()
}

func (s *EventForwarderService) String() string {
	return s.name
}
