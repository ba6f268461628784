// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// Topics published by the refresh manager.
const (
	TopicRefreshCompleted = "popularity.refresh.completed"
	TopicRefreshFailed    = "popularity.refresh.failed"
)

// Topics lists every topic in subscription order.
var Topics = []string{TopicRefreshCompleted, TopicRefreshFailed}

var (
	// ErrBusClosed is returned by Publish and Subscribe after Close.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrInvalidEvent is returned when an event is missing required fields.
	ErrInvalidEvent = errors.New("invalid refresh event")
)

// RefreshEvent is the payload of both refresh topics.
type RefreshEvent struct {
	EventID    string                 `json:"event_id"`
	Topic      string                 `json:"topic"`
	OccurredAt time.Time              `json:"occurred_at"`
	Refresh    *models.RefreshSummary `json:"refresh"`
}

// TopicFor picks the topic for a finished cycle.
func TopicFor(summary *models.RefreshSummary) string {
	if summary != nil && summary.Success {
		return TopicRefreshCompleted
	}
	return TopicRefreshFailed
}

// NewRefreshEvent wraps a cycle summary.
func NewRefreshEvent(summary *models.RefreshSummary) *RefreshEvent {
	occurred := time.Now().UTC()
	if summary != nil && !summary.FinishedAt.IsZero() {
		occurred = summary.FinishedAt.UTC()
	}
	return &RefreshEvent{
		EventID:    uuid.New().String(),
		Topic:      TopicFor(summary),
		OccurredAt: occurred,
		Refresh:    summary,
	}
}

// Validate checks required fields.
func (e *RefreshEvent) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	case e.Topic != TopicRefreshCompleted && e.Topic != TopicRefreshFailed:
		return fmt.Errorf("%w: unknown topic %q", ErrInvalidEvent, e.Topic)
	case e.Refresh == nil:
		return fmt.Errorf("%w: refresh summary is required", ErrInvalidEvent)
	}
	return nil
}

// SerializeEvent validates and marshals an event.
func SerializeEvent(event *RefreshEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DeserializeEvent unmarshals and validates an event.
func DeserializeEvent(data []byte) (*RefreshEvent, error) {
	var event RefreshEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}
