// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/metrics"
	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// Metadata keys set on every message.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataCycle         = "cycle"
)

// DefaultBufferSize is used when the configured buffer is not positive.
const DefaultBufferSize int64 = 64

// Bus is an in-process pub/sub for refresh events, backed by a watermill
// GoChannel. Subscribers must Ack every message they receive; the channel
// does not deliver the next message to a subscriber until the previous one
// is acknowledged.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus. A nil logger routes watermill logs through zerolog.
func NewBus(bufferSize int64, logger watermill.LoggerAdapter) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}

	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: bufferSize,
		}, logger),
		logger: logger,
	}
}

// Publish sends a message to topic.
func (b *Bus) Publish(topic string, msg *message.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// PublishRefresh wraps a cycle summary in a RefreshEvent and publishes it
// on the completed or failed topic.
func (b *Bus) PublishRefresh(ctx context.Context, summary *models.RefreshSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := NewRefreshEvent(summary)
	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(MetadataCycle, fmt.Sprintf("%d", summary.Cycle))
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	if err := b.Publish(event.Topic, msg); err != nil {
		return err
	}

	logging.Ctx(ctx).Debug().
		Str("topic", event.Topic).
		Str("event_id", event.EventID).
		Uint64("cycle", summary.Cycle).
		Msg("Refresh event published")
	return nil
}

// Subscribe returns a channel of messages on topic. The channel closes when
// ctx is canceled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return ch, nil
}

// Close shuts down the bus and closes every subscription channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// DecodeRefreshEvent parses the payload of a refresh message.
func DecodeRefreshEvent(msg *message.Message) (*RefreshEvent, error) {
	return DeserializeEvent(msg.Payload)
}
