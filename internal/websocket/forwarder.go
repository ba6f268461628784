// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/ctgp-popularity/internal/events"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/models"
)

// ErrForwarderRunning is returned by Start when the forwarder is already running.
var ErrForwarderRunning = errors.New("event forwarder already running")

// EventSubscriber is the part of events.Bus the forwarder needs.
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Broadcaster receives decoded refresh summaries. Implemented by Hub.
type Broadcaster interface {
	BroadcastRefresh(summary *models.RefreshSummary)
}

// EventForwarder relays refresh events from the bus to websocket clients.
type EventForwarder struct {
	hub        Broadcaster
	subscriber EventSubscriber

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEventForwarder creates a forwarder. Call Start to subscribe.
func NewEventForwarder(hub Broadcaster, subscriber EventSubscriber) *EventForwarder {
	return &EventForwarder{hub: hub, subscriber: subscriber}
}

// Start subscribes to every refresh topic. Messages are forwarded until ctx
// is done or Stop is called.
func (f *EventForwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return ErrForwarderRunning
	}

	subCtx, cancel := context.WithCancel(ctx)
	channels := make([]<-chan *message.Message, 0, len(events.Topics))
	for _, topic := range events.Topics {
		ch, err := f.subscriber.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			return err
		}
		channels = append(channels, ch)
	}

	f.running = true
	f.cancel = cancel
	for i, ch := range channels {
		f.wg.Add(1)
		go f.processMessages(subCtx, events.Topics[i], ch)
	}

	logging.Info().Strs("topics", events.Topics).Msg("Refresh event forwarder started")
	return nil
}

// Stop cancels the subscriptions and waits for the workers to exit.
func (f *EventForwarder) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	cancel := f.cancel
	f.mu.Unlock()

	cancel()
	f.wg.Wait()
	logging.Info().Msg("Refresh event forwarder stopped")
}

// Wait blocks until every worker exited, either after Stop or because the
// subscription channels were closed.
func (f *EventForwarder) Wait() {
	f.wg.Wait()
}

func (f *EventForwarder) processMessages(ctx context.Context, topic string, messages <-chan *message.Message) {
	defer f.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			f.handleMessage(topic, msg)
		}
	}
}

// handleMessage always acks. An undecodable payload would be redelivered
// forever by the in-process transport.
func (f *EventForwarder) handleMessage(topic string, msg *message.Message) {
	defer msg.Ack()

	event, err := events.DecodeRefreshEvent(msg)
	if err != nil {
		logging.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("Dropping undecodable refresh event")
		return
	}
	f.hub.BroadcastRefresh(event.Refresh)
}
