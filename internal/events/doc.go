// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package events carries refresh notifications between the refresh manager and
its listeners.

Every finished cycle is published once, on one of two topics:

	popularity.refresh.completed   a new snapshot was published
	popularity.refresh.failed      the cycle failed; readers keep the old snapshot

The payload is a JSON RefreshEvent wrapping models.RefreshSummary. Messages
carry the cycle number and the cycle's correlation ID as metadata.

Transport:

The Bus uses watermill's GoChannel pub/sub, so delivery is in-process and
best effort. Nothing is persisted and a subscriber that joins late does not
see earlier cycles.

Usage:

	bus := events.NewBus(cfg.Events.BufferSize, nil)
	defer bus.Close()

	manager.SetEventPublisher(bus)

	msgs, _ := bus.Subscribe(ctx, events.TopicRefreshCompleted)
	for msg := range msgs {
	    event, err := events.DecodeRefreshEvent(msg)
	    ...
	    msg.Ack()
	}
*/
package events
