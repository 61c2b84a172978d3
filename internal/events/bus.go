/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events defines the in-process pubsub bus and the event types
// emitted by the scheduling and booking pipeline.
package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// EventRecommendationReady fires after a ranked recommendation list has
	// been computed and its audit record persisted.
	EventRecommendationReady EventType = "recommendation.ready"

	// EventBookingConfirmed fires when an assignment is persisted.
	EventBookingConfirmed EventType = "booking.confirmed"

	// EventBookingConflict fires when a booking loses the optimistic
	// concurrency race and the caller must re-request.
	EventBookingConflict EventType = "booking.conflict"

	// EventWeightsUpdated fires when a new scoring weights version is
	// loaded.
	EventWeightsUpdated EventType = "weights.updated"

	// EventDistanceDegraded fires when the routing provider becomes
	// unavailable and estimates fall back to straight-line distance.
	EventDistanceDegraded EventType = "distance.degraded"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers drop events rather
// than block the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
