// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events fans registry events out to live subscribers.
//
// # Description
//
// Hub implements registry.Publisher. Each subscriber owns a bounded
// channel; when a subscriber falls behind, new events for it are dropped
// and counted instead of blocking the publisher. Publish therefore never
// blocks a registry operation.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/AleutianAI/OctoJourney/services/octopi/datatypes"
)

// DefaultBuffer is the per-subscriber channel capacity used when NewHub is
// given a non-positive size.
const DefaultBuffer = 64

// Subscription is one live listener on the hub.
type Subscription struct {
	ch      chan datatypes.Event
	once    sync.Once
	dropped atomic.Uint64
}

// C returns the event channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan datatypes.Event {
	return s.ch
}

// Dropped reports how many events were discarded because the channel was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub broadcasts events to every current subscription.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new listener. On a closed hub the returned
// subscription is already closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan datatypes.Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.close()
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.close()
}

// Publish delivers e to every subscriber without blocking.
func (h *Hub) Publish(e datatypes.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.ch <- e:
		default:
			if n := sub.dropped.Add(1); n == 1 || n%100 == 0 {
				slog.Warn("Event subscriber is falling behind, dropping events",
					"kind", e.Kind,
					"dropped", n)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later Publish calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		sub.close()
		delete(h.subs, sub)
	}
}
