// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry owns the shared octopus collections.
//
// # Description
//
// The Registry holds two sacks: untagged octopi (captured, unnamed) and
// tagged octopi (named). Every mutation goes through Capture or TagAll;
// readers get deep copies through Snapshot.
//
// # Lifecycle
//
//	Capture ──► untagged ──TagAll──► tagged   (terminal, never removed)
//
// # Locking
//
//   - mu (RWMutex): guards both sacks together. Snapshot takes it shared,
//     Capture and the TagAll commit take it exclusive.
//   - tagMu (Mutex): serializes TagAll calls so two batches never race to
//     move the same octopus.
//   - NameSequencer has its own lock, so naming never blocks readers.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use.
package registry

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/AleutianAI/OctoJourney/services/octopi/datatypes"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "octopi/registry"

// Roll bounds. A capture roll is drawn uniformly from [MinRoll, MaxRoll) and
// an octopus is found when the roll is at most FoundThreshold.
const (
	MinRoll        uint = 1
	MaxRoll        uint = 100
	FoundThreshold uint = 50
)

// =============================================================================
// Options
// =============================================================================

// Publisher receives registry events as the state change is committed.
//
// Publish is called while the registry's collection lock is held, so events
// for one octopus arrive in commit order. It must not block and must not
// call back into the registry.
type Publisher interface {
	Publish(event datatypes.Event)
}

// Option configures a Registry.
type Option func(*Registry)

// WithSequencer injects the name sequencer. Registries built without it get
// their own fresh sequencer.
func WithSequencer(s *NameSequencer) Option {
	return func(r *Registry) {
		if s != nil {
			r.names = s
		}
	}
}

// WithRand injects the randomness source used for feature sampling and
// capture rolls. The source is wrapped in a mutex, so non-thread-safe
// generators such as a seeded *rand.Rand are fine.
func WithRand(src datatypes.Rand) Option {
	return func(r *Registry) {
		if src != nil {
			r.rng = &lockedRand{src: src}
		}
	}
}

// WithIDGenerator replaces uuid.New for octopus IDs.
func WithIDGenerator(gen func() datatypes.OctopusID) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithTagDelay sleeps for d per octopus while naming a batch. This is a
// load-testing knob; zero disables it.
func WithTagDelay(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.tagDelay = d
		}
	}
}

// WithPublisher attaches an event sink.
func WithPublisher(p Publisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithTracerProvider sets where capture and tag spans go. The default is
// the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Registry) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// =============================================================================
// Registry
// =============================================================================

// Registry is the shared in-memory octopus store.
type Registry struct {
	mu       sync.RWMutex
	untagged map[datatypes.OctopusID]datatypes.UntaggedOctopus
	tagged   map[datatypes.OctopusID]datatypes.TaggedOctopus

	tagMu sync.Mutex

	names     *NameSequencer
	rng       datatypes.Rand
	newID     func() datatypes.OctopusID
	tagDelay  time.Duration
	publisher Publisher
	now       func() time.Time
	tracer    trace.Tracer
}

// New creates an empty Registry.
//
// # Inputs
//
//   - opts: Optional overrides. Defaults: fresh NameSequencer, the
//     goroutine-safe math/rand/v2 top-level source, uuid.New, no tag delay,
//     no publisher.
//
// # Outputs
//
//   - *Registry: Ready for use.
func New(opts ...Option) *Registry {
	r := &Registry{
		untagged: make(map[datatypes.OctopusID]datatypes.UntaggedOctopus),
		tagged:   make(map[datatypes.OctopusID]datatypes.TaggedOctopus),
		names:    NewNameSequencer(),
		rng:      globalRand{},
		newID:    uuid.New,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sequencer exposes the injected name sequencer for inspection.
func (r *Registry) Sequencer() *NameSequencer {
	return r.names
}

// Roll draws a capture roll uniformly from [MinRoll, MaxRoll).
func (r *Registry) Roll() uint {
	return MinRoll + uint(r.rng.IntN(int(MaxRoll-MinRoll)))
}

// Found reports whether roll counts as finding an octopus.
func Found(roll uint) bool {
	return roll >= MinRoll && roll <= FoundThreshold
}

// Snapshot returns a consistent copy of both sacks.
//
// # Description
//
// Both maps are copied under one shared lock, so an octopus from a single
// TagAll batch is never seen half migrated. The returned maps are owned by
// the caller.
func (r *Registry) Snapshot() datatypes.OctopiSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := datatypes.OctopiSnapshot{
		UntaggedOctopi: make(map[datatypes.OctopusID]datatypes.UntaggedOctopus, len(r.untagged)),
		TaggedOctopi:   make(map[datatypes.OctopusID]datatypes.TaggedOctopus, len(r.tagged)),
	}
	for id, o := range r.untagged {
		snap.UntaggedOctopi[id] = o
	}
	for id, o := range r.tagged {
		snap.TaggedOctopi[id] = o
	}
	return snap
}

// Counts returns the current size of both sacks.
func (r *Registry) Counts() (untagged, tagged int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.untagged), len(r.tagged)
}

// Capture tries to find a new octopus.
//
// # Description
//
// When roll is within [MinRoll, FoundThreshold] a feature is sampled, a new
// ID is assigned and the octopus is inserted into the untagged sack.
// Any other roll, including out-of-range values, finds nothing and leaves
// the registry untouched.
//
// # Inputs
//
//   - roll: Caller supplied roll, normally from Roll().
//
// # Outputs
//
//   - datatypes.CapturedOctopus: The new octopus, zero when not found.
//   - bool: True when an octopus was inserted.
func (r *Registry) Capture(roll uint) (datatypes.CapturedOctopus, bool) {
	if !Found(roll) {
		return datatypes.CapturedOctopus{}, false
	}

	captured := datatypes.CapturedOctopus{
		ID: r.newID(),
		Octopus: datatypes.UntaggedOctopus{
			IdentifyingFeature: datatypes.SampleFeature(r.rng),
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.untagged[captured.ID] = captured.Octopus
	r.publish(datatypes.Event{
		Kind:               datatypes.EventCaptured,
		ID:                 captured.ID,
		IdentifyingFeature: captured.Octopus.IdentifyingFeature,
		At:                 r.now(),
	})
	return captured, true
}

// TagAll names every octopus that is untagged when the call starts and moves
// the whole batch into the tagged sack in one critical section.
//
// # Description
//
//  1. Serialize against other TagAll calls.
//  2. Copy the untagged set S under the shared lock.
//  3. Name each member of S (sorted by ID) via the sequencer, outside the
//     collection lock, sleeping the configured tag delay per octopus.
//  4. Take the exclusive lock once and move every member of S that is
//     still untagged, publishing a tagged event for each before the lock
//     is released. Members that vanished are skipped.
//
// Octopi captured between steps 2 and 4 are not in S and stay untagged
// for the next call. An empty S returns nil without touching the
// sequencer.
//
// # Inputs
//
//   - ctx: Carries the caller's span. Once ctx is done the remaining tag
//     delays are skipped; the batch itself is still committed.
//
// # Outputs
//
//   - []datatypes.TaggedEntry: The batch that was moved, sorted by ID.
func (r *Registry) TagAll(ctx context.Context) []datatypes.TaggedEntry {
	ctx, span := r.tracer.Start(ctx, "registry.TagAll")
	defer span.End()

	r.tagMu.Lock()
	defer r.tagMu.Unlock()

	r.mu.RLock()
	pending := make([]datatypes.CapturedOctopus, 0, len(r.untagged))
	for id, o := range r.untagged {
		pending = append(pending, datatypes.CapturedOctopus{ID: id, Octopus: o})
	}
	r.mu.RUnlock()

	span.SetAttributes(attribute.Int("octopi.batch_size", len(pending)))
	if len(pending) == 0 {
		return nil
	}

	slices.SortFunc(pending, func(a, b datatypes.CapturedOctopus) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	batch := make([]datatypes.TaggedEntry, 0, len(pending))
	delay := r.tagDelay
	for _, p := range pending {
		batch = append(batch, datatypes.TaggedEntry{
			ID:      p.ID,
			Octopus: p.Octopus.Tag(r.names.Next()),
		})
		if delay > 0 && !sleepCtx(ctx, delay) {
			delay = 0
		}
	}

	moved := batch[:0]
	r.mu.Lock()
	for _, entry := range batch {
		if _, ok := r.untagged[entry.ID]; !ok {
			continue
		}
		delete(r.untagged, entry.ID)
		r.tagged[entry.ID] = entry.Octopus
		moved = append(moved, entry)
	}
	at := r.now()
	for _, entry := range moved {
		r.publish(datatypes.Event{
			Kind:               datatypes.EventTagged,
			ID:                 entry.ID,
			Name:               entry.Octopus.Name,
			IdentifyingFeature: entry.Octopus.IdentifyingFeature,
			At:                 at,
		})
	}
	r.mu.Unlock()

	span.SetAttributes(attribute.Int("octopi.tagged", len(moved)))
	return moved
}

func (r *Registry) publish(e datatypes.Event) {
	if r.publisher != nil {
		r.publisher.Publish(e)
	}
}

// sleepCtx waits for d or until ctx is done. Returns false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// =============================================================================
// Randomness
// =============================================================================

// globalRand uses the math/rand/v2 top-level source, which is goroutine safe.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// lockedRand serializes access to a source that is not goroutine safe.
type lockedRand struct {
	mu  sync.Mutex
	src datatypes.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}
