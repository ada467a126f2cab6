// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the octopus records exchanged between the
// registry, the HTTP handlers and the event feed.
//
// # Description
//
// An octopus starts life untagged (captured, known only by its identifying
// feature) and is tagged exactly once, at which point it receives a name.
// Both shapes are plain values; ownership of the collections holding them
// belongs to the registry package.
package datatypes

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Identifiers
// =============================================================================

// OctopusID uniquely identifies an octopus for its whole life cycle.
//
// The ID is assigned at capture time and carried unchanged into the tagged
// record. It serializes as the canonical 36 character UUID string.
type OctopusID = uuid.UUID

// =============================================================================
// Identifying Feature
// =============================================================================

// IdentifyingFeature is the one distinguishing trait every octopus has.
//
// # Description
//
// A closed enumeration of exactly seven variants. Values outside the
// enumeration are rejected by UnmarshalJSON and reported by Valid.
type IdentifyingFeature uint8

const (
	FeatureFictionReader IdentifyingFeature = iota
	FeatureTopHatWearer
	FeatureAngryExpression
	FeatureChainSmoker
	FeatureRatherRude
	FeatureGovernmentDistrust
	FeatureDecentBloke

	featureCount
)

var featureNames = [featureCount]string{
	FeatureFictionReader:      "FictionReader",
	FeatureTopHatWearer:       "TopHatWearer",
	FeatureAngryExpression:    "AngryExpression",
	FeatureChainSmoker:        "ChainSmoker",
	FeatureRatherRude:         "RatherRude",
	FeatureGovernmentDistrust: "GovernmentDistrust",
	FeatureDecentBloke:        "DecentBloke",
}

// Features returns every variant in declaration order.
func Features() []IdentifyingFeature {
	out := make([]IdentifyingFeature, 0, featureCount)
	for f := IdentifyingFeature(0); f < featureCount; f++ {
		out = append(out, f)
	}
	return out
}

// FeatureNames returns the wire names of every variant in declaration order.
func FeatureNames() []string {
	return append([]string(nil), featureNames[:]...)
}

// Valid reports whether f is one of the seven variants.
func (f IdentifyingFeature) Valid() bool {
	return f < featureCount
}

// String returns the wire name of the feature.
func (f IdentifyingFeature) String() string {
	if !f.Valid() {
		return fmt.Sprintf("IdentifyingFeature(%d)", uint8(f))
	}
	return featureNames[f]
}

// ParseIdentifyingFeature converts a wire name back into a feature.
func ParseIdentifyingFeature(s string) (IdentifyingFeature, error) {
	for i, name := range featureNames {
		if name == s {
			return IdentifyingFeature(i), nil
		}
	}
	return 0, fmt.Errorf("unknown identifying feature %q", s)
}

// MarshalJSON encodes the feature as its wire name.
func (f IdentifyingFeature) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid identifying feature %d", uint8(f))
	}
	return json.Marshal(featureNames[f])
}

// UnmarshalJSON decodes a wire name, rejecting anything outside the enumeration.
func (f *IdentifyingFeature) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("identifying feature must be a string: %w", err)
	}
	parsed, err := ParseIdentifyingFeature(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Rand is the slice of a pseudorandom generator the octopus domain needs.
//
// *math/rand/v2.Rand satisfies it, so tests can pass a seeded generator.
type Rand interface {
	// IntN returns a uniform value in [0, n). Panics if n <= 0.
	IntN(n int) int
}

// SampleFeature draws one of the seven features with probability 1/7 each.
//
// # Inputs
//
//   - r: Randomness source. Must not be nil.
//
// # Outputs
//
//   - IdentifyingFeature: Always a valid variant.
func SampleFeature(r Rand) IdentifyingFeature {
	return IdentifyingFeature(r.IntN(int(featureCount)))
}

// =============================================================================
// Octopus Records
// =============================================================================

// UntaggedOctopus is an octopus you have captured but not yet befriended.
type UntaggedOctopus struct {
	IdentifyingFeature IdentifyingFeature `json:"identifying_feature"`
}

// Tag builds the tagged counterpart of o under the given name.
//
// The identifying feature is copied unchanged.
func (o UntaggedOctopus) Tag(name string) TaggedOctopus {
	return TaggedOctopus{
		Name:               name,
		IdentifyingFeature: o.IdentifyingFeature,
	}
}

// TaggedOctopus is an octopus that now has a name. Immutable once created.
type TaggedOctopus struct {
	Name               string             `json:"name"`
	IdentifyingFeature IdentifyingFeature `json:"identifying_feature"`
}

// CapturedOctopus pairs a freshly captured octopus with its new ID.
type CapturedOctopus struct {
	ID      OctopusID       `json:"id"`
	Octopus UntaggedOctopus `json:"octopus"`
}

// TaggedEntry pairs a tagged octopus with the ID it kept from capture.
type TaggedEntry struct {
	ID      OctopusID     `json:"id"`
	Octopus TaggedOctopus `json:"octopus"`
}

// OctopiSnapshot is a quick glance into both octopus sacks, taken at a
// single instant.
type OctopiSnapshot struct {
	UntaggedOctopi map[OctopusID]UntaggedOctopus `json:"untagged_octopi"`
	TaggedOctopi   map[OctopusID]TaggedOctopus   `json:"tagged_octopi"`
}

// =============================================================================
// Registry Events
// =============================================================================

// EventKind names a registry state transition.
type EventKind string

const (
	// EventCaptured is emitted once per octopus inserted into the untagged sack.
	EventCaptured EventKind = "captured"

	// EventTagged is emitted once per octopus moved into the tagged sack.
	EventTagged EventKind = "tagged"
)

// Event describes one octopus changing state.
type Event struct {
	Kind               EventKind          `json:"kind"`
	ID                 OctopusID          `json:"id"`
	Name               string             `json:"name,omitempty"`
	IdentifyingFeature IdentifyingFeature `json:"identifying_feature"`
	At                 time.Time          `json:"at"`
}
