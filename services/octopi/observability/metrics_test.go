// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMetrics creates metrics on an isolated registry.
func newTestMetrics(t *testing.T) (*OctopiMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestNewMetrics_IsolatedRegistries(t *testing.T) {
	a, _ := newTestMetrics(t)
	b, _ := newTestMetrics(t)

	a.RecordCapture(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CapturesTotal.WithLabelValues(outcomeFound)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CapturesTotal.WithLabelValues(outcomeFound)))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "octo_journey", metricsNamespace)
	assert.Equal(t, "registry", registrySubsystem)
	assert.Equal(t, Endpoint("capture"), EndpointCapture)
	assert.Equal(t, ErrorCode("validation"), ErrorCodeValidation)
}

// ============================================================================
// Helper Method Tests
// ============================================================================

func TestRecordCapture(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordCapture(true)
	m.RecordCapture(true)
	m.RecordCapture(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CapturesTotal.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapturesTotal.WithLabelValues("missed")))
}

func TestRecordTag(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordTag(3, 0.01)
	m.RecordTag(0, 0.0001)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.TaggedTotal))

	expected := `
# HELP octo_journey_registry_tag_batch_size Number of octopi moved per tag call
# TYPE octo_journey_registry_tag_batch_size histogram
octo_journey_registry_tag_batch_size_bucket{le="0"} 1
octo_journey_registry_tag_batch_size_bucket{le="1"} 1
octo_journey_registry_tag_batch_size_bucket{le="2"} 1
octo_journey_registry_tag_batch_size_bucket{le="5"} 2
octo_journey_registry_tag_batch_size_bucket{le="10"} 2
octo_journey_registry_tag_batch_size_bucket{le="25"} 2
octo_journey_registry_tag_batch_size_bucket{le="50"} 2
octo_journey_registry_tag_batch_size_bucket{le="100"} 2
octo_journey_registry_tag_batch_size_bucket{le="250"} 2
octo_journey_registry_tag_batch_size_bucket{le="1000"} 2
octo_journey_registry_tag_batch_size_bucket{le="+Inf"} 2
octo_journey_registry_tag_batch_size_sum 3
octo_journey_registry_tag_batch_size_count 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"octo_journey_registry_tag_batch_size"))
}

func TestObservePopulation(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObservePopulation(4, 9)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Population.WithLabelValues("untagged")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.Population.WithLabelValues("tagged")))

	m.ObservePopulation(0, 13)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Population.WithLabelValues("untagged")))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.Population.WithLabelValues("tagged")))
}

func TestRecordError(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordError(EndpointCapture, ErrorCodeValidation)
	m.RecordError(EndpointWatch, ErrorCodeUpgrade)
	m.RecordError(EndpointWatch, ErrorCodeUpgrade)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("capture", "validation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("watch", "upgrade")))
}

func TestWatchGauge(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.WatchStarted()
	m.WatchStarted()
	m.WatchEnded()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchSubscribers))
}
