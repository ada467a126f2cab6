// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the octopus registry.
//
// # Description
//
// Metrics include:
//   - Capture attempts by outcome (found, missed)
//   - Octopi tagged and the size of each tagging batch
//   - Tagging latency
//   - Current population of both sacks
//   - Request errors by endpoint
//   - Live watch subscribers
//
// # Integration
//
// Metrics are registered on the registerer passed to NewMetrics and are
// exposed on /metrics by the service.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "octo_journey"

// Subsystem for registry metrics
const registrySubsystem = "registry"

// OctopiMetrics holds all Prometheus metrics for registry operations.
//
// # Fields
//
//   - CapturesTotal: Capture attempts by outcome
//   - TaggedTotal: Octopi moved to the tagged sack
//   - TagBatchSize: Histogram of octopi per tag call
//   - TagDurationSeconds: Histogram of tag call latency
//   - Population: Gauge of octopi per sack
//   - ErrorsTotal: Request errors by endpoint and code
//   - WatchSubscribers: Gauge of live websocket watchers
type OctopiMetrics struct {
	// CapturesTotal counts capture attempts.
	// Labels: outcome (found, missed)
	CapturesTotal *prometheus.CounterVec

	// TaggedTotal counts octopi that received a name.
	TaggedTotal prometheus.Counter

	// TagBatchSize records how many octopi each tag call moved.
	TagBatchSize prometheus.Histogram

	// TagDurationSeconds records how long each tag call took.
	TagDurationSeconds prometheus.Histogram

	// Population tracks the current size of each sack.
	// Labels: sack (untagged, tagged)
	Population *prometheus.GaugeVec

	// ErrorsTotal counts request errors.
	// Labels: endpoint, error_code
	ErrorsTotal *prometheus.CounterVec

	// WatchSubscribers tracks connected event watchers.
	WatchSubscribers prometheus.Gauge
}

// NewMetrics creates and registers all registry metrics on reg.
//
// # Description
//
// Each service instance owns its own registry, so NewMetrics can be called
// repeatedly (for example once per test) without duplicate registration.
//
// # Inputs
//
//   - reg: Registerer to attach the collectors to. Nil falls back to
//     prometheus.DefaultRegisterer.
//
// # Outputs
//
//   - *OctopiMetrics: The initialized metrics.
//
// # Limitations
//
//   - Panics if the same registerer already holds these metrics.
func NewMetrics(reg prometheus.Registerer) *OctopiMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &OctopiMetrics{
		CapturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: registrySubsystem,
				Name:      "captures_total",
				Help:      "Total capture attempts by outcome",
			},
			[]string{"outcome"},
		),

		TaggedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: registrySubsystem,
				Name:      "tagged_total",
				Help:      "Total octopi that received a name",
			},
		),

		TagBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: registrySubsystem,
				Name:      "tag_batch_size",
				Help:      "Number of octopi moved per tag call",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
			},
		),

		TagDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: registrySubsystem,
				Name:      "tag_duration_seconds",
				Help:      "Duration of tag calls in seconds",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
		),

		Population: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: registrySubsystem,
				Name:      "octopi",
				Help:      "Current number of octopi per sack",
			},
			[]string{"sack"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: registrySubsystem,
				Name:      "errors_total",
				Help:      "Total request errors by endpoint and code",
			},
			[]string{"endpoint", "error_code"},
		),

		WatchSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: registrySubsystem,
				Name:      "watch_subscribers",
				Help:      "Number of connected event watchers",
			},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates a malformed request body.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeUpgrade indicates a failed websocket upgrade.
	ErrorCodeUpgrade ErrorCode = "upgrade"

	// ErrorCodeClientDisconnect indicates the client went away mid stream.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// Endpoint represents a registry endpoint for metrics labeling.
type Endpoint string

const (
	EndpointSpotCheck Endpoint = "spot_check"
	EndpointCapture   Endpoint = "capture"
	EndpointTag       Endpoint = "tag"
	EndpointWatch     Endpoint = "watch"
)

const (
	outcomeFound  = "found"
	outcomeMissed = "missed"

	sackUntagged = "untagged"
	sackTagged   = "tagged"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordCapture records one capture attempt.
func (m *OctopiMetrics) RecordCapture(found bool) {
	outcome := outcomeFound
	if !found {
		outcome = outcomeMissed
	}
	m.CapturesTotal.WithLabelValues(outcome).Inc()
}

// RecordTag records a completed tag call.
//
// # Inputs
//
//   - moved: Number of octopi the call tagged.
//   - seconds: Call duration in seconds.
func (m *OctopiMetrics) RecordTag(moved int, seconds float64) {
	m.TaggedTotal.Add(float64(moved))
	m.TagBatchSize.Observe(float64(moved))
	m.TagDurationSeconds.Observe(seconds)
}

// ObservePopulation sets the sack gauges.
func (m *OctopiMetrics) ObservePopulation(untagged, tagged int) {
	m.Population.WithLabelValues(sackUntagged).Set(float64(untagged))
	m.Population.WithLabelValues(sackTagged).Set(float64(tagged))
}

// RecordError records a request error.
func (m *OctopiMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// WatchStarted increments the watcher gauge.
func (m *OctopiMetrics) WatchStarted() {
	m.WatchSubscribers.Inc()
}

// WatchEnded decrements the watcher gauge.
func (m *OctopiMetrics) WatchEnded() {
	m.WatchSubscribers.Dec()
}
