// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/OctoJourney/services/octopi/events"
	"github.com/AleutianAI/OctoJourney/services/octopi/handlers"
	"github.com/AleutianAI/OctoJourney/services/octopi/observability"
	"github.com/AleutianAI/OctoJourney/services/octopi/registry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

func testDeps(withMetrics bool) Deps {
	promReg := prometheus.NewRegistry()
	deps := Deps{
		Registry: registry.New(),
		Hub:      events.NewHub(4),
		Metrics:  observability.NewMetrics(promReg),
		Version:  "test",
	}
	if withMetrics {
		deps.MetricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}
	return deps
}

func hasRoute(routes gin.RoutesInfo, method, path string) bool {
	for _, r := range routes {
		if r.Method == method && r.Path == path {
			return true
		}
	}
	return false
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersAll(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(true))

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/api-docs/openapi.json"},
		{"GET", "/swagger-ui"},
		{"GET", "/v1/spot-check"},
		{"POST", "/v1/capture"},
		{"POST", "/v1/tag"},
		{"GET", "/v1/watch"},
	}

	routes := router.Routes()
	for _, e := range expected {
		assert.True(t, hasRoute(routes, e.method, e.path), "missing %s %s", e.method, e.path)
	}
}

func TestSetupRoutes_MetricsOptional(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(false))

	assert.False(t, hasRoute(router.Routes(), "GET", "/metrics"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_SwaggerUIPointsAtDocument(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(false))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger-ui", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), handlers.OpenAPIPath)
}

func TestSetupRoutes_WrongMethodFallsBack(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(false))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/capture", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.NotFoundMessage, w.Body.String())
}

func TestSetupRoutes_MetricsExposition(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(true))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/capture", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "octo_journey_registry_captures_total")
}
