// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"

	"github.com/AleutianAI/OctoJourney/services/octopi/events"
	"github.com/AleutianAI/OctoJourney/services/octopi/handlers"
	"github.com/AleutianAI/OctoJourney/services/octopi/observability"
	"github.com/AleutianAI/OctoJourney/services/octopi/registry"
	"github.com/gin-gonic/gin"
)

// Deps carries everything the handlers close over.
type Deps struct {
	Registry *registry.Registry
	Hub      *events.Hub
	Metrics  *observability.OctopiMetrics

	// MetricsHandler serves /metrics. Nil leaves the route unregistered.
	MetricsHandler http.Handler

	// Version is reported in the OpenAPI document.
	Version string
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET(handlers.OpenAPIPath, handlers.HandleOpenAPI(deps.Version))
	router.GET("/swagger-ui", handlers.HandleSwaggerUI(handlers.OpenAPIPath))
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/spot-check", handlers.HandleSpotCheck(deps.Registry, deps.Metrics))
		v1.POST("/capture", handlers.HandleCapture(deps.Registry, deps.Metrics))
		v1.POST("/tag", handlers.HandleTag(deps.Registry, deps.Metrics))
		v1.GET("/watch", handlers.HandleWatch(deps.Hub, deps.Metrics))
	}

	router.NoRoute(handlers.HandleNotFound)
}
