// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP handlers of the octopus server.
//
// Each exported Handle* function closes over its dependencies and returns a
// gin.HandlerFunc; routes.SetupRoutes wires them to paths.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/AleutianAI/OctoJourney/services/octopi/datatypes"
	"github.com/AleutianAI/OctoJourney/services/octopi/middleware"
	"github.com/AleutianAI/OctoJourney/services/octopi/observability"
	"github.com/AleutianAI/OctoJourney/services/octopi/registry"
	"github.com/AleutianAI/OctoJourney/services/octopi/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// NotFoundMessage is the plain-text body for unknown routes.
const NotFoundMessage = "Route not found. Maybe some nasty octopus moved it..."

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleNotFound answers any unregistered route.
func HandleNotFound(c *gin.Context) {
	middleware.RequestLogger(c).Info("Route not found!", "path", c.Request.URL.Path)
	c.String(http.StatusNotFound, NotFoundMessage)
}

// HandleSpotCheck returns a consistent snapshot of both sacks.
func HandleSpotCheck(reg *registry.Registry, metrics *observability.OctopiMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := reg.Snapshot()
		metrics.ObservePopulation(len(snap.UntaggedOctopi), len(snap.TaggedOctopi))

		telemetry.SetAttributes(c.Request.Context(),
			attribute.Int("octopi.untagged", len(snap.UntaggedOctopi)),
			attribute.Int("octopi.tagged", len(snap.TaggedOctopi)),
		)
		c.JSON(http.StatusOK, snap)
	}
}

// HandleCapture attempts to capture one octopus.
//
// # Description
//
// The body is optional. {"roll": n} pins the roll, otherwise the registry
// rolls. A found octopus is answered with 201 and the new record; a miss
// with 200 and NoOctopusMessage. A malformed body or out-of-range roll is a
// 400 and leaves the registry untouched.
func HandleCapture(reg *registry.Registry, metrics *observability.OctopiMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := middleware.RequestLogger(c)

		var req datatypes.CaptureRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			rejectCapture(c, metrics, "Invalid request body", err)
			return
		}
		if err := req.Validate(); err != nil {
			rejectCapture(c, metrics, "Roll out of range", err)
			return
		}

		var roll uint
		if req.Roll != nil {
			roll = *req.Roll
		} else {
			roll = reg.Roll()
		}

		captured, found := reg.Capture(roll)
		metrics.RecordCapture(found)
		telemetry.SetAttributes(ctx,
			attribute.Int("octopi.roll", int(roll)),
			attribute.Bool("octopi.found", found),
		)

		if !found {
			logger.Debug("Capture missed", "roll", roll)
			c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.NoOctopusMessage})
			return
		}

		logger.Info("Octopus captured",
			"id", captured.ID,
			"feature", captured.Octopus.IdentifyingFeature,
			"roll", roll)
		c.JSON(http.StatusCreated, captured)
	}
}

func rejectCapture(c *gin.Context, metrics *observability.OctopiMetrics, msg string, err error) {
	metrics.RecordError(observability.EndpointCapture, observability.ErrorCodeValidation)
	telemetry.RecordError(c.Request.Context(), err)
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: msg, Details: err.Error()})
}

// HandleTag names every untagged octopus in one batch.
func HandleTag(reg *registry.Registry, metrics *observability.OctopiMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		batch := reg.TagAll(c.Request.Context())
		metrics.RecordTag(len(batch), time.Since(start).Seconds())
		metrics.ObservePopulation(reg.Counts())

		if len(batch) > 0 {
			middleware.RequestLogger(c).Info("Octopi tagged",
				"count", len(batch),
				"first", batch[0].Octopus.Name,
				"last", batch[len(batch)-1].Octopus.Name)
		}
		c.JSON(http.StatusOK, datatypes.NewTagResponse(batch))
	}
}
