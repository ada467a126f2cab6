// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides gin middleware for the octopus server.
//
// # Request Flow
//
//	Request
//	   │
//	   ▼
//	otelgin (server span)
//	   │
//	   ▼
//	RequestID ──► X-Request-ID header, gin context, span attribute
//	   │
//	   ▼
//	AccessLog ──► request-scoped slog.Logger, one line per request
//	   │
//	   ▼
//	Handler (retrieves via GetRequestID / RequestLogger)
package middleware

import (
	"github.com/AleutianAI/OctoJourney/services/octopi/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Context Keys
// =============================================================================

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is the gin context key for the request ID.
const requestIDKey = "octo_request_id"

// SetRequestID stores id in the gin context.
func SetRequestID(c *gin.Context, id string) {
	c.Set(requestIDKey, id)
}

// GetRequestID returns the request ID stored by RequestID, or "" if the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// =============================================================================
// Middleware
// =============================================================================

// RequestID assigns every request an ID.
//
// # Description
//
// An incoming X-Request-ID is reused when it parses as a UUID (normalized to
// canonical form). Anything else is replaced by a fresh v4 UUID. The ID is
// echoed on the response, stored in the gin context and set as the
// http.request_id attribute of the active span.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		if parsed, err := uuid.Parse(c.GetHeader(HeaderRequestID)); err == nil {
			id = parsed.String()
		}

		c.Header(HeaderRequestID, id)
		SetRequestID(c, id)
		telemetry.SetAttributes(c.Request.Context(), attribute.String("http.request_id", id))

		c.Next()
	}
}
