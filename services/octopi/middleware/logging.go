// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/OctoJourney/services/octopi/telemetry"
	"github.com/gin-gonic/gin"
)

// loggerKey is the gin context key for the request-scoped logger.
const loggerKey = "octo_logger"

// RequestLogger returns the logger AccessLog attached to this request, or
// slog.Default() outside of it.
func RequestLogger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// AccessLog writes one structured line per request.
//
// # Description
//
// Before the handler runs, a child of base carrying request_id, trace_id
// and span_id is stored for RequestLogger. After the handler, the request is
// logged at Error for 5xx, Warn for 4xx and Info otherwise.
//
// # Inputs
//
//   - base: Parent logger. Nil uses slog.Default().
//
// # Assumptions
//
//   - RequestID runs earlier in the chain, otherwise request_id is empty.
func AccessLog(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		logger := base.With(
			"request_id", GetRequestID(c),
			"trace_id", telemetry.TraceID(ctx),
			"span_id", telemetry.SpanID(ctx),
		)
		c.Set(loggerKey, logger)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, "Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
		)
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			logger.Log(ctx, level, "Request errors", "errors", errs.String())
		}
	}
}
