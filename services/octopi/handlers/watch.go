// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AleutianAI/OctoJourney/services/octopi/events"
	"github.com/AleutianAI/OctoJourney/services/octopi/middleware"
	"github.com/AleutianAI/OctoJourney/services/octopi/observability"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 5 * time.Second

	// pingInterval keeps idle watch connections alive through proxies.
	pingInterval = 30 * time.Second
)

// errFeedClosed ends a watch when the hub shuts down.
var errFeedClosed = errors.New("event feed closed")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// HandleWatch streams registry events over a WebSocket.
//
// # Description
//
// The subscription is taken before the upgrade, so every event published
// after the client's handshake completes is delivered. Each event is one
// JSON text frame. Client frames are read and discarded; a client close or
// read error ends the stream.
//
// # Thread Safety
//
// Only the writer goroutine writes data frames. The reader goroutine only
// reads, which gorilla/websocket allows concurrently with one writer.
func HandleWatch(hub *events.Hub, metrics *observability.OctopiMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c)

		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			metrics.RecordError(observability.EndpointWatch, observability.ErrorCodeUpgrade)
			logger.Warn("Failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		metrics.WatchStarted()
		defer metrics.WatchEnded()
		logger.Info("Watcher connected", "remote", ws.RemoteAddr().String())

		g, ctx := errgroup.WithContext(c.Request.Context())

		g.Go(func() error {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return err
				}
			}
		})

		g.Go(func() error {
			// Closing the conn unblocks the reader when the writer stops first.
			defer ws.Close()
			return writeEvents(ctx, ws, sub)
		})

		err = g.Wait()
		switch {
		case errors.Is(err, errFeedClosed):
			logger.Info("Watcher closed by server")
		case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
			logger.Info("Watcher disconnected")
		default:
			metrics.RecordError(observability.EndpointWatch, observability.ErrorCodeClientDisconnect)
			logger.Debug("Watcher stream ended", "error", err)
		}
	}
}

// writeEvents forwards subscription events to ws until ctx ends, the feed
// closes or a write fails.
func writeEvents(ctx context.Context, ws *websocket.Conn, sub *events.Subscription) error {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-sub.C():
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return errFeedClosed
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(e); err != nil {
				return err
			}

		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}
