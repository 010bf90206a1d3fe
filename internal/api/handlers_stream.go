// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pipewatch/internal/logging"
	"github.com/tomtom215/pipewatch/internal/models"
)

// Stream event types.
const (
	streamTypeConnected = "connected"
	streamTypeWebhook   = "webhook"
	streamTypeHeartbeat = "heartbeat"
)

// streamEvent is one server-sent event on the /webhooks/events feed.
// Exactly one of Message, Data, or Listeners is populated depending on
// Type; Timestamp is when the message was constructed.
type streamEvent struct {
	Type      string                  `json:"type"`
	Message   string                  `json:"message,omitempty"`
	Data      *models.WebhookEnvelope `json:"data,omitempty"`
	Listeners *int                    `json:"listeners,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// StreamEvents serves the live webhook feed over server-sent events.
// The connected frame is written before the subscription is
// registered, so it always precedes webhook and heartbeat frames.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError,
			"streaming is not supported by this connection", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeStreamEvent(w, streamEvent{
		Type:      streamTypeConnected,
		Message:   "connected to webhook event stream",
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return
	}
	flusher.Flush()

	sub := h.broadcaster.Subscribe()
	defer sub.Close()

	logging.Debug().
		Str("remote", sanitizeLogValue(r.RemoteAddr)).
		Int("listeners", h.broadcaster.ListenerCount()).
		Msg("Stream client connected")

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logging.Debug().
				Str("remote", sanitizeLogValue(r.RemoteAddr)).
				Msg("Stream client disconnected")
			return

		case env, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeStreamEvent(w, streamEvent{
				Type:      streamTypeWebhook,
				Data:      &env,
				Timestamp: time.Now().UTC(),
			}); err != nil {
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			listeners := h.broadcaster.ListenerCount()
			if err := writeStreamEvent(w, streamEvent{
				Type:      streamTypeHeartbeat,
				Listeners: &listeners,
				Timestamp: time.Now().UTC(),
			}); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeStreamEvent encodes an event as a single SSE data frame.
func writeStreamEvent(w http.ResponseWriter, event streamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
