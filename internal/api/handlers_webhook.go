// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pipewatch/internal/logging"
	"github.com/tomtom215/pipewatch/internal/metrics"
	"github.com/tomtom215/pipewatch/internal/models"
)

// maxWebhookBodySize caps inbound webhook payloads.
const maxWebhookBodySize = 10 << 20 // 10MB

// unknownEventKind is used when a delivery arrives without the
// X-GitHub-Event header.
const unknownEventKind = "unknown"

// webhookIngestResponse is the ingestion endpoint's response shape.
// Wire names match what providers and the dashboard expect.
type webhookIngestResponse struct {
	Success   bool      `json:"success"`
	RecordID  int64     `json:"recordId,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// WebhookIngest accepts a provider webhook delivery. The sequence is
// fixed: parse, persist, construct the envelope from store-assigned
// values, publish to the broadcaster, respond. Persisting before
// publishing keeps every broadcast event traceable to a durable row.
func (h *Handler) WebhookIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		metrics.RecordWebhookError("read")
		respondJSON(w, http.StatusBadRequest, &webhookIngestResponse{
			Success: false, Error: "failed to read request body",
		})
		return
	}

	if secret := h.config.GitHub.WebhookSecret; secret != "" {
		if !verifySignature(secret, body, r.Header.Get("X-Hub-Signature-256")) {
			metrics.RecordWebhookError("signature")
			logging.Warn().
				Str("remote", sanitizeLogValue(r.RemoteAddr)).
				Msg("Webhook delivery rejected: bad signature")
			respondJSON(w, http.StatusUnauthorized, &webhookIngestResponse{
				Success: false, Error: "invalid signature",
			})
			return
		}
	}

	// The payload stays opaque, but it must at least be valid JSON so
	// stream clients can parse the envelope.
	if !json.Valid(body) {
		metrics.RecordWebhookError("parse")
		respondJSON(w, http.StatusBadRequest, &webhookIngestResponse{
			Success: false, Error: "request body is not valid JSON",
		})
		return
	}

	event := r.Header.Get("X-GitHub-Event")
	if event == "" {
		event = unknownEventKind
		logging.Warn().
			Str("remote", sanitizeLogValue(r.RemoteAddr)).
			Msg("Webhook delivery without X-GitHub-Event header")
	}

	recordID, timestamp, err := h.db.SaveDelivery(r.Context(), event, body)
	if err != nil {
		metrics.RecordWebhookError("persist")
		logging.Error().Err(err).Str("event", sanitizeLogValue(event)).
			Msg("Failed to persist webhook delivery")
		respondJSON(w, http.StatusInternalServerError, &webhookIngestResponse{
			Success: false, Error: "failed to persist delivery",
		})
		return
	}

	h.broadcaster.Publish(models.WebhookEnvelope{
		Event:     event,
		Payload:   body,
		RecordID:  recordID,
		Timestamp: timestamp,
	})

	metrics.RecordWebhookReceived(event)
	logging.Info().
		Str("event", sanitizeLogValue(event)).
		Int64("record_id", recordID).
		Int("listeners", h.broadcaster.ListenerCount()).
		Msg("Webhook delivery ingested")

	respondJSON(w, http.StatusOK, &webhookIngestResponse{
		Success:   true,
		RecordID:  recordID,
		Timestamp: timestamp,
	})
}

// verifySignature checks a GitHub X-Hub-Signature-256 header
// ("sha256=<hex hmac>") against the request body.
func verifySignature(secret string, body []byte, header string) bool {
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	expected, err := hex.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// RecentEvents returns the most recently persisted deliveries, newest
// first, for dashboard backfill after reconnect.
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := h.config.API.DefaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, ok := parsePositiveInt(raw, h.config.API.MaxPageSize)
		if !ok {
			respondError(w, http.StatusBadRequest, ErrCodeValidationFailed,
				"limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	records, err := h.db.RecentDeliveries(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError,
			"failed to load recent events", err)
		return
	}

	respondSuccessWithMeta(w, records, &PaginationMeta{
		Count:   len(records),
		PerPage: limit,
		HasMore: len(records) == limit,
	})
}
