// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// WebhookEnvelope is the unit of work flowing from webhook ingestion
// to connected dashboard clients. RecordID and Timestamp are assigned
// by the durable store before the envelope is broadcast, so every
// event a client sees is traceable to a persisted row.
type WebhookEnvelope struct {
	// Event is the webhook event kind, taken from the X-GitHub-Event
	// header. "unknown" when the header was absent.
	Event string `json:"event"`

	// Payload is the raw webhook body. Kept opaque: pipewatch relays
	// provider payloads without interpreting their schema.
	Payload json.RawMessage `json:"payload"`

	// RecordID is the store-assigned delivery identifier.
	RecordID int64 `json:"recordId"`

	// Timestamp is the store-assigned persistence time.
	Timestamp time.Time `json:"timestamp"`
}

// WebhookRecord is a persisted webhook delivery as read back from the
// store, used by the recent-deliveries API.
type WebhookRecord struct {
	ID         int64           `json:"id"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
