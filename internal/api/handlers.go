// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pipewatch/internal/auth"
	"github.com/tomtom215/pipewatch/internal/broadcast"
	"github.com/tomtom215/pipewatch/internal/config"
	"github.com/tomtom215/pipewatch/internal/github"
	"github.com/tomtom215/pipewatch/internal/models"
)

// DeliveryStore is the durable webhook store the ingestion endpoint
// persists to. Implemented by store.DB for production and by fakes in
// tests.
type DeliveryStore interface {
	SaveDelivery(ctx context.Context, event string, payload json.RawMessage) (int64, time.Time, error)
	RecentDeliveries(ctx context.Context, limit int) ([]models.WebhookRecord, error)
	Ping(ctx context.Context) error
}

// Handler processes HTTP requests for all pipewatch endpoints.
type Handler struct {
	db          DeliveryStore
	broadcaster *broadcast.Broadcaster
	github      github.ClientInterface
	config      *config.Config
	jwtManager  *auth.JWTManager
	sessions    auth.SessionManager
	startTime   time.Time

	// heartbeatInterval is taken from configuration; tests shorten it.
	heartbeatInterval time.Duration
}

// NewHandler creates the API handler with its collaborators.
func NewHandler(
	db DeliveryStore,
	broadcaster *broadcast.Broadcaster,
	ghClient github.ClientInterface,
	cfg *config.Config,
	jwtManager *auth.JWTManager,
	sessions auth.SessionManager,
) *Handler {
	return &Handler{
		db:                db,
		broadcaster:       broadcaster,
		github:            ghClient,
		config:            cfg,
		jwtManager:        jwtManager,
		sessions:          sessions,
		startTime:         time.Now(),
		heartbeatInterval: cfg.Stream.HeartbeatInterval,
	}
}

// parsePositiveInt parses a positive integer query parameter, clamped
// to max. The second return is false for anything non-numeric or < 1.
func parsePositiveInt(raw string, max int) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}
