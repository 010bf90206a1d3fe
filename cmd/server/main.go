// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package main is the entry point for the pipewatch server.
//
// Pipewatch is a self-hosted CI/CD monitoring dashboard. It ingests
// GitHub webhook deliveries, persists them to DuckDB, relays them to
// dashboard clients over server-sent events, and proxies workflow run
// queries to the GitHub REST API.
//
// The server initializes components in order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, config file,
//     environment variables)
//  2. Database: DuckDB delivery store
//  3. Sessions: BadgerDB session store with TTL expiry
//  4. GitHub client: rate-limited REST client behind a circuit breaker
//  5. Broadcaster: in-process webhook fan-out for the event stream
//  6. HTTP server: Chi route tree
//  7. Supervisor tree: suture-managed lifecycle of all of the above
//
// Configuration (highest priority wins): environment variables, then
// the config file named by CONFIG_PATH (or config.yaml in a default
// location), then built-in defaults.
//
// Required for GitHub API access:
//   - GITHUB_TOKEN: personal access token or app token
//   - GITHUB_OWNER, GITHUB_REPO: the repository to monitor
//
// For JWT-backed dashboard login:
//   - JWT_SECRET: 32+ character secret (enforced in production)
//   - ADMIN_USERNAME, ADMIN_PASSWORD: credential login
//   - GITHUB_OAUTH_CLIENT_ID, GITHUB_OAUTH_CLIENT_SECRET,
//     GITHUB_OAUTH_REDIRECT_URL: optional GitHub OAuth login
//
// The server shuts down gracefully on SIGINT and SIGTERM: in-flight
// requests get a bounded drain window, event stream subscribers are
// closed, then the database and session store close last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/pipewatch/internal/api"
	"github.com/tomtom215/pipewatch/internal/auth"
	"github.com/tomtom215/pipewatch/internal/broadcast"
	"github.com/tomtom215/pipewatch/internal/config"
	"github.com/tomtom215/pipewatch/internal/github"
	"github.com/tomtom215/pipewatch/internal/logging"
	"github.com/tomtom215/pipewatch/internal/store"
	"github.com/tomtom215/pipewatch/internal/supervisor"
	"github.com/tomtom215/pipewatch/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Configure(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("repository", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo).
		Msg("Starting pipewatch")

	db, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open delivery store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing delivery store")
		}
	}()

	sessions, err := auth.NewBadgerSessionStore(cfg.Security.SessionStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	var jwtManager *auth.JWTManager
	var authMW *auth.Middleware
	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  All endpoints are publicly accessible.")
		logging.Warn().Msg("  Use only for local development or isolated networks.")
		logging.Warn().Msg("============================================================")
		authMW = auth.NewDisabledMiddleware()
	} else {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		authMW = auth.NewMiddleware(jwtManager, sessions)
		logging.Info().Msg("JWT authentication enabled")
	}

	// Circuit breaker keeps a flapping GitHub API from stalling every
	// dashboard request.
	ghClient := github.NewCircuitBreakerClient(&cfg.GitHub)
	if cfg.GitHub.Token != "" {
		if err := ghClient.Ping(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("GitHub API not reachable yet (will retry on demand)")
		} else {
			logging.Info().Msg("Connected to GitHub API")
		}
	} else {
		logging.Warn().Msg("No GitHub token configured; workflow run views will fail")
	}

	broadcaster := broadcast.NewBroadcaster(cfg.Stream.BufferSize)

	handler := api.NewHandler(db, broadcaster, ghClient, cfg, jwtManager, sessions)
	router := api.NewRouter(handler, authMW, &api.ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.Security.CORSOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization"},
		CORSAllowCredentials: true,
		CORSMaxAge:           86400,
		RateLimitRequests:    cfg.Security.RateLimitReqs,
		RateLimitWindow:      cfg.Security.RateLimitWindow,
		RateLimitDisabled:    cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: 0, // the event stream holds connections open
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddStreamService(services.NewBroadcastService(broadcaster))
	tree.AddStreamService(services.NewRetentionService(db, cfg.Database.RetentionDays, cfg.Database.PruneInterval))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Pipewatch stopped gracefully")
}
