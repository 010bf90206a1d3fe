// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/pipewatch/internal/auth"
)

// Router wires handlers and middleware into the Chi route tree.
type Router struct {
	handler       *Handler
	authMW        *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates the router. The auth middleware may be nil only in
// tests that exercise unauthenticated routes.
func NewRouter(handler *Handler, authMW *auth.Middleware, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		authMW:        authMW,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// SetupChi builds the full route tree.
//
// Webhook ingestion and the event stream stay outside the
// authenticated API group: providers cannot hold a session, and the
// dashboard opens the stream before login completes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/webhooks", func(r chi.Router) {
		r.With(router.chiMiddleware.RateLimitWebhook()).
			Post("/github", router.handler.WebhookIngest)
		r.Get("/events", router.handler.StreamEvents)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(SecurityHeaders())

		r.With(router.chiMiddleware.RateLimitLogin()).
			Post("/login", router.handler.Login)
		r.Get("/github/start", router.handler.GitHubStart)
		r.Get("/github/callback", router.handler.GitHubCallback)

		r.Group(func(r chi.Router) {
			r.Use(router.authMW.RequireAuth)
			r.Post("/logout", router.handler.Logout)
			r.Get("/me", router.handler.Me)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(router.authMW.RequireAuth)

		r.Get("/runs", router.handler.ListRuns)
		r.Get("/runs/{runID}/jobs", router.handler.ListRunJobs)
		r.Get("/jobs/{jobID}/logs", router.handler.GetJobLogs)
		r.Get("/events/recent", router.handler.RecentEvents)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
