// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package metrics exposes Prometheus instrumentation for pipewatch.
// All collectors are registered with the default registry via promauto
// and served from the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceived counts inbound webhook deliveries by event kind.
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipewatch",
		Subsystem: "webhook",
		Name:      "received_total",
		Help:      "Total webhook deliveries received, by event kind.",
	}, []string{"event"})

	// WebhookErrors counts ingestion failures by stage (parse, persist).
	WebhookErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipewatch",
		Subsystem: "webhook",
		Name:      "errors_total",
		Help:      "Total webhook ingestion failures, by stage.",
	}, []string{"stage"})

	// StreamSubscribers tracks the broadcaster's current listener count.
	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pipewatch",
		Subsystem: "stream",
		Name:      "subscribers",
		Help:      "Current number of event stream subscribers.",
	})

	// StreamEventsPublished counts envelopes published to the broadcaster.
	StreamEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipewatch",
		Subsystem: "stream",
		Name:      "events_published_total",
		Help:      "Total events published to the broadcaster.",
	})

	// StreamEventsDropped counts envelopes dropped because a subscriber
	// buffer was full.
	StreamEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipewatch",
		Subsystem: "stream",
		Name:      "events_dropped_total",
		Help:      "Total events dropped due to slow subscribers.",
	})

	// GitHubRequests counts upstream GitHub API requests by endpoint and
	// status class.
	GitHubRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipewatch",
		Subsystem: "github",
		Name:      "requests_total",
		Help:      "Total GitHub API requests, by endpoint and status.",
	}, []string{"endpoint", "status"})

	// GitHubRequestDuration observes upstream GitHub API latency.
	GitHubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pipewatch",
		Subsystem: "github",
		Name:      "request_duration_seconds",
		Help:      "GitHub API request latency distribution.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// CircuitBreakerState reports the GitHub client breaker state
	// (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pipewatch",
		Subsystem: "github",
		Name:      "circuit_breaker_state",
		Help:      "GitHub client circuit breaker state (0=closed, 1=half-open, 2=open).",
	})

	// HTTPRequestDuration observes inbound request latency by route and
	// method.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pipewatch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Inbound HTTP request latency distribution.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// DeliveriesPruned counts rows removed by the retention service.
	DeliveriesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipewatch",
		Subsystem: "store",
		Name:      "deliveries_pruned_total",
		Help:      "Total webhook delivery rows removed by retention pruning.",
	})
)

// RecordWebhookReceived increments the received counter for an event
// kind.
func RecordWebhookReceived(event string) {
	WebhooksReceived.WithLabelValues(event).Inc()
}

// RecordWebhookError increments the ingestion failure counter for a
// stage.
func RecordWebhookError(stage string) {
	WebhookErrors.WithLabelValues(stage).Inc()
}

// SetStreamSubscribers records the current broadcaster listener count.
func SetStreamSubscribers(n int) {
	StreamSubscribers.Set(float64(n))
}

// RecordGitHubRequest records one upstream API call.
func RecordGitHubRequest(endpoint, status string, seconds float64) {
	GitHubRequests.WithLabelValues(endpoint, status).Inc()
	GitHubRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// SetCircuitBreakerState records the breaker state gauge.
func SetCircuitBreakerState(state float64) {
	CircuitBreakerState.Set(state)
}
