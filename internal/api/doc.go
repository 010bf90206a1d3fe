// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package api implements the HTTP surface: webhook ingestion, the
// server-sent event stream, workflow run queries proxied to GitHub,
// session auth, and health endpoints. Routing uses Chi with CORS and
// per-route-group rate limits.
//
// The ingestion path persists every delivery before broadcasting it,
// so stream clients only ever see events that are already durable.
package api
