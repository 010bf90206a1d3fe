// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package models defines the data structures shared across pipewatch:
// webhook envelopes broadcast to dashboard clients, persisted delivery
// records, and the GitHub Actions workflow types returned by the API.
package models
