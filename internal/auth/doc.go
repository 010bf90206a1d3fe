// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package auth provides dashboard authentication: JWT issuance and
// validation, durable server-side sessions backed by BadgerDB, local
// admin password login, and the state handshake for GitHub OAuth.
package auth
