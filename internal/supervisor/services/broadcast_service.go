// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package services

import (
	"context"

	"github.com/tomtom215/pipewatch/internal/broadcast"
)

// BroadcastService ties the broadcaster's lifetime to the supervision
// tree: when the tree shuts down, every subscriber channel is closed
// and stream handlers unwind.
type BroadcastService struct {
	broadcaster *broadcast.Broadcaster
}

// NewBroadcastService wraps a broadcaster for supervision.
func NewBroadcastService(b *broadcast.Broadcaster) *BroadcastService {
	return &BroadcastService{broadcaster: b}
}

// Serve implements suture.Service.
func (s *BroadcastService) Serve(ctx context.Context) error {
	return s.broadcaster.Run(ctx)
}

// String identifies the service in suture logs.
func (s *BroadcastService) String() string {
	return "event-broadcaster"
}
