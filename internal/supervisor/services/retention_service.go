// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package services

import (
	"context"
	"time"

	"github.com/tomtom215/pipewatch/internal/logging"
)

// Pruner deletes webhook deliveries older than the cutoff. Implemented
// by store.DB.
type Pruner interface {
	PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService periodically deletes deliveries older than the
// retention window. Prune failures are logged and retried on the next
// tick rather than crashing the service.
type RetentionService struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
}

// NewRetentionService creates the pruner. retentionDays and interval
// must both be positive; config validation enforces that.
func NewRetentionService(pruner Pruner, retentionDays int, interval time.Duration) *RetentionService {
	return &RetentionService{
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
	}
}

// Serve implements suture.Service. One prune runs immediately so a
// process that restarts rarely still enforces retention.
func (s *RetentionService) Serve(ctx context.Context) error {
	s.prune(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *RetentionService) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)
	pruned, err := s.pruner.PruneDeliveries(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Time("cutoff", cutoff).
			Msg("Retention prune failed")
		return
	}
	if pruned > 0 {
		logging.Info().Int64("pruned", pruned).Time("cutoff", cutoff).
			Msg("Pruned expired webhook deliveries")
	}
}

// String identifies the service in suture logs.
func (s *RetentionService) String() string {
	return "retention-pruner"
}
