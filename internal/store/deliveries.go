// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pipewatch/internal/metrics"
	"github.com/tomtom215/pipewatch/internal/models"
)

// SaveDelivery persists one webhook delivery and returns its assigned
// identifier and persistence timestamp. The returned values populate
// the envelope broadcast to stream subscribers.
func (db *DB) SaveDelivery(ctx context.Context, event string, payload json.RawMessage) (int64, time.Time, error) {
	receivedAt := time.Now().UTC()

	var id int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO webhook_deliveries (event, payload, received_at)
		 VALUES (?, ?, ?)
		 RETURNING id`,
		event, string(payload), receivedAt,
	).Scan(&id)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to save delivery: %w", err)
	}

	return id, receivedAt, nil
}

// RecentDeliveries returns the most recent deliveries, newest first.
func (db *DB) RecentDeliveries(ctx context.Context, limit int) ([]models.WebhookRecord, error) {
	if limit < 1 {
		limit = 1
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, event, payload, received_at
		 FROM webhook_deliveries
		 ORDER BY received_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]models.WebhookRecord, 0, limit)
	for rows.Next() {
		var (
			rec     models.WebhookRecord
			payload string
		)
		if err := rows.Scan(&rec.ID, &rec.Event, &payload, &rec.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deliveries: %w", err)
	}

	return records, nil
}

// PruneDeliveries removes deliveries received before the cutoff and
// returns the number of rows removed.
func (db *DB) PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM webhook_deliveries WHERE received_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune deliveries: %w", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned deliveries: %w", err)
	}
	if pruned > 0 {
		metrics.DeliveriesPruned.Add(float64(pruned))
	}
	return pruned, nil
}

// CountDeliveries returns the total number of stored deliveries.
func (db *DB) CountDeliveries(ctx context.Context) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM webhook_deliveries`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}
