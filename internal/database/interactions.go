// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/reelmatch/internal/metrics"
	"github.com/tomtom215/reelmatch/internal/recommend"
)

// RecordInteraction appends one interaction to the log. A zero weight is
// replaced by the type's default weight; ratings must carry their value.
func (db *DB) RecordInteraction(ctx context.Context, in recommend.Interaction) (err error) {
	if !in.Type.Valid() {
		return invalidInteraction("unknown type %q", in.Type)
	}
	if in.Weight < 0 || math.IsNaN(in.Weight) || math.IsInf(in.Weight, 0) {
		return invalidInteraction("weight must be a finite non-negative number")
	}
	if in.Weight == 0 {
		if in.Type == recommend.InteractionRate {
			return invalidInteraction("rate interactions require a weight")
		}
		in.Weight = in.Type.DefaultWeight()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("record_interaction", time.Since(start), err) }()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO interactions (user_id, item_id, interaction_type, weight, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		in.UserID, in.ItemID, string(in.Type), in.Weight, in.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	metrics.InteractionsRecorded.WithLabelValues(string(in.Type)).Inc()
	return nil
}

// AggregatedInteractions sums interaction weights per (user, item).
func (db *DB) AggregatedInteractions(ctx context.Context) (ratings []recommend.Rating, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("aggregated_interactions", time.Since(start), err) }()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, item_id, SUM(weight) AS value
		FROM interactions
		GROUP BY user_id, item_id
		ORDER BY user_id, item_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate interactions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var r recommend.Rating
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// UserInteractionCount returns the number of interaction records for userID.
func (db *DB) UserInteractionCount(ctx context.Context, userID int) (count int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("user_interaction_count", time.Since(start), err) }()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interactions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}

// UserInteractedItems returns the distinct items userID interacted with.
func (db *DB) UserInteractedItems(ctx context.Context, userID int) (items []int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("user_interacted_items", time.Since(start), err) }()

	return db.queryIDs(ctx,
		`SELECT DISTINCT item_id FROM interactions WHERE user_id = ? ORDER BY item_id`, userID)
}

// UserTopItems returns up to k items with the highest summed weight for
// userID. Ties go to the most recent interaction, then the lower item ID.
func (db *DB) UserTopItems(ctx context.Context, userID, k int) (items []int, err error) {
	if k <= 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("user_top_items", time.Since(start), err) }()

	return db.queryIDs(ctx, `
		SELECT item_id
		FROM interactions
		WHERE user_id = ?
		GROUP BY item_id
		ORDER BY SUM(weight) DESC, MAX(created_at) DESC, item_id
		LIMIT ?`, userID, k)
}

// CountInteractions returns the total number of interaction records.
func (db *DB) CountInteractions(ctx context.Context) (count int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("count_interactions", time.Since(start), err) }()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}

func (db *DB) queryIDs(ctx context.Context, query string, args ...any) ([]int, error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query item ids: %w", err)
	}
	defer closeWithLog(rows, "rows")
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int, error) {
	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
