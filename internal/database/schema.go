// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}
	return nil
}

// Genres are stored as one comma-separated column and cast as four fixed
// columns, matching the catalog import format.
var tableQueries = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id BIGINT PRIMARY KEY,
		title VARCHAR NOT NULL,
		genre VARCHAR NOT NULL DEFAULT '',
		director VARCHAR NOT NULL DEFAULT '',
		synopsis VARCHAR NOT NULL DEFAULT '',
		cast_1 VARCHAR,
		cast_2 VARCHAR,
		cast_3 VARCHAR,
		cast_4 VARCHAR,
		vote_count INTEGER NOT NULL DEFAULT 0,
		external_rating DOUBLE NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	);`,
	`CREATE SEQUENCE IF NOT EXISTS interactions_id_seq START 1;`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id BIGINT PRIMARY KEY DEFAULT nextval('interactions_id_seq'),
		user_id BIGINT NOT NULL,
		item_id BIGINT NOT NULL,
		interaction_type VARCHAR NOT NULL,
		weight DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`,
}

var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user_item ON interactions(user_id, item_id);`,
}
