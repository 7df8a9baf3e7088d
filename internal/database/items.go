// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tomtom215/reelmatch/internal/metrics"
	"github.com/tomtom215/reelmatch/internal/recommend"
)

// maxCast is the number of cast columns in the movies table.
const maxCast = 4

const itemColumns = `id, title, genre, director, synopsis, cast_1, cast_2, cast_3, cast_4, vote_count, external_rating`

// UpsertItem inserts a movie or replaces the stored one with the same ID.
// Cast members beyond the fourth are dropped.
func (db *DB) UpsertItem(ctx context.Context, item *recommend.Item) (err error) {
	if item.ID <= 0 {
		return fmt.Errorf("item id must be positive, got %d", item.ID)
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("item %d: title is required", item.ID)
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert_item", time.Since(start), err) }()

	cast := make([]sql.NullString, maxCast)
	for i, name := range lo.Compact(item.Cast) {
		if i >= maxCast {
			break
		}
		cast[i] = sql.NullString{String: name, Valid: true}
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO movies (`+itemColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			genre = EXCLUDED.genre,
			director = EXCLUDED.director,
			synopsis = EXCLUDED.synopsis,
			cast_1 = EXCLUDED.cast_1,
			cast_2 = EXCLUDED.cast_2,
			cast_3 = EXCLUDED.cast_3,
			cast_4 = EXCLUDED.cast_4,
			vote_count = EXCLUDED.vote_count,
			external_rating = EXCLUDED.external_rating,
			updated_at = now()`,
		item.ID, item.Title, strings.Join(item.Genres, ","), item.Director, item.Synopsis,
		cast[0], cast[1], cast[2], cast[3], item.VoteCount, item.ExternalRating)
	if err != nil {
		return fmt.Errorf("failed to upsert item %d: %w", item.ID, err)
	}
	return nil
}

// Items returns the full catalog ordered by ID.
func (db *DB) Items(ctx context.Context) (items []recommend.Item, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("items", time.Since(start), err) }()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+itemColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItem returns one movie, or an error matching recommend.ErrItemNotFound.
func (db *DB) GetItem(ctx context.Context, id int) (item *recommend.Item, err error) {
	start := time.Now()
	defer func() {
		var notFound *recommend.ItemNotFoundError
		if errors.As(err, &notFound) {
			metrics.RecordDBQuery("get_item", time.Since(start), nil)
			return
		}
		metrics.RecordDBQuery("get_item", time.Since(start), err)
	}()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM movies WHERE id = ?`, id)
	item, err = scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &recommend.ItemNotFoundError{ItemID: id}
	}
	return item, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*recommend.Item, error) {
	var (
		item  recommend.Item
		genre string
		cast  [maxCast]sql.NullString
	)
	err := row.Scan(&item.ID, &item.Title, &genre, &item.Director, &item.Synopsis,
		&cast[0], &cast[1], &cast[2], &cast[3], &item.VoteCount, &item.ExternalRating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	item.Genres = splitAndTrim(genre)
	for _, c := range cast {
		if c.Valid && strings.TrimSpace(c.String) != "" {
			item.Cast = append(item.Cast, c.String)
		}
	}
	return &item, nil
}

// splitAndTrim splits a comma-separated list and drops empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
