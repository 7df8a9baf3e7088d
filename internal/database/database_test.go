// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/reelmatch/internal/config"
	"github.com/tomtom215/reelmatch/internal/recommend"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:         ":memory:",
		MaxMemory:    "512MB",
		Threads:      2,
		QueryTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return db
}

func record(t *testing.T, db *DB, user, item int, typ recommend.InteractionType, weight float64, at time.Time) {
	t.Helper()
	err := db.RecordInteraction(context.Background(), recommend.Interaction{
		UserID: user, ItemID: item, Type: typ, Weight: weight, Timestamp: at,
	})
	if err != nil {
		t.Fatalf("RecordInteraction(%d, %d, %s) error = %v", user, item, typ, err)
	}
}

func TestNew_FileDatabase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "reelmatch.duckdb")
	db, err := New(&config.DatabaseConfig{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Reopening must not fail on the existing schema.
	db, err = New(&config.DatabaseConfig{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRecordInteraction_Validation(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	tests := []struct {
		name string
		in   recommend.Interaction
	}{
		{"unknown type", recommend.Interaction{UserID: 1, ItemID: 1, Type: "like"}},
		{"negative weight", recommend.Interaction{UserID: 1, ItemID: 1, Type: recommend.InteractionView, Weight: -1}},
		{"rate without weight", recommend.Interaction{UserID: 1, ItemID: 1, Type: recommend.InteractionRate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.RecordInteraction(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidInteraction) {
				t.Errorf("RecordInteraction() error = %v, want ErrInvalidInteraction", err)
			}
		})
	}

	count, err := db.CountInteractions(context.Background())
	if err != nil {
		t.Fatalf("CountInteractions() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountInteractions() = %d, want 0", count)
	}
}

func TestInteractionQueries(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	record(t, db, 1, 10, recommend.InteractionView, 0, base)                  // 1
	record(t, db, 1, 10, recommend.InteractionBook, 0, base.Add(time.Hour))   // 3
	record(t, db, 1, 20, recommend.InteractionRate, 4, base.Add(2*time.Hour)) // 4
	record(t, db, 1, 30, recommend.InteractionWatchComplete, 0, base)         // 2
	record(t, db, 1, 40, recommend.InteractionView, 2, base.Add(3*time.Hour)) // 2, newer
	record(t, db, 2, 10, recommend.InteractionView, 0, base)

	ratings, err := db.AggregatedInteractions(ctx)
	if err != nil {
		t.Fatalf("AggregatedInteractions() error = %v", err)
	}
	want := []recommend.Rating{
		{UserID: 1, ItemID: 10, Value: 4},
		{UserID: 1, ItemID: 20, Value: 4},
		{UserID: 1, ItemID: 30, Value: 2},
		{UserID: 1, ItemID: 40, Value: 2},
		{UserID: 2, ItemID: 10, Value: 1},
	}
	if len(ratings) != len(want) {
		t.Fatalf("AggregatedInteractions() = %v, want %v", ratings, want)
	}
	for i := range want {
		if ratings[i] != want[i] {
			t.Errorf("rating[%d] = %+v, want %+v", i, ratings[i], want[i])
		}
	}

	count, err := db.UserInteractionCount(ctx, 1)
	if err != nil {
		t.Fatalf("UserInteractionCount() error = %v", err)
	}
	if count != 5 {
		t.Errorf("UserInteractionCount(1) = %d, want 5", count)
	}
	if count, _ := db.UserInteractionCount(ctx, 99); count != 0 {
		t.Errorf("UserInteractionCount(99) = %d, want 0", count)
	}

	items, err := db.UserInteractedItems(ctx, 1)
	if err != nil {
		t.Fatalf("UserInteractedItems() error = %v", err)
	}
	if !equalInts(items, []int{10, 20, 30, 40}) {
		t.Errorf("UserInteractedItems(1) = %v", items)
	}
	if items, _ := db.UserInteractedItems(ctx, 99); len(items) != 0 {
		t.Errorf("UserInteractedItems(99) = %v, want empty", items)
	}

	// 10 and 20 tie at 4; 20 was touched later. 40 beats 30 on recency.
	top, err := db.UserTopItems(ctx, 1, 3)
	if err != nil {
		t.Fatalf("UserTopItems() error = %v", err)
	}
	if !equalInts(top, []int{20, 10, 40}) {
		t.Errorf("UserTopItems(1, 3) = %v, want [20 10 40]", top)
	}
	if top, _ := db.UserTopItems(ctx, 1, 0); len(top) != 0 {
		t.Errorf("UserTopItems(k=0) = %v, want empty", top)
	}
}

func TestItems_UpsertAndGet(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	item := &recommend.Item{
		ID:             7,
		Title:          "Night Train",
		Genres:         []string{"Thriller", " Drama "},
		Director:       "A. Director",
		Synopsis:       "A long night.",
		Cast:           []string{"One", "", "Two", "Three", "Four", "Five"},
		VoteCount:      120,
		ExternalRating: 7.5,
	}
	if err := db.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() error = %v", err)
	}

	got, err := db.GetItem(ctx, 7)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if got.Title != "Night Train" || got.VoteCount != 120 || got.ExternalRating != 7.5 {
		t.Errorf("GetItem() = %+v", got)
	}
	if len(got.Genres) != 2 || got.Genres[1] != "Drama" {
		t.Errorf("Genres = %q, want [Thriller Drama]", got.Genres)
	}
	if len(got.Cast) != 4 || got.Cast[3] != "Four" {
		t.Errorf("Cast = %q, want first four non-empty names", got.Cast)
	}

	item.Title = "Night Train (Director's Cut)"
	item.Cast = nil
	if err := db.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() update error = %v", err)
	}
	items, err := db.Items(ctx)
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Items() len = %d, want 1", len(items))
	}
	if items[0].Title != "Night Train (Director's Cut)" || len(items[0].Cast) != 0 {
		t.Errorf("Items()[0] = %+v", items[0])
	}

	_, err = db.GetItem(ctx, 404)
	if !errors.Is(err, recommend.ErrItemNotFound) {
		t.Errorf("GetItem(404) error = %v, want ErrItemNotFound", err)
	}
}

func TestUpsertItem_ConflictRefreshesUpdatedAt(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	readUpdatedAt := func() time.Time {
		t.Helper()
		var ts time.Time
		if err := db.Conn().QueryRowContext(ctx, "SELECT updated_at FROM movies WHERE id = ?", 3).Scan(&ts); err != nil {
			t.Fatalf("read updated_at: %v", err)
		}
		return ts
	}

	item := &recommend.Item{ID: 3, Title: "Heat", Genres: []string{"Crime"}, VoteCount: 50, ExternalRating: 8.3}
	if err := db.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() insert error = %v", err)
	}
	first := readUpdatedAt()
	if first.IsZero() {
		t.Fatal("updated_at not set on insert")
	}

	time.Sleep(5 * time.Millisecond)
	item.VoteCount = 51
	if err := db.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() conflict update error = %v", err)
	}
	if second := readUpdatedAt(); second.Before(first) {
		t.Errorf("updated_at went backwards: %v -> %v", first, second)
	}

	got, err := db.GetItem(ctx, 3)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if got.VoteCount != 51 {
		t.Errorf("VoteCount = %d, want 51 after conflict update", got.VoteCount)
	}
}

func TestUpsertItem_Invalid(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	if err := db.UpsertItem(context.Background(), &recommend.Item{ID: 0, Title: "x"}); err == nil {
		t.Error("expected error for zero id")
	}
	if err := db.UpsertItem(context.Background(), &recommend.Item{ID: 1, Title: "  "}); err == nil {
		t.Error("expected error for blank title")
	}
}

func TestSplitAndTrim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"Drama", []string{"Drama"}},
		{" Drama, Sci-Fi ,,", []string{"Drama", "Sci-Fi"}},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitAndTrim(%q) = %q, want %q", tt.in, got, tt.want)
			}
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
