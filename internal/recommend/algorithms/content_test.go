// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

func testCatalog() []recommend.Item {
	return []recommend.Item{
		{
			ID: 1, Title: "Star Voyage",
			Genres:   []string{"Sci-Fi", "Adventure"},
			Director: "Ana Ruiz",
			Synopsis: "A crew of explorers travels through a wormhole to save humanity.",
			Cast:     []string{"Mara Voss", "Tobias Lin"},
		},
		{
			ID: 2, Title: "Star Voyage II",
			Genres:   []string{"Sci-Fi", "Adventure"},
			Director: "Ana Ruiz",
			Synopsis: "The explorers return through the wormhole to a dying galaxy.",
			Cast:     []string{"Mara Voss", "Kenji Abe"},
		},
		{
			ID: 3, Title: "Paris Letters",
			Genres:   []string{"Romance", "Drama"},
			Director: "Claire Dubois",
			Synopsis: "Two strangers fall in love through letters left in a bookshop.",
			Cast:     []string{"Louise Martin"},
		},
		{
			ID: 4, Title: "Deep Orbit",
			Genres:   []string{"Sci-Fi", "Thriller"},
			Director: "Sam Okafor",
			Synopsis: "A lone astronaut drifts toward a wormhole after a station failure.",
			Cast:     []string{"Tobias Lin"},
		},
	}
}

func newTestIndex() *ContentIndex {
	return NewContentIndex(DefaultContentConfig(), zerolog.Nop())
}

func TestContentIndex_SimilarItems_Ranking(t *testing.T) {
	t.Parallel()
	idx := newTestIndex()

	got, err := idx.SimilarItems(context.Background(), testCatalog(), 1, 0)
	if err != nil {
		t.Fatalf("SimilarItems: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("SimilarItems returned no results")
	}
	if got[0].ItemID != 2 {
		t.Errorf("top result = %d, want 2 (the sequel)", got[0].ItemID)
	}

	for i, s := range got {
		if s.ItemID == 1 {
			t.Error("source item returned in its own results")
		}
		if s.Similarity <= 0.01 || s.Similarity > 1 {
			t.Errorf("result %d similarity %f outside (0.01, 1]", s.ItemID, s.Similarity)
		}
		if i > 0 && got[i-1].Similarity < s.Similarity {
			t.Errorf("results not sorted: %f before %f", got[i-1].Similarity, s.Similarity)
		}
	}

	want := "Same genre: Adventure, Sci-Fi; Same director: Ana Ruiz; Shared cast: Mara Voss"
	if got[0].Reason != want {
		t.Errorf("reason = %q, want %q", got[0].Reason, want)
	}
}

func TestContentIndex_SimilarItems_Limit(t *testing.T) {
	t.Parallel()
	idx := newTestIndex()

	got, err := idx.SimilarItems(context.Background(), testCatalog(), 1, 1)
	if err != nil {
		t.Fatalf("SimilarItems: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestContentIndex_SimilarItems_UnknownItem(t *testing.T) {
	t.Parallel()
	idx := newTestIndex()

	_, err := idx.SimilarItems(context.Background(), testCatalog(), 99, 5)
	if !errors.Is(err, recommend.ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound", err)
	}
	var notFound *recommend.ItemNotFoundError
	if !errors.As(err, &notFound) || notFound.ItemID != 99 {
		t.Errorf("error = %#v, want ItemNotFoundError{ItemID: 99}", err)
	}
}

func TestContentIndex_SimilarItems_SmallCatalogs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		catalog []recommend.Item
		itemID  int
	}{
		{
			name:    "single item",
			catalog: []recommend.Item{{ID: 1, Genres: []string{"Drama"}}},
			itemID:  1,
		},
		{
			name: "empty metadata source",
			catalog: []recommend.Item{
				{ID: 1},
				{ID: 2, Genres: []string{"Drama"}, Synopsis: "A family reunion goes wrong."},
			},
			itemID: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := newTestIndex().SimilarItems(context.Background(), tt.catalog, tt.itemID, 10)
			if err != nil {
				t.Fatalf("SimilarItems: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("got %d results, want none", len(got))
			}
		})
	}
}

func TestContentIndex_RebuildsOnCatalogChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := newTestIndex()
	catalog := testCatalog()

	if err := idx.Warm(ctx, catalog); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if _, err := idx.SimilarItems(ctx, catalog, 1, 5); err != nil {
		t.Fatalf("SimilarItems: %v", err)
	}
	if b := idx.Builds(); b != 1 {
		t.Errorf("builds after warm and query = %d, want 1", b)
	}

	// Same IDs in a different order reuse the index.
	reversed := []recommend.Item{catalog[3], catalog[2], catalog[1], catalog[0]}
	if _, err := idx.SimilarItems(ctx, reversed, 1, 5); err != nil {
		t.Fatalf("SimilarItems: %v", err)
	}
	if b := idx.Builds(); b != 1 {
		t.Errorf("builds after reorder = %d, want 1", b)
	}

	grown := append(append([]recommend.Item(nil), catalog...), recommend.Item{ID: 5, Genres: []string{"Sci-Fi"}})
	got, err := idx.SimilarItems(ctx, grown, 5, 5)
	if err != nil {
		t.Fatalf("SimilarItems on new item: %v", err)
	}
	if len(got) == 0 {
		t.Error("new item has no similar items")
	}
	if b := idx.Builds(); b != 2 {
		t.Errorf("builds after catalog change = %d, want 2", b)
	}

	idx.Invalidate()
	if n, _ := idx.Size(); n != 0 {
		t.Errorf("size after invalidate = %d, want 0", n)
	}
	if _, err := idx.SimilarItems(ctx, grown, 1, 5); err != nil {
		t.Fatalf("SimilarItems: %v", err)
	}
	if b := idx.Builds(); b != 3 {
		t.Errorf("builds after invalidate = %d, want 3", b)
	}
}

func TestContentIndex_ConcurrentQueries(t *testing.T) {
	t.Parallel()
	idx := newTestIndex()
	catalog := testCatalog()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			if g%5 == 0 {
				idx.Invalidate()
			}
			if _, err := idx.SimilarItems(context.Background(), catalog, 1+g%4, 3); err != nil {
				errs <- err
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent SimilarItems: %v", err)
	}
}

func TestContentIndex_CancelledBuild(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := newTestIndex()
	if err := idx.Warm(ctx, testCatalog()); !errors.Is(err, context.Canceled) {
		t.Errorf("Warm error = %v, want context.Canceled", err)
	}
	if idx.Builds() != 0 {
		t.Error("cancelled build was published")
	}
}

func TestSelectVocabulary(t *testing.T) {
	t.Parallel()

	totals := map[string]int{"zeta": 3, "alpha": 1, "beta": 3, "gamma": 2}
	vocab := selectVocabulary(totals, 3)

	want := map[string]int{"beta": 0, "gamma": 1, "zeta": 2}
	if len(vocab) != len(want) {
		t.Fatalf("vocab = %v, want %v", vocab, want)
	}
	for term, i := range want {
		if vocab[term] != i {
			t.Errorf("vocab[%q] = %d, want %d", term, vocab[term], i)
		}
	}
}

func TestWeightRow(t *testing.T) {
	t.Parallel()

	// n=2 documents, term 0 in both (df=2), term 1 in one (df=1).
	n := 2.0
	idf := []float64{
		math.Log((1+n)/(1+2)) + 1,
		math.Log((1+n)/(1+1)) + 1,
	}
	row := weightRow(map[int]int{0: 1, 1: 2}, idf)

	if len(row.idx) != 2 || row.idx[0] != 0 || row.idx[1] != 1 {
		t.Fatalf("row indices = %v, want [0 1]", row.idx)
	}
	if norm := row.dot(row); math.Abs(norm-1) > 1e-12 {
		t.Errorf("squared norm = %f, want 1", norm)
	}
	if row.val[1] <= row.val[0] {
		t.Errorf("rarer, more frequent term should weigh more: %v", row.val)
	}

	if empty := weightRow(map[int]int{}, idf); len(empty.idx) != 0 {
		t.Errorf("empty row = %+v, want no entries", empty)
	}
}

func TestCatalogFingerprint(t *testing.T) {
	t.Parallel()

	a := []recommend.Item{{ID: 1}, {ID: 2}, {ID: 3}}
	b := []recommend.Item{{ID: 3}, {ID: 1}, {ID: 2}}
	c := []recommend.Item{{ID: 1}, {ID: 2}}

	if catalogFingerprint(a) != catalogFingerprint(b) {
		t.Error("fingerprint depends on order")
	}
	if catalogFingerprint(a) == catalogFingerprint(c) {
		t.Error("fingerprint ignores a removed item")
	}
}
