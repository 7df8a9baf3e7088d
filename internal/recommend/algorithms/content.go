// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

// ContentConfig contains configuration for the TF-IDF similarity index.
type ContentConfig struct {
	// MaxFeatures caps the vocabulary at the most frequent terms.
	MaxFeatures int

	// MinSimilarity drops results whose cosine is at or below this value.
	MinSimilarity float64

	// MaxNGram is the largest n-gram length (2 = unigrams and bigrams).
	MaxNGram int
}

// DefaultContentConfig returns the default index configuration.
func DefaultContentConfig() ContentConfig {
	return ContentConfig{
		MaxFeatures:   5000,
		MinSimilarity: 0.01,
		MaxNGram:      2,
	}
}

// sparseVector is an L2-normalized TF-IDF row with ascending term indices.
type sparseVector struct {
	idx []int
	val []float64
}

// dot computes the inner product of two sorted sparse vectors.
func (v sparseVector) dot(o sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.idx) && j < len(o.idx) {
		switch {
		case v.idx[i] == o.idx[j]:
			sum += v.val[i] * o.val[j]
			i++
			j++
		case v.idx[i] < o.idx[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// contentSnapshot is an immutable fitted index. Rows are in ascending item
// ID order.
type contentSnapshot struct {
	fingerprint uint64
	items       []recommend.Item
	pos         map[int]int
	rows        []sparseVector
	vocab       map[string]int
	idf         []float64
	builtAt     time.Time
}

// ContentIndex answers item-to-item similarity queries over catalog metadata.
// Queries read the published snapshot without locking; rebuilds are
// serialized and swap the snapshot in atomically.
type ContentIndex struct {
	cfg    ContentConfig
	logger zerolog.Logger

	buildMu  sync.Mutex
	snapshot atomic.Pointer[contentSnapshot]
	builds   atomic.Int64
}

// NewContentIndex creates an empty index. The first query or Warm builds it.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewContentIndex(cfg ContentConfig, logger zerolog.Logger) *ContentIndex {
	defaults := DefaultContentConfig()
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = defaults.MaxFeatures
	}
	if cfg.MaxNGram <= 0 {
		cfg.MaxNGram = defaults.MaxNGram
	}
	if cfg.MinSimilarity < 0 {
		cfg.MinSimilarity = defaults.MinSimilarity
	}
	return &ContentIndex{
		cfg:    cfg,
		logger: logger.With().Str("component", "content_index").Logger(),
	}
}

// Warm builds the index for catalog unless the current one already matches.
func (c *ContentIndex) Warm(ctx context.Context, catalog []recommend.Item) error {
	_, err := c.ensure(ctx, catalog)
	return err
}

// Invalidate drops the current index so the next query rebuilds it.
func (c *ContentIndex) Invalidate() {
	c.snapshot.Store(nil)
}

// Builds returns how many times the index has been fitted.
func (c *ContentIndex) Builds() int64 {
	return c.builds.Load()
}

// Size returns the number of items and vocabulary terms in the current index.
func (c *ContentIndex) Size() (items, terms int) {
	s := c.snapshot.Load()
	if s == nil {
		return 0, 0
	}
	return len(s.items), len(s.vocab)
}

// SimilarItems ranks catalog items by cosine similarity to itemID, best first.
// A limit of zero or less returns every item above the similarity floor.
func (c *ContentIndex) SimilarItems(ctx context.Context, catalog []recommend.Item, itemID, limit int) ([]recommend.SimilarItem, error) {
	s, err := c.ensure(ctx, catalog)
	if err != nil {
		return nil, err
	}

	src, ok := s.pos[itemID]
	if !ok {
		return nil, &recommend.ItemNotFoundError{ItemID: itemID}
	}
	if len(s.items) < 2 {
		return []recommend.SimilarItem{}, nil
	}

	query := s.rows[src]
	scored := make([]recommend.ItemScore, 0, len(s.items))
	for i, row := range s.rows {
		if i == src {
			continue
		}
		sim := math.Min(query.dot(row), 1.0)
		scored = append(scored, recommend.ItemScore{ItemID: s.items[i].ID, Score: sim})
	}
	scored = lo.Filter(scored, func(is recommend.ItemScore, _ int) bool {
		return is.Score > c.cfg.MinSimilarity
	})

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ItemID < scored[j].ItemID
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	source := &s.items[src]
	return lo.Map(scored, func(is recommend.ItemScore, _ int) recommend.SimilarItem {
		return recommend.SimilarItem{
			ItemID:     is.ItemID,
			Similarity: is.Score,
			Reason:     ExplainSimilarity(source, &s.items[s.pos[is.ItemID]]),
		}
	}), nil
}

// ensure returns a snapshot matching catalog, building one if needed.
func (c *ContentIndex) ensure(ctx context.Context, catalog []recommend.Item) (*contentSnapshot, error) {
	fp := catalogFingerprint(catalog)
	if s := c.snapshot.Load(); s != nil && s.fingerprint == fp {
		return s, nil
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	// Another caller may have finished the same build while we waited.
	if s := c.snapshot.Load(); s != nil && s.fingerprint == fp {
		return s, nil
	}

	start := time.Now()
	s, err := c.build(ctx, catalog)
	if err != nil {
		return nil, err
	}
	s.fingerprint = fp
	c.snapshot.Store(s)
	c.builds.Add(1)

	c.logger.Debug().
		Int("items", len(s.items)).
		Int("terms", len(s.vocab)).
		Dur("duration", time.Since(start)).
		Msg("Content index built")
	return s, nil
}

// build fits the vocabulary and idf on catalog and computes all rows.
func (c *ContentIndex) build(ctx context.Context, catalog []recommend.Item) (*contentSnapshot, error) {
	items := uniqueByID(catalog)

	docs := make([][]string, len(items))
	totals := make(map[string]int)
	for i := range items {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("build content index: %w", err)
			}
		}
		docs[i] = Terms(&items[i], c.cfg.MaxNGram)
		for _, t := range docs[i] {
			totals[t]++
		}
	}

	vocab := selectVocabulary(totals, c.cfg.MaxFeatures)

	df := make([]int, len(vocab))
	counts := make([]map[int]int, len(items))
	for i, doc := range docs {
		tf := make(map[int]int)
		for _, t := range doc {
			if j, ok := vocab[t]; ok {
				tf[j]++
			}
		}
		for j := range tf {
			df[j]++
		}
		counts[i] = tf
	}

	n := float64(len(items))
	idf := make([]float64, len(vocab))
	for j, d := range df {
		idf[j] = math.Log((1+n)/(1+float64(d))) + 1
	}

	rows := make([]sparseVector, len(items))
	for i, tf := range counts {
		rows[i] = weightRow(tf, idf)
	}

	pos := make(map[int]int, len(items))
	for i := range items {
		pos[items[i].ID] = i
	}

	return &contentSnapshot{
		items:   items,
		pos:     pos,
		rows:    rows,
		vocab:   vocab,
		idf:     idf,
		builtAt: time.Now(),
	}, nil
}

// selectVocabulary keeps the maxFeatures most frequent terms, ties broken
// alphabetically, and assigns indices in alphabetical order.
func selectVocabulary(totals map[string]int, maxFeatures int) map[string]int {
	terms := make([]string, 0, len(totals))
	for t := range totals {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if totals[terms[i]] != totals[terms[j]] {
			return totals[terms[i]] > totals[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return vocab
}

// weightRow applies idf to raw term counts and L2-normalizes the result.
// A document with no vocabulary terms yields an empty vector.
func weightRow(tf map[int]int, idf []float64) sparseVector {
	idx := make([]int, 0, len(tf))
	for j := range tf {
		idx = append(idx, j)
	}
	sort.Ints(idx)

	val := make([]float64, len(idx))
	var norm float64
	for k, j := range idx {
		val[k] = float64(tf[j]) * idf[j]
		norm += val[k] * val[k]
	}
	if norm == 0 {
		return sparseVector{}
	}
	norm = math.Sqrt(norm)
	for k := range val {
		val[k] /= norm
	}
	return sparseVector{idx: idx, val: val}
}

// uniqueByID returns catalog sorted by ID with duplicate IDs removed. The
// first occurrence wins.
func uniqueByID(catalog []recommend.Item) []recommend.Item {
	items := lo.UniqBy(catalog, func(it recommend.Item) int { return it.ID })
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// catalogFingerprint identifies the set of item IDs independent of order.
func catalogFingerprint(catalog []recommend.Item) uint64 {
	seen := make(map[int]struct{}, len(catalog))
	var sum uint64
	for i := range catalog {
		id := catalog[i].ID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sum += splitmix64(uint64(int64(id))) //nolint:gosec // bit reinterpretation is intended
	}
	return sum ^ splitmix64(uint64(len(seen)))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
