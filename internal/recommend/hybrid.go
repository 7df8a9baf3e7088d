// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

// ReasonCollaborative is the explanation attached to collaborative entries.
const ReasonCollaborative = "Viewers with similar taste enjoyed this"

// Collaborative returns recommendations from the factorization model only.
// Cold users get the popularity list flagged as a fallback.
func (e *Engine) Collaborative(ctx context.Context, userID, topN int) (*Response, error) {
	if !e.model.IsTrained() {
		e.requestCount.Add(1)
		e.errorCount.Add(1)
		return nil, ErrModelNotTrained
	}

	topN = e.clampTopN(topN)
	return e.serve(ctx, ModeCollaborative, userID, topN, func(snap *catalogSnapshot) (*Response, error) {
		count, err := e.data.UserInteractionCount(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count interactions: %w", err)
		}

		var l resultList
		if e.model.IsColdStart(userID, count) {
			l.init(topN, nil)
			l.addPopular(snap)
			return fallbackResponse(l.items, FallbackColdStart), nil
		}

		interacted, err := e.data.UserInteractedItems(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		l.init(topN, interacted)
		if err := e.addCollaborative(ctx, &l, snap, userID, topN, interacted); err != nil {
			return nil, err
		}
		return &Response{Items: l.items}, nil
	})
}

// Hybrid blends collaborative, content-based and popularity signals.
// Warm users get floor(topN*w) collaborative slots, the rest goes to items
// similar to their favourites, and popularity fills whatever is left. The
// popularity top-up ignores the vote floor once the ranked items run out.
// Cold users skip the collaborative step.
func (e *Engine) Hybrid(ctx context.Context, userID, topN int) (*Response, error) {
	topN = e.clampTopN(topN)
	return e.serve(ctx, ModeHybrid, userID, topN, func(snap *catalogSnapshot) (*Response, error) {
		return e.hybrid(ctx, snap, userID, topN)
	})
}

func (e *Engine) hybrid(ctx context.Context, snap *catalogSnapshot, userID, topN int) (*Response, error) {
	count, err := e.data.UserInteractionCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	var l resultList
	if count == 0 {
		l.init(topN, nil)
		l.fillPopular(snap)
		return fallbackResponse(l.items, FallbackColdStart), nil
	}

	interacted, err := e.data.UserInteractedItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	l.init(topN, interacted)

	cold := !e.model.IsTrained() || e.model.IsColdStart(userID, count)
	if !cold {
		slots := int(math.Floor(float64(topN) * e.config.Hybrid.CollaborativeWeight))
		if slots > 0 {
			if err := e.addCollaborative(ctx, &l, snap, userID, slots, interacted); err != nil {
				// The model may have been swapped out mid-request; degrade.
				e.logger.Warn().Err(err).Int("user_id", userID).Msg("Collaborative step failed")
			}
		}
	}

	seeds, err := e.data.UserTopItems(ctx, userID, e.config.Hybrid.SeedItems)
	if err != nil {
		return nil, fmt.Errorf("load seed items: %w", err)
	}

	fallback := cold
	if !l.full() {
		if e.addContent(ctx, &l, snap, seeds) == 0 && !l.full() {
			seedItems := lo.FilterMap(seeds, func(id int, _ int) (*Item, bool) { return snap.item(id) })
			l.addGenreFallback(snap, genreSet(seedItems...))
		}
	}
	if !l.full() {
		if l.fillPopular(snap) > 0 {
			fallback = true
		}
	}

	if !fallback {
		return &Response{Items: l.items}, nil
	}
	reason := FallbackInsufficient
	if cold {
		reason = FallbackColdStart
	}
	return fallbackResponse(l.items, reason), nil
}

// Similar returns items similar in content to itemID. When no item clears
// the similarity floor it falls back to same-genre items, then popularity.
func (e *Engine) Similar(ctx context.Context, itemID, limit int) (*Response, error) {
	limit = e.clampTopN(limit)
	return e.serve(ctx, ModeSimilar, itemID, limit, func(snap *catalogSnapshot) (*Response, error) {
		source, ok := snap.item(itemID)
		if !ok {
			return nil, &ItemNotFoundError{ItemID: itemID}
		}

		sims, err := e.index.SimilarItems(ctx, snap.items, itemID, limit)
		if err != nil {
			return nil, err
		}

		var l resultList
		l.init(limit, []int{itemID})
		for _, s := range sims {
			if item, ok := snap.item(s.ItemID); ok {
				l.add(contentEntry(item, s))
			}
		}
		if len(l.items) > 0 {
			return &Response{Items: l.items}, nil
		}

		if l.addGenreFallback(snap, genreSet(source)) == 0 {
			l.addPopular(snap)
		}
		return fallbackResponse(l.items, FallbackNoSimilarContent), nil
	})
}

// addCollaborative adds up to n model recommendations, excluding interacted.
func (e *Engine) addCollaborative(ctx context.Context, l *resultList, snap *catalogSnapshot, userID, n int, interacted []int) error {
	scores, err := e.model.Recommend(ctx, userID, n, true, interacted)
	if err != nil {
		return fmt.Errorf("collaborative recommend: %w", err)
	}
	for _, s := range scores {
		item, ok := snap.item(s.ItemID)
		if !ok {
			item = &Item{ID: s.ItemID}
		}
		score := s.Score
		l.add(Recommendation{Item: *item, Score: &score, Type: TypeCollaborative, Reason: ReasonCollaborative})
	}
	return nil
}

// addContent fills remaining slots with items similar to the seeds. Per-seed
// lists are merged by keeping each candidate's best similarity.
func (e *Engine) addContent(ctx context.Context, l *resultList, snap *catalogSnapshot, seeds []int) int {
	best := make(map[int]SimilarItem)
	for _, seed := range seeds {
		sims, err := e.index.SimilarItems(ctx, snap.items, seed, e.config.Hybrid.CandidatesPerSeed)
		if errors.Is(err, ErrItemNotFound) {
			continue
		}
		if err != nil {
			e.logger.Warn().Err(err).Int("seed", seed).Msg("Content similarity failed")
			continue
		}
		for _, s := range sims {
			if cur, ok := best[s.ItemID]; !ok || s.Similarity > cur.Similarity {
				best[s.ItemID] = s
			}
		}
	}

	merged := lo.Values(best)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Similarity != merged[j].Similarity {
			return merged[i].Similarity > merged[j].Similarity
		}
		return merged[i].ItemID < merged[j].ItemID
	})

	added := 0
	for _, s := range merged {
		if l.full() {
			break
		}
		item, ok := snap.item(s.ItemID)
		if !ok {
			continue
		}
		if l.add(contentEntry(item, s)) {
			added++
		}
	}
	return added
}

func contentEntry(item *Item, s SimilarItem) Recommendation {
	sim := s.Similarity
	return Recommendation{Item: *item, Score: &sim, Type: TypeContentBased, Reason: s.Reason}
}

func fallbackResponse(items []Recommendation, reason string) *Response {
	return &Response{
		Items:    items,
		Metadata: ResponseMetadata{Fallback: true, FallbackReason: reason},
	}
}
