// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package recommend

import (
	"context"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ReasonPopular is the explanation attached to popularity entries.
const ReasonPopular = "Popular with audiences"

// Popular returns the top-rated catalog items with enough votes. It needs
// no trained model and no user history.
func (e *Engine) Popular(ctx context.Context, topN int) (*Response, error) {
	topN = e.clampTopN(topN)
	return e.serve(ctx, ModePopular, 0, topN, func(snap *catalogSnapshot) (*Response, error) {
		var l resultList
		l.init(topN, nil)
		l.addPopular(snap)
		return &Response{Items: l.items}, nil
	})
}

// rankPopular returns indices of items with at least minVotes votes, ordered
// by external rating, then vote count, then ID.
func rankPopular(items []Item, minVotes int) []int {
	ranked := make([]int, 0, len(items))
	for i := range items {
		if items[i].VoteCount >= minVotes {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		x, y := &items[ranked[a]], &items[ranked[b]]
		if x.ExternalRating != y.ExternalRating {
			return x.ExternalRating > y.ExternalRating
		}
		if x.VoteCount != y.VoteCount {
			return x.VoteCount > y.VoteCount
		}
		return x.ID < y.ID
	})
	return ranked
}

// rankByGenre returns items sharing at least one genre with genres, ranked
// like the popularity list but without the vote threshold.
func rankByGenre(items []Item, genres mapset.Set[string]) []int {
	if genres.Cardinality() == 0 {
		return nil
	}
	ranked := rankPopular(items, 0)
	out := ranked[:0]
	for _, i := range ranked {
		if len(sharedGenres(items[i].Genres, genres)) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// genreSet lowercases and collects the genres of items.
func genreSet(items ...*Item) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, it := range items {
		for _, g := range it.Genres {
			if k := strings.ToLower(strings.TrimSpace(g)); k != "" {
				set.Add(k)
			}
		}
	}
	return set
}

// sharedGenres returns the genres of item that appear in set, as written on
// the item.
func sharedGenres(genres []string, set mapset.Set[string]) []string {
	var out []string
	for _, g := range genres {
		if set.Contains(strings.ToLower(strings.TrimSpace(g))) {
			out = append(out, strings.TrimSpace(g))
		}
	}
	return out
}

// resultList accumulates a de-duplicated, size-bounded recommendation list.
type resultList struct {
	limit int
	seen  mapset.Set[int]
	items []Recommendation
}

// init sets the capacity and marks excluded IDs as already seen.
func (l *resultList) init(limit int, exclude []int) {
	l.limit = limit
	l.seen = mapset.NewThreadUnsafeSet[int](exclude...)
	l.items = make([]Recommendation, 0, limit)
}

func (l *resultList) full() bool { return len(l.items) >= l.limit }

func (l *resultList) remaining() int { return l.limit - len(l.items) }

// add appends rec unless the list is full or the item was already seen.
func (l *resultList) add(rec Recommendation) bool {
	if l.full() || !l.seen.Add(rec.Item.ID) {
		return false
	}
	l.items = append(l.items, rec)
	return true
}

// addPopular tops the list up from the popularity ranking.
func (l *resultList) addPopular(snap *catalogSnapshot) int {
	return l.addRanked(snap, snap.popular)
}

// fillPopular tops the list up from the popularity ranking and, when the
// vote floor leaves slots empty, from the whole catalog in the same order.
func (l *resultList) fillPopular(snap *catalogSnapshot) int {
	added := l.addPopular(snap)
	if !l.full() {
		added += l.addRanked(snap, rankPopular(snap.items, 0))
	}
	return added
}

// addRanked adds popularity entries for the catalog indices in ranked.
func (l *resultList) addRanked(snap *catalogSnapshot, ranked []int) int {
	added := 0
	for _, i := range ranked {
		if l.full() {
			break
		}
		if l.add(Recommendation{Item: snap.items[i], Type: TypePopularity, Reason: ReasonPopular}) {
			added++
		}
	}
	return added
}

// addGenreFallback tops the list up with items sharing a genre in genres.
func (l *resultList) addGenreFallback(snap *catalogSnapshot, genres mapset.Set[string]) int {
	added := 0
	for _, i := range rankByGenre(snap.items, genres) {
		if l.full() {
			break
		}
		item := snap.items[i]
		rec := Recommendation{
			Item:   item,
			Type:   TypeContentBased,
			Reason: "Top rated in " + strings.Join(sharedGenres(item.Genres, genres), ", "),
		}
		if l.add(rec) {
			added++
		}
	}
	return added
}
