// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

// DefaultSimilarityReason is used when two items share no named attributes.
const DefaultSimilarityReason = "Similar plot and themes"

// ExplainSimilarity describes what target shares with source. Genres and
// cast are compared case-insensitively; names are reported as written on
// target.
func ExplainSimilarity(source, target *recommend.Item) string {
	var parts []string

	if genres := sharedNames(source.Genres, target.Genres); len(genres) > 0 {
		parts = append(parts, "Same genre: "+strings.Join(genres, ", "))
	}

	sd, td := strings.TrimSpace(source.Director), strings.TrimSpace(target.Director)
	if sd != "" && strings.EqualFold(sd, td) {
		parts = append(parts, "Same director: "+td)
	}

	if cast := sharedNames(source.Cast, target.Cast); len(cast) > 0 {
		parts = append(parts, "Shared cast: "+strings.Join(cast, ", "))
	}

	if len(parts) == 0 {
		return DefaultSimilarityReason
	}
	return strings.Join(parts, "; ")
}

// sharedNames returns the entries of b whose lowercase form appears in a,
// sorted case-insensitively.
func sharedNames(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	left := mapset.NewThreadUnsafeSet[string]()
	for _, v := range a {
		if k := strings.ToLower(strings.TrimSpace(v)); k != "" {
			left.Add(k)
		}
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var out []string
	for _, v := range b {
		name := strings.TrimSpace(v)
		k := strings.ToLower(name)
		if k == "" || !left.Contains(k) || !seen.Add(k) {
			continue
		}
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
