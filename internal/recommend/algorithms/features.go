// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"strings"
	"unicode"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

// maxCastMembers is the number of cast names included in feature text.
const maxCastMembers = 4

// FeatureText builds the descriptive text used to vectorize an item.
// Parts appear in a fixed order: genres, director, synopsis, then each cast
// member. Empty parts are skipped.
func FeatureText(item *recommend.Item) string {
	parts := make([]string, 0, 3+maxCastMembers)

	if genres := strings.Join(trimAll(item.Genres), ", "); genres != "" {
		parts = append(parts, genres)
	}
	if d := strings.TrimSpace(item.Director); d != "" {
		parts = append(parts, d)
	}
	if s := strings.TrimSpace(item.Synopsis); s != "" {
		parts = append(parts, s)
	}

	cast := trimAll(item.Cast)
	if len(cast) > maxCastMembers {
		cast = cast[:maxCastMembers]
	}
	parts = append(parts, cast...)

	return strings.Join(parts, " ")
}

// Tokenize lowercases text and splits it into word tokens of at least two
// characters, dropping English stop words. A word character is a letter,
// digit or underscore.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := englishStopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// NGrams returns all n-grams of tokens for n in [1, maxN], unigrams first.
// Bigrams join adjacent tokens with a single space.
func NGrams(tokens []string, maxN int) []string {
	if maxN < 1 {
		maxN = 1
	}

	total := 0
	for n := 1; n <= maxN && n <= len(tokens); n++ {
		total += len(tokens) - n + 1
	}

	terms := make([]string, 0, total)
	terms = append(terms, tokens...)
	for n := 2; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// Terms is the full analyzer: FeatureText, Tokenize, then NGrams.
func Terms(item *recommend.Item, maxN int) []string {
	return NGrams(Tokenize(FeatureText(item)), maxN)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
