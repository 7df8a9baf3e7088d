// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"context"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

var (
	_ recommend.CollaborativeModel = (*MatrixFactorization)(nil)
	_ recommend.SimilarityIndex    = (*ContentIndex)(nil)
)

// ContextCancelled reports whether ctx is done without blocking.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
