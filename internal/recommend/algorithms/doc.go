// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

// Package algorithms implements the two models behind the recommendation
// engine.
//
// # Matrix Factorization
//
// MatrixFactorization is a biased latent factor model trained with SGD over
// aggregated user-item weights:
//
//	r̂(u,i) = μ + b_u + b_i + p_u · q_i
//
// Training builds a complete new state and publishes it with an atomic
// pointer swap, so Predict and Recommend never block and never observe a
// half-trained model. A failed run leaves the previous model serving.
// Top-N results are cached per model version and the cache is cleared on
// every swap. When a ModelStore is attached, each trained model is saved in
// the background; call Flush before shutdown.
//
// # Content Similarity
//
// ContentIndex vectorizes item metadata with TF-IDF (unigrams and bigrams,
// English stop words removed, smooth idf, L2-normalized rows) and ranks items
// by cosine similarity. The index is rebuilt lazily when the set of catalog
// IDs changes or after Invalidate. Each result carries a short explanation
// of the genres, director and cast the two items share.
//
// # Usage
//
//	mf, err := algorithms.NewMatrixFactorization(algorithms.DefaultMFConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	result, err := mf.Train(ctx, ratings)
//	recs, err := mf.Recommend(ctx, userID, 10, true, seen)
//
//	idx := algorithms.NewContentIndex(algorithms.DefaultContentConfig(), logger)
//	similar, err := idx.SimilarItems(ctx, catalog, itemID, 10)
package algorithms
