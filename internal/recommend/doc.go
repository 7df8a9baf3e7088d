// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

// Package recommend orchestrates movie recommendations.
//
// # Architecture
//
// The Engine combines three signals in strict priority order:
//
//   - Collaborative: a CollaborativeModel trained on aggregated interactions
//   - Content-based: a SimilarityIndex over catalog metadata
//   - Popularity: the catalog ranked by external rating and vote count
//
// Concrete models live in the algorithms subpackage and snapshots in the
// storage subpackage. Interactions and the catalog come from a DataProvider,
// normally the DuckDB store in internal/database.
//
// # Modes
//
//   - Popular: popularity only, no model required
//   - Collaborative: model only; cold users fall back to popularity
//   - Hybrid: floor(topN*w) collaborative slots, content for the rest,
//     popularity to fill; cold users skip the collaborative step
//   - Similar: content similarity to one item, with a same-genre fallback
//
// Every list is de-duplicated, never contains items the user already
// interacted with, and never exceeds the requested size. Responses carry
// Fallback and FallbackReason whenever a lower-priority signal stood in.
//
// # Concurrency
//
// Reads never wait on training. Train and TrainInBackground share one
// TryLock, so a second trigger fails fast with ErrTrainingInProgress.
// The catalog snapshot is reloaded at most once per refresh interval and
// after every training run. Responses are cached per mode, ID and size and
// the cache is cleared after training.
//
// # Usage
//
//	engine, err := recommend.NewEngine(cfg, mf, index, store, logger,
//	    recommend.WithObserver(metrics.RecommendObserver{}))
//	if err != nil {
//	    return err
//	}
//	if _, err := engine.Train(ctx); err != nil {
//	    return err
//	}
//	resp, err := engine.Hybrid(ctx, userID, 10)
package recommend
