// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/reelmatch/internal/config"
	"github.com/tomtom215/reelmatch/internal/database"
	"github.com/tomtom215/reelmatch/internal/logging"
	"github.com/tomtom215/reelmatch/internal/metrics"
	"github.com/tomtom215/reelmatch/internal/recommend"
	"github.com/tomtom215/reelmatch/internal/recommend/algorithms"
	"github.com/tomtom215/reelmatch/internal/recommend/storage"
)

// Snapshot backends.
const (
	snapshotBackendFile   = "file"
	snapshotBackendBadger = "badger"
	snapshotBackendNone   = "none"
)

// RecommendComponents holds the engine and the parts that need shutdown.
type RecommendComponents struct {
	Engine *recommend.Engine
	Model  *algorithms.MatrixFactorization
	Index  *algorithms.ContentIndex
	Store  *storage.Store // nil when snapshots are disabled
}

// Close waits for training and snapshot writes, then closes the store.
func (rc *RecommendComponents) Close() {
	rc.Engine.Wait()
	rc.Model.Flush()
	if rc.Store == nil {
		return
	}
	if err := rc.Store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing snapshot store")
	}
}

// initRecommend builds the models and the engine on top of db. Engine reads
// go through a circuit breaker when enabled; collectors are registered on reg.
func initRecommend(ctx context.Context, cfg *config.Config, db *database.DB, reg prometheus.Registerer) (*RecommendComponents, error) {
	logger := logging.WithComponent("recommend")

	model, err := algorithms.NewMatrixFactorization(buildMFConfig(&cfg.Recommend), logging.WithComponent("mf"))
	if err != nil {
		return nil, fmt.Errorf("create MF model: %w", err)
	}

	index := algorithms.NewContentIndex(buildContentConfig(&cfg.Recommend.Content), logging.WithComponent("content"))
	if err := metrics.RegisterIndexCollectors(reg, index); err != nil {
		return nil, fmt.Errorf("register index collectors: %w", err)
	}

	store, err := openSnapshotStore(ctx, cfg.Recommend.Snapshot)
	if err != nil {
		return nil, err
	}
	if store != nil {
		model.SetStore(store)
		model.SetPersistHook(func(version int, err error) {
			metrics.RecordSnapshot("save", err)
			if err == nil {
				logger.Info().Int("version", version).Msg("MF snapshot saved")
			}
		})
		restoreSnapshot(ctx, model)
	}

	var data recommend.DataProvider = db
	if cfg.Database.Breaker.Enabled {
		data = database.NewBreakerProvider(db, &cfg.Database.Breaker)
	}

	engine, err := recommend.NewEngine(buildEngineConfig(&cfg.Recommend), model, index, data, logger,
		recommend.WithObserver(metrics.RecommendObserver{}),
		recommend.WithRequestIDFunc(logging.RequestIDFromContext),
	)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("create engine: %w", err)
	}

	logger.Info().
		Int("factors", cfg.Recommend.MF.Factors).
		Int("iterations", cfg.Recommend.MF.Iterations).
		Float64("collaborative_weight", cfg.Recommend.Hybrid.CollaborativeWeight).
		Bool("model_restored", model.IsTrained()).
		Msg("Recommendation engine initialized")

	return &RecommendComponents{Engine: engine, Model: model, Index: index, Store: store}, nil
}

// openSnapshotStore opens the configured snapshot backend. It returns nil
// when snapshots are disabled.
//
//nolint:gocritic // config struct passed by value
func openSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) (*storage.Store, error) {
	var (
		backend storage.Backend
		err     error
	)
	switch cfg.Backend {
	case snapshotBackendNone, "":
		logging.Info().Msg("Model snapshots disabled")
		return nil, nil
	case snapshotBackendFile:
		backend, err = storage.NewFileBackend(cfg.Path)
	case snapshotBackendBadger:
		backend, err = storage.OpenBadgerBackend(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s snapshot backend: %w", cfg.Backend, err)
	}

	store, err := storage.NewStore(ctx, backend)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	logging.Info().Str("backend", cfg.Backend).Str("path", cfg.Path).Msg("Snapshot store opened")
	return store, nil
}

// restoreSnapshot serves the latest stored model until the first training
// run completes. A missing or unreadable snapshot is not fatal.
func restoreSnapshot(ctx context.Context, model *algorithms.MatrixFactorization) {
	version, err := model.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logging.Info().Msg("No MF snapshot found, model will be trained from scratch")
	case err != nil:
		metrics.RecordSnapshot("load", err)
		logging.Warn().Err(err).Msg("Failed to restore MF snapshot")
	default:
		metrics.RecordSnapshot("load", nil)
		logging.Info().Int("version", version).Msg("MF model restored from snapshot")
	}
}

func closeStore(store *storage.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing snapshot store")
	}
}

func buildMFConfig(cfg *config.RecommendConfig) algorithms.MFConfig {
	return algorithms.MFConfig{
		NumFactors:        cfg.MF.Factors,
		LearningRate:      cfg.MF.LearningRate,
		NumIterations:     cfg.MF.Iterations,
		Regularization:    cfg.MF.Regularization,
		LearningRateDecay: cfg.MF.LearningRateDecay,
		Seed:              cfg.MF.Seed,
		MinInteractions:   cfg.MF.MinInteractions,
		CacheSize:         cfg.MF.CacheSize,
		RetainVersions:    cfg.Snapshot.RetainVersions,
	}
}

func buildContentConfig(cfg *config.ContentConfig) algorithms.ContentConfig {
	return algorithms.ContentConfig{
		MaxFeatures:   cfg.MaxFeatures,
		MinSimilarity: cfg.MinSimilarity,
		MaxNGram:      cfg.MaxNGram,
	}
}

// buildEngineConfig maps the application config onto the orchestrator's.
func buildEngineConfig(cfg *config.RecommendConfig) *recommend.Config {
	return &recommend.Config{
		Hybrid: recommend.HybridConfig{
			CollaborativeWeight: cfg.Hybrid.CollaborativeWeight,
			SeedItems:           cfg.Hybrid.SeedItems,
			CandidatesPerSeed:   cfg.Hybrid.CandidatesPerSeed,
		},
		Popularity: recommend.PopularityConfig{
			MinVotes: cfg.Hybrid.MinVotes,
		},
		Training: recommend.TrainingConfig{
			Timeout: cfg.TrainingTimeout,
		},
		Limits: recommend.LimitsConfig{
			DefaultTopN: cfg.DefaultTopN,
			MaxTopN:     cfg.MaxTopN,
		},
		Cache: recommend.CacheConfig{
			Enabled:           cfg.Cache.Enabled,
			TTL:               cfg.Cache.TTL,
			MaxEntries:        cfg.Cache.MaxEntries,
			InvalidateOnTrain: cfg.Cache.InvalidateOnTrain,
		},
		Catalog: recommend.CatalogConfig{
			RefreshInterval: cfg.CatalogRefresh,
		},
	}
}
