// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/reelmatch/internal/cache"
)

// Note: this package only depends on the cache package internally. Models,
// the similarity index and storage plug in through the interfaces in
// types.go so the database and algorithm packages can import it freely.

// Fallback reasons reported in ResponseMetadata.FallbackReason.
const (
	FallbackColdStart        = "cold_start"
	FallbackInsufficient     = "insufficient_candidates"
	FallbackNoSimilarContent = "no_similar_content"
)

// Observer receives engine events, typically to export metrics.
type Observer interface {
	ObserveRequest(mode Mode, latency time.Duration, err error)
	ObserveFallback(mode Mode, reason string)
	ObserveCache(hit bool)
	ObserveTraining(result *TrainingResult, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(Mode, time.Duration, error)              {}
func (nopObserver) ObserveFallback(Mode, string)                           {}
func (nopObserver) ObserveCache(bool)                                      {}
func (nopObserver) ObserveTraining(*TrainingResult, time.Duration, error) {}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an observer for engine events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithRequestIDFunc sets how request IDs are derived from a context. An
// empty result falls back to a generated UUID.
func WithRequestIDFunc(fn func(context.Context) string) Option {
	return func(e *Engine) {
		e.requestID = fn
	}
}

// catalogSnapshot is an immutable view of the item catalog.
type catalogSnapshot struct {
	items    []Item
	byID     map[int]int
	popular  []int // indices into items, best first
	loadedAt time.Time
}

func (c *catalogSnapshot) item(id int) (*Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.items[i], true
}

// Engine orchestrates the collaborative model, the content index and the
// popularity ranking into final recommendation lists. It is safe for
// concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	model CollaborativeModel
	index SimilarityIndex
	data  DataProvider

	observer  Observer
	requestID func(context.Context) string

	// Training state
	trainMu  sync.Mutex
	statusMu sync.RWMutex
	status   TrainingStatus
	bgWG     sync.WaitGroup

	// Catalog snapshot
	catalog   atomic.Pointer[catalogSnapshot]
	catalogMu sync.Mutex

	responses *cache.LRU[*Response]

	// Metrics
	requestCount  atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	fallbackCount atomic.Int64
	errorCount    atomic.Int64
	trainingCount atomic.Int64
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, model CollaborativeModel, index SimilarityIndex, data DataProvider, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if model == nil || index == nil || data == nil {
		return nil, errors.New("model, similarity index and data provider are required")
	}

	e := &Engine{
		config:   cfg.Clone(),
		logger:   logger.With().Str("component", "recommend").Logger(),
		model:    model,
		index:    index,
		data:     data,
		observer: nopObserver{},
	}
	if cfg.Cache.Enabled {
		e.responses = cache.NewLRU[*Response](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Predict returns the model's predicted affinity for (user, item).
func (e *Engine) Predict(userID, itemID int) float64 {
	return e.model.Predict(userID, itemID)
}

// IsColdStart reports whether the user is treated as cold by the
// collaborative model.
func (e *Engine) IsColdStart(ctx context.Context, userID int) (bool, error) {
	count, err := e.data.UserInteractionCount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("count interactions: %w", err)
	}
	return e.model.IsColdStart(userID, count), nil
}

// ModelInfo describes the served collaborative model.
func (e *Engine) ModelInfo() ModelInfo {
	return e.model.Info()
}

// SimilarItems returns raw content similarity results for itemID.
func (e *Engine) SimilarItems(ctx context.Context, itemID, limit int) ([]SimilarItem, error) {
	snap, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return e.index.SimilarItems(ctx, snap.items, itemID, limit)
}

// Status returns the current training status.
func (e *Engine) Status() TrainingStatus {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

// Metrics returns engine counters.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		RequestCount:  e.requestCount.Load(),
		CacheHits:     e.cacheHits.Load(),
		CacheMisses:   e.cacheMisses.Load(),
		FallbackCount: e.fallbackCount.Load(),
		ErrorCount:    e.errorCount.Load(),
		TrainingCount: e.trainingCount.Load(),
	}
}

// Train loads all interactions and the catalog, fits the collaborative
// model and warms the content index. It fails fast with
// ErrTrainingInProgress when another run is active.
func (e *Engine) Train(ctx context.Context) (*TrainingResult, error) {
	if !e.trainMu.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()
	return e.train(ctx)
}

// TrainInBackground starts a training run on its own goroutine and returns
// immediately. The run is detached from ctx cancellation but keeps its values.
func (e *Engine) TrainInBackground(ctx context.Context) error {
	if !e.trainMu.TryLock() {
		return ErrTrainingInProgress
	}

	e.bgWG.Add(1)
	go func() {
		defer e.bgWG.Done()
		defer e.trainMu.Unlock()
		if _, err := e.train(context.WithoutCancel(ctx)); err != nil {
			e.logger.Error().Err(err).Msg("Background training failed")
		}
	}()
	return nil
}

// Wait blocks until background training runs have finished.
func (e *Engine) Wait() {
	e.bgWG.Wait()
}

// train runs one training cycle. The caller holds trainMu.
func (e *Engine) train(ctx context.Context) (*TrainingResult, error) {
	start := time.Now()
	e.setTraining()
	e.logger.Info().Msg("Starting model training")

	ctx, cancel := context.WithTimeout(ctx, e.config.Training.Timeout)
	defer cancel()

	result, err := e.trainModels(ctx)
	duration := time.Since(start)
	e.finishTraining(result, duration, err)
	e.observer.ObserveTraining(result, duration, err)

	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}
	e.trainingCount.Add(1)

	e.logger.Info().
		Int("version", result.Version).
		Int("users", result.NUsers).
		Int("items", result.NItems).
		Float64("rmse", result.FinalRMSE).
		Dur("duration", duration).
		Msg("Model training complete")
	return result, nil
}

func (e *Engine) trainModels(ctx context.Context) (*TrainingResult, error) {
	var (
		ratings []Rating
		items   []Item
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ratings, err = e.data.AggregatedInteractions(gctx)
		if err != nil {
			return fmt.Errorf("load interactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = e.data.Items(gctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int("ratings", len(ratings)).
		Int("items", len(items)).
		Msg("Loaded training data")

	result, err := e.model.Train(ctx, ratings)
	if err != nil {
		return nil, err
	}

	e.publishCatalog(items)
	e.index.Invalidate()
	if err := e.index.Warm(ctx, items); err != nil {
		e.logger.Warn().Err(err).Msg("Content index warm-up failed")
	}

	if e.responses != nil && e.config.Cache.InvalidateOnTrain {
		e.responses.Clear()
	}
	return result, nil
}

func (e *Engine) setTraining() {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.IsTraining = true
	e.status.LastError = ""
}

func (e *Engine) finishTraining(result *TrainingResult, duration time.Duration, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.IsTraining = false
	e.status.LastTrainingDurationMS = duration.Milliseconds()
	if err != nil {
		e.status.LastError = err.Error()
		return
	}
	e.status.LastTrainedAt = result.TrainedAt
	e.status.LastResult = result
}

// ItemsChanged drops the catalog snapshot, the content index and cached
// responses after a catalog write.
func (e *Engine) ItemsChanged() {
	e.catalog.Store(nil)
	e.index.Invalidate()
	if e.responses != nil {
		e.responses.Clear()
	}
}

// InteractionRecorded drops cached personalised responses for userID so the
// next request sees the new history. Popular and similar responses do not
// depend on the user and are kept.
func (e *Engine) InteractionRecorded(userID int) {
	if e.responses == nil {
		return
	}
	collab := responseCachePrefix(ModeCollaborative, userID)
	hybrid := responseCachePrefix(ModeHybrid, userID)
	dropped := e.responses.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, collab) || strings.HasPrefix(key, hybrid)
	})
	if dropped > 0 {
		e.logger.Debug().Int("user_id", userID).Int("dropped", dropped).Msg("Invalidated cached responses")
	}
}

// loadCatalog returns the catalog snapshot, reloading it from the data
// provider when it is older than the refresh interval.
func (e *Engine) loadCatalog(ctx context.Context) (*catalogSnapshot, error) {
	if snap := e.catalog.Load(); snap != nil && !e.catalogStale(snap) {
		return snap, nil
	}

	e.catalogMu.Lock()
	defer e.catalogMu.Unlock()

	if snap := e.catalog.Load(); snap != nil && !e.catalogStale(snap) {
		return snap, nil
	}

	items, err := e.data.Items(ctx)
	if err != nil {
		// Serve the stale snapshot rather than failing the request.
		if snap := e.catalog.Load(); snap != nil {
			e.logger.Warn().Err(err).Msg("Catalog refresh failed, serving stale snapshot")
			return snap, nil
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return e.publishCatalog(items), nil
}

func (e *Engine) catalogStale(snap *catalogSnapshot) bool {
	return time.Since(snap.loadedAt) >= e.config.Catalog.RefreshInterval
}

func (e *Engine) publishCatalog(items []Item) *catalogSnapshot {
	snap := &catalogSnapshot{
		items:    items,
		byID:     make(map[int]int, len(items)),
		loadedAt: time.Now(),
	}
	for i := range items {
		if _, dup := snap.byID[items[i].ID]; !dup {
			snap.byID[items[i].ID] = i
		}
	}
	snap.popular = rankPopular(items, e.config.Popularity.MinVotes)
	e.catalog.Store(snap)
	return snap
}

// clampTopN applies the default and maximum result sizes.
func (e *Engine) clampTopN(topN int) int {
	if topN <= 0 {
		return e.config.Limits.DefaultTopN
	}
	if topN > e.config.Limits.MaxTopN {
		return e.config.Limits.MaxTopN
	}
	return topN
}

func responseCacheKey(mode Mode, id, topN int) string {
	return responseCachePrefix(mode, id) + strconv.Itoa(topN)
}

func responseCachePrefix(mode Mode, id int) string {
	return string(mode) + ":" + strconv.Itoa(id) + ":"
}

// serve wraps a recommendation builder with request accounting and the
// response cache.
func (e *Engine) serve(ctx context.Context, mode Mode, id, topN int, build func(*catalogSnapshot) (*Response, error)) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	key := responseCacheKey(mode, id, topN)
	if e.responses != nil {
		if cached, ok := e.responses.Get(key); ok {
			e.cacheHits.Add(1)
			e.observer.ObserveCache(true)
			resp := copyResponse(cached)
			resp.Metadata.CacheHit = true
			resp.Metadata.RequestID = e.newRequestID(ctx)
			resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
			e.observer.ObserveRequest(mode, time.Since(start), nil)
			return resp, nil
		}
		e.cacheMisses.Add(1)
		e.observer.ObserveCache(false)
	}

	resp, err := e.buildWithCatalog(ctx, build)
	if err != nil {
		e.errorCount.Add(1)
		e.observer.ObserveRequest(mode, time.Since(start), err)
		return nil, err
	}

	info := e.model.Info()
	resp.Metadata.RequestID = e.newRequestID(ctx)
	resp.Metadata.UserID = id
	if mode == ModeSimilar || mode == ModePopular {
		resp.Metadata.UserID = 0
	}
	resp.Metadata.Mode = mode
	resp.Metadata.ModelVersion = info.Version
	resp.Metadata.TrainedAt = info.LastTrainedAt
	resp.Metadata.Timestamp = time.Now()
	resp.Metadata.LatencyMS = time.Since(start).Milliseconds()

	if resp.Metadata.Fallback {
		e.fallbackCount.Add(1)
		e.observer.ObserveFallback(mode, resp.Metadata.FallbackReason)
	}
	if e.responses != nil {
		e.responses.Set(key, copyResponse(resp))
	}

	e.logger.Debug().
		Str("request_id", resp.Metadata.RequestID).
		Str("mode", string(mode)).
		Int("id", id).
		Int("returned", len(resp.Items)).
		Bool("fallback", resp.Metadata.Fallback).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("Recommendation complete")

	e.observer.ObserveRequest(mode, time.Since(start), nil)
	return resp, nil
}

func (e *Engine) buildWithCatalog(ctx context.Context, build func(*catalogSnapshot) (*Response, error)) (*Response, error) {
	snap, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return build(snap)
}

func (e *Engine) newRequestID(ctx context.Context) string {
	if e.requestID != nil {
		if id := e.requestID(ctx); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// copyResponse returns a response that shares no mutable state with resp.
func copyResponse(resp *Response) *Response {
	items := make([]Recommendation, len(resp.Items))
	for i, r := range resp.Items {
		items[i] = r
		if r.Score != nil {
			s := *r.Score
			items[i].Score = &s
		}
	}
	return &Response{Items: items, Metadata: resp.Metadata}
}
