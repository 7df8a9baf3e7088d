// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package api

import (
	"context"
	"time"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

// Recommender is the engine surface used by the handlers.
type Recommender interface {
	Popular(ctx context.Context, topN int) (*recommend.Response, error)
	Collaborative(ctx context.Context, userID, topN int) (*recommend.Response, error)
	Hybrid(ctx context.Context, userID, topN int) (*recommend.Response, error)
	Similar(ctx context.Context, itemID, limit int) (*recommend.Response, error)
	Train(ctx context.Context) (*recommend.TrainingResult, error)
	TrainInBackground(ctx context.Context) error
	IsColdStart(ctx context.Context, userID int) (bool, error)
	Predict(userID, itemID int) float64
	ItemsChanged()
	InteractionRecorded(userID int)
	ModelInfo() recommend.ModelInfo
	Status() recommend.TrainingStatus
	Metrics() recommend.Metrics
}

// Store is the persistence surface used by the handlers.
type Store interface {
	RecordInteraction(ctx context.Context, in recommend.Interaction) error
	UpsertItem(ctx context.Context, item *recommend.Item) error
	GetItem(ctx context.Context, id int) (*recommend.Item, error)
	Ping(ctx context.Context) error
}

// HandlerConfig tunes request handling.
type HandlerConfig struct {
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64

	// RequestTimeout bounds each engine call.
	RequestTimeout time.Duration
}

// Handler serves the API endpoints.
type Handler struct {
	engine Recommender
	store  Store
	config HandlerConfig
}

// NewHandler creates the API handler.
func NewHandler(engine Recommender, store Store, cfg HandlerConfig) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Handler{engine: engine, store: store, config: cfg}
}

func (h *Handler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.config.RequestTimeout)
}
