// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package api

import (
	"net/http"

	"github.com/tomtom215/reelmatch/internal/logging"
	"github.com/tomtom215/reelmatch/internal/recommend"
	"github.com/tomtom215/reelmatch/internal/validation"
)

// ModelInfoResponse is the body of GET /recommendations/model.
type ModelInfoResponse struct {
	Model   recommend.ModelInfo      `json:"model"`
	Status  recommend.TrainingStatus `json:"status"`
	Metrics recommend.Metrics        `json:"metrics"`
}

// TrainAcceptedResponse is returned when training starts in the background.
type TrainAcceptedResponse struct {
	Status string `json:"status"`
}

// ColdStartResponse is the body of GET /recommendations/users/{userID}/cold-start.
type ColdStartResponse struct {
	UserID    int  `json:"user_id"`
	ColdStart bool `json:"cold_start"`
}

// PredictResponse is the body of GET /recommendations/predict.
type PredictResponse struct {
	UserID int     `json:"user_id"`
	ItemID int     `json:"item_id"`
	Score  float64 `json:"score"`
}

// ModelInfo handles GET /api/v1/recommendations/model.
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(ModelInfoResponse{
		Model:   h.engine.ModelInfo(),
		Status:  h.engine.Status(),
		Metrics: h.engine.Metrics(),
	})
}

// Train handles POST /api/v1/recommendations/train. By default it starts a
// background run and answers 202; with ?wait=true it trains synchronously.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if r.URL.Query().Get("wait") == "true" {
		result, err := h.engine.Train(r.Context())
		if err != nil {
			writeEngineError(rw, err)
			return
		}
		rw.Success(result)
		return
	}

	if err := h.engine.TrainInBackground(r.Context()); err != nil {
		writeEngineError(rw, err)
		return
	}
	logging.Ctx(r.Context()).Info().Msg("Background training started")
	rw.Accepted(TrainAcceptedResponse{Status: "training_started"})
}

// Popular handles GET /api/v1/recommendations/popular.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	req := LimitRequest{Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	resp, err := h.engine.Popular(ctx, req.Limit)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(resp)
}

// UserRecommendations handles GET /api/v1/recommendations/users/{userID}.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathInt(r, "userID")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = string(recommend.ModeHybrid)
	}

	req := UserRecommendationsRequest{UserID: userID, Mode: mode, Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	ctx, cancel := h.requestContext(logging.ContextWithUserID(r.Context(), req.UserID))
	defer cancel()

	var resp *recommend.Response
	if recommend.Mode(req.Mode) == recommend.ModeCollaborative {
		resp, err = h.engine.Collaborative(ctx, req.UserID, req.Limit)
	} else {
		resp, err = h.engine.Hybrid(ctx, req.UserID, req.Limit)
	}
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("mode", req.Mode).Msg("Recommendations failed")
		writeEngineError(rw, err)
		return
	}
	logging.Ctx(ctx).Debug().
		Str("mode", req.Mode).
		Int("returned", len(resp.Items)).
		Bool("fallback", resp.Metadata.Fallback).
		Bool("cache_hit", resp.Metadata.CacheHit).
		Msg("Recommendations served")
	rw.Success(resp)
}

// ColdStart handles GET /api/v1/recommendations/users/{userID}/cold-start.
func (h *Handler) ColdStart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathInt(r, "userID")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if userID <= 0 {
		rw.BadRequest("userID must be greater than 0")
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	cold, err := h.engine.IsColdStart(ctx, userID)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(ColdStartResponse{UserID: userID, ColdStart: cold})
}

// Predict handles GET /api/v1/recommendations/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := queryInt(r, "user_id", 0)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	itemID, err := queryInt(r, "item_id", 0)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	req := PredictRequest{UserID: userID, ItemID: itemID}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	if !h.engine.ModelInfo().Trained {
		writeEngineError(rw, recommend.ErrModelNotTrained)
		return
	}
	rw.Success(PredictResponse{
		UserID: req.UserID,
		ItemID: req.ItemID,
		Score:  h.engine.Predict(req.UserID, req.ItemID),
	})
}

// Similar handles GET /api/v1/items/{itemID}/similar.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	itemID, err := pathInt(r, "itemID")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	req := SimilarRequest{ItemID: itemID, Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	resp, err := h.engine.Similar(ctx, req.ItemID, req.Limit)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(resp)
}
