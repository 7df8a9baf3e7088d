// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status       string `json:"status"`
	Database     string `json:"database,omitempty"`
	ModelTrained bool   `json:"model_trained"`
	IsTraining   bool   `json:"is_training"`
}

// HealthLive handles GET /api/v1/health/live. It only proves the process
// answers.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthResponse{
		Status:       "ok",
		ModelTrained: h.engine.ModelInfo().Trained,
		IsTraining:   h.engine.Status().IsTraining,
	})
}

// HealthReady handles GET /api/v1/health/ready. It answers 503 while the
// database is unreachable. An untrained model is still ready: popularity
// and content results are served without one.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:       "ok",
		Database:     "ok",
		ModelTrained: h.engine.ModelInfo().Trained,
		IsTraining:   h.engine.Status().IsTraining,
	}
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Database = err.Error()
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unavailable", resp)
		return
	}
	rw.Success(resp)
}
