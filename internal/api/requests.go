// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

// Request structs carry validator tags; field names in errors come from the
// json or query tag.

// UserRecommendationsRequest is the query of GET /recommendations/users/{userID}.
type UserRecommendationsRequest struct {
	UserID int    `query:"user_id" validate:"gt=0"`
	Mode   string `query:"mode" validate:"oneof=hybrid collaborative"`
	Limit  int    `query:"limit" validate:"gte=0"`
}

// LimitRequest is a bare limit query. Zero means the engine default; values
// above the configured maximum are clamped by the engine.
type LimitRequest struct {
	Limit int `query:"limit" validate:"gte=0"`
}

// SimilarRequest is the query of GET /items/{itemID}/similar.
type SimilarRequest struct {
	ItemID int `query:"item_id" validate:"gt=0"`
	Limit  int `query:"limit" validate:"gte=0"`
}

// PredictRequest is the query of GET /recommendations/predict.
type PredictRequest struct {
	UserID int `query:"user_id" validate:"gt=0"`
	ItemID int `query:"item_id" validate:"gt=0"`
}

// InteractionRequest is the body of POST /interactions.
type InteractionRequest struct {
	UserID    int        `json:"user_id" validate:"gt=0"`
	ItemID    int        `json:"item_id" validate:"gt=0"`
	Type      string     `json:"type" validate:"required,interaction_type"`
	Weight    float64    `json:"weight" validate:"gte=0,lte=1000"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Interaction converts the request to the engine type.
func (req *InteractionRequest) Interaction() recommend.Interaction {
	in := recommend.Interaction{
		UserID: req.UserID,
		ItemID: req.ItemID,
		Type:   recommend.InteractionType(req.Type),
		Weight: req.Weight,
	}
	if req.Timestamp != nil {
		in.Timestamp = req.Timestamp.UTC()
	}
	return in
}

// ItemRequest is the body of PUT /items/{itemID}.
type ItemRequest struct {
	Title          string   `json:"title" validate:"notblank,max=500"`
	Genres         []string `json:"genres" validate:"max=20,dive,notblank,max=50"`
	Director       string   `json:"director" validate:"max=200"`
	Synopsis       string   `json:"synopsis" validate:"max=10000"`
	Cast           []string `json:"cast" validate:"max=4,dive,max=200"`
	VoteCount      int      `json:"vote_count" validate:"gte=0"`
	ExternalRating float64  `json:"external_rating" validate:"gte=0,lte=10"`
}

// Item converts the request to the engine type.
func (req *ItemRequest) Item(id int) *recommend.Item {
	genres := make([]string, 0, len(req.Genres))
	for _, g := range req.Genres {
		genres = append(genres, strings.TrimSpace(g))
	}
	return &recommend.Item{
		ID:             id,
		Title:          strings.TrimSpace(req.Title),
		Genres:         genres,
		Director:       strings.TrimSpace(req.Director),
		Synopsis:       req.Synopsis,
		Cast:           req.Cast,
		VoteCount:      req.VoteCount,
		ExternalRating: req.ExternalRating,
	}
}

// pathInt parses a chi URL parameter.
func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// decodeJSON reads a size-limited JSON body, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body: unexpected trailing data")
	}
	return nil
}
