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

// RecordInteraction handles POST /api/v1/interactions.
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req InteractionRequest
	if err := decodeJSON(w, r, h.config.MaxBodyBytes, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	in := req.Interaction()
	if in.Type == recommend.InteractionRate && in.Weight == 0 {
		rw.Error(http.StatusBadRequest, validation.ErrorCode, "weight is required for rate interactions")
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	if err := h.store.RecordInteraction(ctx, in); err != nil {
		writeEngineError(rw, err)
		return
	}
	h.engine.InteractionRecorded(in.UserID)
	if in.Weight == 0 {
		in.Weight = in.Type.DefaultWeight()
	}

	logging.Ctx(logging.ContextWithUserID(r.Context(), in.UserID)).Debug().
		Int("item_id", in.ItemID).
		Str("type", string(in.Type)).
		Msg("Interaction recorded")
	rw.Created(in)
}

// GetItem handles GET /api/v1/items/{itemID}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	itemID, err := pathInt(r, "itemID")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	item, err := h.store.GetItem(ctx, itemID)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(item)
}

// UpsertItem handles PUT /api/v1/items/{itemID}. A successful write marks
// the engine's catalog snapshot stale.
func (h *Handler) UpsertItem(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	itemID, err := pathInt(r, "itemID")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if itemID <= 0 {
		rw.BadRequest("itemID must be greater than 0")
		return
	}

	var req ItemRequest
	if err := decodeJSON(w, r, h.config.MaxBodyBytes, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	item := req.Item(itemID)
	if err := h.store.UpsertItem(ctx, item); err != nil {
		writeEngineError(rw, err)
		return
	}
	h.engine.ItemsChanged()
	rw.Success(item)
}
