// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package api

import (
	"context"
	"errors"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/reelmatch/internal/database"
	"github.com/tomtom215/reelmatch/internal/recommend"
)

// errorMapping pairs a sentinel with its HTTP rendering.
type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins.
var engineErrors = []errorMapping{
	{recommend.ErrNoTrainingData, http.StatusBadRequest, ErrCodeNoTrainingData},
	{recommend.ErrModelNotTrained, http.StatusConflict, ErrCodeModelNotTrained},
	{recommend.ErrTrainingInProgress, http.StatusConflict, ErrCodeTrainingInProgress},
	{recommend.ErrItemNotFound, http.StatusNotFound, ErrCodeItemNotFound},
	{database.ErrInvalidInteraction, http.StatusBadRequest, ErrCodeBadRequest},
	{gobreaker.ErrOpenState, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
	{gobreaker.ErrTooManyRequests, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
}

// statusForError returns the HTTP status and code for err.
func statusForError(err error) (int, string) {
	for _, m := range engineErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// writeEngineError renders an engine or store error. Known errors expose
// their message; unknown ones are logged and hidden.
func writeEngineError(rw *ResponseWriter, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		rw.InternalError(err)
		return
	}
	rw.Error(status, code, err.Error())
}
