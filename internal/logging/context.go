// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Each value gets its own key type so no other package can collide with it.
type (
	requestIDKey struct{}
	userIDKey    struct{}
	loggerKey    struct{}
)

// GenerateRequestID returns a new random request ID. The engine stamps the
// same ID on response metadata, so API logs and responses can be joined.
func GenerateRequestID() string {
	return uuid.NewString()
}

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithUserID records the user a recommendation request is for.
// Non-positive IDs are not stored.
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	if userID <= 0 {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user stored by ContextWithUserID.
func UserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey{}).(int)
	return id, ok
}

// ContextWithLogger stores a logger in ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns the context logger with request_id and user_id attached when
// present.
//
//	ctx = logging.ContextWithUserID(ctx, userID)
//	logging.Ctx(ctx).Debug().Str("mode", "hybrid").Msg("Recommendations served")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)
	id := RequestIDFromContext(ctx)
	userID, hasUser := UserIDFromContext(ctx)
	if id == "" && !hasUser {
		return &logger
	}

	lc := logger.With()
	if id != "" {
		lc = lc.Str("request_id", id)
	}
	if hasUser {
		lc = lc.Int("user_id", userID)
	}
	logger = lc.Logger()
	return &logger
}
