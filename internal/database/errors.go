// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package database

import (
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/reelmatch/internal/logging"
	"github.com/tomtom215/reelmatch/internal/recommend"
)

// ErrInvalidInteraction is returned for interactions that cannot be stored.
var ErrInvalidInteraction = errors.New("invalid interaction")

// invalidInteraction wraps ErrInvalidInteraction with a reason.
func invalidInteraction(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInteraction, fmt.Sprintf(format, args...))
}

// ErrItemNotFound aliases the engine sentinel so callers can test either.
var ErrItemNotFound = recommend.ErrItemNotFound

// closeWithLog closes a resource and logs a failure.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where Close errors are
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
