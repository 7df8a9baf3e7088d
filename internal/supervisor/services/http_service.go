// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// APIServiceConfig configures the recommendation API listener.
type APIServiceConfig struct {
	// Addr is the listen address, used in logs only. The server owns the
	// real address.
	Addr string

	// ShutdownTimeout bounds the drain of in-flight recommendation
	// requests. Non-positive means 10s.
	ShutdownTimeout time.Duration
}

// HTTPServerService runs the recommendation API server as a supervised
// service. Training runs in a sibling service, so a restart here never
// interrupts a model update.
//
//	server := &http.Server{Addr: ":8080", Handler: router}
//	tree.AddAPIService(services.NewHTTPServerService(server, services.APIServiceConfig{Addr: server.Addr}, logger))
type HTTPServerService struct {
	server HTTPServer
	config APIServiceConfig
	logger zerolog.Logger
	name   string
}

// NewHTTPServerService wraps server.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewHTTPServerService(server HTTPServer, cfg APIServiceConfig, logger zerolog.Logger) *HTTPServerService {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server: server,
		config: cfg,
		logger: logger.With().Str("service", "recommend-api").Str("addr", cfg.Addr).Logger(),
		name:   "recommend-api",
	}
}

// Serve implements suture.Service. A listener failure is returned wrapped
// so the supervisor restarts the API; cancellation drains in-flight
// requests and returns ctx.Err().
func (h *HTTPServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()
	h.logger.Info().Msg("Recommendation API listening")

	select {
	case err := <-listenErr:
		if err == nil {
			return nil
		}
		h.logger.Error().Err(err).Msg("Recommendation API stopped unexpectedly")
		return fmt.Errorf("recommendation api: %w", err)

	case <-ctx.Done():
		start := time.Now()
		drainCtx, cancel := context.WithTimeout(context.Background(), h.config.ShutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(drainCtx); err != nil {
			h.logger.Warn().Err(err).Dur("timeout", h.config.ShutdownTimeout).Msg("Recommendation API drain incomplete")
			return fmt.Errorf("recommendation api shutdown: %w", err)
		}
		<-listenErr
		h.logger.Info().Dur("drained_in", time.Since(start)).Msg("Recommendation API stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logs.
func (h *HTTPServerService) String() string {
	return h.name
}
