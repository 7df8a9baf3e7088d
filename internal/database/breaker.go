// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package database

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/reelmatch/internal/config"
	"github.com/tomtom215/reelmatch/internal/logging"
	"github.com/tomtom215/reelmatch/internal/metrics"
	"github.com/tomtom215/reelmatch/internal/recommend"
)

// BreakerName labels the data provider breaker in metrics.
const BreakerName = "duckdb"

// BreakerProvider wraps a DataProvider with a circuit breaker. Once the
// failure ratio trips the breaker, reads fail fast with gobreaker.ErrOpenState
// until the timeout elapses and a probe succeeds.
//
// The breaker runs on wall-clock time; tests that need to observe recovery
// should use short timeouts rather than faking the clock.
type BreakerProvider struct {
	next recommend.DataProvider
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

var _ recommend.DataProvider = (*BreakerProvider)(nil)

// NewBreakerProvider wraps next using the thresholds in cfg.
func NewBreakerProvider(next recommend.DataProvider, cfg *config.BreakerConfig) *BreakerProvider {
	name := BreakerName
	minRequests := cfg.MinRequests
	ratio := cfg.FailureRatio

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= ratio
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		// A caller giving up is not a database failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerProvider{next: next, cb: cb, name: name}
}

// State returns the current breaker state.
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerProvider) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// castResult type-asserts a breaker result. A nil result is the zero T.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// AggregatedInteractions implements recommend.DataProvider.
func (b *BreakerProvider) AggregatedInteractions(ctx context.Context) ([]recommend.Rating, error) {
	return castResult[[]recommend.Rating](b.execute(func() (any, error) {
		return b.next.AggregatedInteractions(ctx)
	}))
}

// Items implements recommend.DataProvider.
func (b *BreakerProvider) Items(ctx context.Context) ([]recommend.Item, error) {
	return castResult[[]recommend.Item](b.execute(func() (any, error) {
		return b.next.Items(ctx)
	}))
}

// UserInteractionCount implements recommend.DataProvider.
func (b *BreakerProvider) UserInteractionCount(ctx context.Context, userID int) (int, error) {
	return castResult[int](b.execute(func() (any, error) {
		return b.next.UserInteractionCount(ctx, userID)
	}))
}

// UserInteractedItems implements recommend.DataProvider.
func (b *BreakerProvider) UserInteractedItems(ctx context.Context, userID int) ([]int, error) {
	return castResult[[]int](b.execute(func() (any, error) {
		return b.next.UserInteractedItems(ctx, userID)
	}))
}

// UserTopItems implements recommend.DataProvider.
func (b *BreakerProvider) UserTopItems(ctx context.Context, userID, k int) ([]int, error) {
	return castResult[[]int](b.execute(func() (any, error) {
		return b.next.UserTopItems(ctx, userID, k)
	}))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
