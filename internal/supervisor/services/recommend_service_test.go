// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

type fakeEngine struct {
	calls atomic.Int32
	err   error
}

func (f *fakeEngine) Train(context.Context) (*recommend.TrainingResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &recommend.TrainingResult{Version: int(f.calls.Load()), FinalRMSE: 0.5}, nil
}

type fakeCounter struct {
	n   int
	err error
}

func (f fakeCounter) CountInteractions(context.Context) (int, error) {
	return f.n, f.err
}

func runFor(t *testing.T, svc *RecommendService, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return svc.Serve(ctx)
}

func TestRecommendService_String(t *testing.T) {
	t.Parallel()

	svc := NewRecommendService(&fakeEngine{}, nil, RecommendServiceConfig{}, zerolog.Nop())
	if got := svc.String(); got != "recommend-service" {
		t.Errorf("String() = %q, want recommend-service", got)
	}
}

func TestRecommendService_StartupTraining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       RecommendServiceConfig
		counter   InteractionCounter
		wantCalls int32
	}{
		{
			name:      "trains on startup",
			cfg:       RecommendServiceConfig{TrainOnStartup: true, TrainInterval: time.Hour},
			wantCalls: 1,
		},
		{
			name:      "no startup training",
			cfg:       RecommendServiceConfig{TrainInterval: time.Hour},
			wantCalls: 0,
		},
		{
			name:      "skips below min ratings",
			cfg:       RecommendServiceConfig{TrainOnStartup: true, MinRatings: 10},
			counter:   fakeCounter{n: 9},
			wantCalls: 0,
		},
		{
			name:      "trains at min ratings",
			cfg:       RecommendServiceConfig{TrainOnStartup: true, MinRatings: 10},
			counter:   fakeCounter{n: 10},
			wantCalls: 1,
		},
		{
			name:      "skips when count fails",
			cfg:       RecommendServiceConfig{TrainOnStartup: true, MinRatings: 1},
			counter:   fakeCounter{err: errors.New("db down")},
			wantCalls: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &fakeEngine{}
			svc := NewRecommendService(engine, tt.counter, tt.cfg, zerolog.Nop())
			err := runFor(t, svc, 50*time.Millisecond)

			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() error = %v, want deadline exceeded", err)
			}
			if got := engine.calls.Load(); got != tt.wantCalls {
				t.Errorf("Train() calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRecommendService_IntervalTraining(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	svc := NewRecommendService(engine, fakeCounter{n: 100}, RecommendServiceConfig{
		TrainInterval: 20 * time.Millisecond,
		MinRatings:    1,
	}, zerolog.Nop())

	_ = runFor(t, svc, 150*time.Millisecond)

	if got := engine.calls.Load(); got < 3 {
		t.Errorf("Train() calls = %d, want at least 3", got)
	}
}

func TestRecommendService_TrainingErrorsDoNotStopService(t *testing.T) {
	t.Parallel()

	for _, trainErr := range []error{
		errors.New("boom"),
		recommend.ErrTrainingInProgress,
		recommend.ErrNoTrainingData,
	} {
		engine := &fakeEngine{err: trainErr}
		svc := NewRecommendService(engine, nil, RecommendServiceConfig{
			TrainOnStartup: true,
			TrainInterval:  10 * time.Millisecond,
		}, zerolog.Nop())

		err := runFor(t, svc, 60*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("%v: Serve() error = %v, want deadline exceeded", trainErr, err)
		}
		if engine.calls.Load() < 2 {
			t.Errorf("%v: Train() calls = %d, want retries", trainErr, engine.calls.Load())
		}
	}
}
