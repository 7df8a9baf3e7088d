// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

// TrainingEngine is the part of the recommendation engine the scheduler drives.
type TrainingEngine interface {
	Train(ctx context.Context) (*recommend.TrainingResult, error)
}

// InteractionCounter reports the size of the interaction log.
type InteractionCounter interface {
	CountInteractions(ctx context.Context) (int, error)
}

// RecommendServiceConfig holds the training schedule.
type RecommendServiceConfig struct {
	// TrainOnStartup trains once as soon as the service starts.
	TrainOnStartup bool

	// TrainInterval is the retraining period. Zero disables scheduled runs.
	TrainInterval time.Duration

	// MinRatings is the interaction count below which training is skipped.
	MinRatings int
}

// RecommendService schedules model training under supervision.
type RecommendService struct {
	engine  TrainingEngine
	counter InteractionCounter
	config  RecommendServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewRecommendService creates the training scheduler. counter may be nil,
// in which case the MinRatings check is skipped.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewRecommendService(engine TrainingEngine, counter InteractionCounter, cfg RecommendServiceConfig, logger zerolog.Logger) *RecommendService {
	return &RecommendService{
		engine:  engine,
		counter: counter,
		config:  cfg,
		logger:  logger.With().Str("service", "recommend").Logger(),
		name:    "recommend-service",
	}
}

// Serve implements suture.Service. Training failures are logged and retried
// on the next tick; they never restart the service.
func (s *RecommendService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Int("min_ratings", s.config.MinRatings).
		Msg("Recommendation service starting")

	if s.config.TrainOnStartup {
		s.runCycle(ctx, "startup")
	}

	if s.config.TrainInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Recommendation service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx, "scheduled")
		}
	}
}

// runCycle performs one guarded training run.
func (s *RecommendService) runCycle(ctx context.Context, trigger string) {
	log := s.logger.With().Str("trigger", trigger).Logger()

	ready, err := s.enoughData(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not count interactions, skipping training")
		return
	}
	if !ready {
		log.Info().Int("min_ratings", s.config.MinRatings).Msg("Not enough interactions to train, skipping")
		return
	}

	result, err := s.engine.Train(ctx)
	switch {
	case err == nil:
		log.Info().
			Int("version", result.Version).
			Float64("rmse", result.FinalRMSE).
			Dur("duration", result.Duration).
			Msg("Scheduled training complete")
	case errors.Is(err, recommend.ErrTrainingInProgress):
		log.Info().Msg("Training already running, skipping cycle")
	case errors.Is(err, recommend.ErrNoTrainingData):
		log.Info().Msg("No training data yet")
	case ctx.Err() != nil:
		log.Debug().Err(err).Msg("Training interrupted by shutdown")
	default:
		log.Warn().Err(err).Msg("Training failed, will retry on schedule")
	}
}

func (s *RecommendService) enoughData(ctx context.Context) (bool, error) {
	if s.counter == nil || s.config.MinRatings <= 0 {
		return true, nil
	}
	n, err := s.counter.CountInteractions(ctx)
	if err != nil {
		return false, fmt.Errorf("count interactions: %w", err)
	}
	return n >= s.config.MinRatings, nil
}

// String returns the service name for logging.
func (s *RecommendService) String() string {
	return s.name
}
