// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the service cannot run with.
// Hyperparameter ranges are checked again by the model constructors.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateServer(),
		c.validateDatabase(),
		c.validateRecommend(),
		c.validateLogging(),
	)
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", s.Port)
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", s.MaxBodyBytes)
	}
	if !s.RateLimitDisabled && (s.RateLimitReqs <= 0 || s.RateLimitWindow <= 0) {
		return fmt.Errorf("rate limit requires positive RATE_LIMIT_REQS and RATE_LIMIT_WINDOW")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	d := c.Database
	if d.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if d.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative, got %d", d.Threads)
	}
	if d.QueryTimeout <= 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT must be positive, got %v", d.QueryTimeout)
	}
	if b := d.Breaker; b.Enabled {
		if b.FailureRatio <= 0 || b.FailureRatio > 1 {
			return fmt.Errorf("DB_BREAKER_FAIL_RATE must be in (0,1], got %f", b.FailureRatio)
		}
		if b.Timeout <= 0 {
			return fmt.Errorf("DB_BREAKER_TIMEOUT must be positive, got %v", b.Timeout)
		}
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.MinRatings < 0 {
		return fmt.Errorf("RECOMMEND_MIN_RATINGS must be non-negative, got %d", r.MinRatings)
	}
	if r.TrainInterval < 0 {
		return fmt.Errorf("RECOMMEND_TRAIN_INTERVAL must be non-negative, got %v", r.TrainInterval)
	}
	switch r.Snapshot.Backend {
	case "none":
	case "file", "badger":
		if r.Snapshot.Path == "" {
			return fmt.Errorf("RECOMMEND_MODEL_PATH is required for the %s snapshot backend", r.Snapshot.Backend)
		}
	default:
		return fmt.Errorf("RECOMMEND_SNAPSHOT_BACKEND must be file, badger or none, got %q", r.Snapshot.Backend)
	}
	if r.Snapshot.RetainVersions < 0 {
		return fmt.Errorf("RECOMMEND_RETAIN_VERSIONS must be non-negative, got %d", r.Snapshot.RetainVersions)
	}
	if r.Content.MaxNGram < 1 {
		return fmt.Errorf("recommend.content.max_ngram must be at least 1, got %d", r.Content.MaxNGram)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be trace, debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
