// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation orchestrator.
// Model hyperparameters live with the models themselves (see the algorithms
// package); this struct only covers blending, fallback and serving policy.
type Config struct {
	// Hybrid controls how collaborative and content signals are blended.
	Hybrid HybridConfig `json:"hybrid"`

	// Popularity controls the popularity ranking used as universal fallback.
	Popularity PopularityConfig `json:"popularity"`

	// Training contains training run parameters.
	Training TrainingConfig `json:"training"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Cache contains response caching parameters.
	Cache CacheConfig `json:"cache"`

	// Catalog controls how often the item catalog snapshot is reloaded.
	Catalog CatalogConfig `json:"catalog"`
}

// HybridConfig contains parameters for personalized recommendations.
type HybridConfig struct {
	// CollaborativeWeight is the fraction of slots given to collaborative
	// filtering for warm users. floor(topN * weight) slots are collaborative,
	// the remainder is content-based.
	// Default: 0.7.
	CollaborativeWeight float64 `json:"collaborative_weight"`

	// SeedItems is how many of the user's highest-weighted items seed
	// content-based recommendations.
	// Default: 3.
	SeedItems int `json:"seed_items"`

	// CandidatesPerSeed is how many similar items are requested per seed.
	// Default: 20.
	CandidatesPerSeed int `json:"candidates_per_seed"`
}

// PopularityConfig contains parameters for popularity ranking.
type PopularityConfig struct {
	// MinVotes is the minimum vote count for an item to be ranked.
	// Default: 10.
	MinVotes int `json:"min_votes"`
}

// TrainingConfig contains training run parameters.
type TrainingConfig struct {
	// Timeout is the maximum time allowed for a training run.
	// Default: 10m.
	Timeout time.Duration `json:"timeout"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultTopN is used when a request does not specify a limit.
	// Default: 10.
	DefaultTopN int `json:"default_top_n"`

	// MaxTopN is the maximum number of recommendations per request.
	// Default: 100.
	MaxTopN int `json:"max_top_n"`
}

// CacheConfig contains response caching parameters.
type CacheConfig struct {
	// Enabled controls whether response caching is active.
	// Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries is the maximum number of cached responses.
	// Default: 10000.
	MaxEntries int `json:"max_entries"`

	// InvalidateOnTrain controls whether the cache is cleared after training.
	// Default: true.
	InvalidateOnTrain bool `json:"invalidate_on_train"`
}

// CatalogConfig controls the in-memory catalog snapshot.
type CatalogConfig struct {
	// RefreshInterval is the maximum age of the catalog snapshot before it
	// is reloaded from the data provider.
	// Default: 1m.
	RefreshInterval time.Duration `json:"refresh_interval"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Hybrid: HybridConfig{
			CollaborativeWeight: 0.7,
			SeedItems:           3,
			CandidatesPerSeed:   20,
		},
		Popularity: PopularityConfig{
			MinVotes: 10,
		},
		Training: TrainingConfig{
			Timeout: 10 * time.Minute,
		},
		Limits: LimitsConfig{
			DefaultTopN: 10,
			MaxTopN:     100,
		},
		Cache: CacheConfig{
			Enabled:           true,
			TTL:               5 * time.Minute,
			MaxEntries:        10000,
			InvalidateOnTrain: true,
		},
		Catalog: CatalogConfig{
			RefreshInterval: time.Minute,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Hybrid.CollaborativeWeight < 0 || c.Hybrid.CollaborativeWeight > 1 {
		return fmt.Errorf("hybrid.collaborative_weight must be in [0,1], got %f", c.Hybrid.CollaborativeWeight)
	}
	if c.Hybrid.SeedItems <= 0 {
		return fmt.Errorf("hybrid.seed_items must be positive, got %d", c.Hybrid.SeedItems)
	}
	if c.Hybrid.CandidatesPerSeed <= 0 {
		return fmt.Errorf("hybrid.candidates_per_seed must be positive, got %d", c.Hybrid.CandidatesPerSeed)
	}
	if c.Popularity.MinVotes < 0 {
		return fmt.Errorf("popularity.min_votes must be non-negative, got %d", c.Popularity.MinVotes)
	}
	if c.Training.Timeout <= 0 {
		return fmt.Errorf("training.timeout must be positive, got %v", c.Training.Timeout)
	}
	if c.Limits.DefaultTopN <= 0 {
		return fmt.Errorf("limits.default_top_n must be positive, got %d", c.Limits.DefaultTopN)
	}
	if c.Limits.MaxTopN < c.Limits.DefaultTopN {
		return fmt.Errorf("limits.max_top_n (%d) must be >= limits.default_top_n (%d)", c.Limits.MaxTopN, c.Limits.DefaultTopN)
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive when cache is enabled, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be non-negative, got %v", c.Cache.TTL)
	}
	if c.Catalog.RefreshInterval < 0 {
		return fmt.Errorf("catalog.refresh_interval must be non-negative, got %v", c.Catalog.RefreshInterval)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// Nested structs hold only value types.
	clone := *c
	return &clone
}
