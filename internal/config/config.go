// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

// Package config loads Reelmatch configuration.
//
// Values are layered with koanf: struct defaults, then an optional YAML file,
// then environment variables. Later layers win. See Load for the file search
// order and envMappings for the recognised environment variables.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies on write endpoints.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	CORSOrigins []string `koanf:"cors_origins"`

	// Per-IP rate limit. RateLimitDisabled turns it off entirely.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file. ":memory:" keeps everything in RAM.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker count. Zero uses runtime.NumCPU.
	Threads int `koanf:"threads"`

	// QueryTimeout bounds every read issued on behalf of the engine.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker around engine reads.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32 `koanf:"max_requests"`

	// Interval resets the closed-state counters. Timeout is how long the
	// breaker stays open before probing.
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`

	// The breaker trips once at least MinRequests were seen and the failure
	// ratio reaches FailureRatio.
	MinRequests  uint32  `koanf:"min_requests"`
	FailureRatio float64 `koanf:"failure_ratio"`
}

// RecommendConfig holds training schedule, model and orchestrator settings.
type RecommendConfig struct {
	// TrainOnStartup trains once as soon as the service starts.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// TrainInterval is the retraining period. Zero disables scheduled runs.
	TrainInterval time.Duration `koanf:"train_interval"`

	// MinRatings skips scheduled training while the store holds fewer
	// interactions than this.
	MinRatings int `koanf:"min_ratings"`

	TrainingTimeout time.Duration `koanf:"training_timeout"`

	Snapshot SnapshotConfig `koanf:"snapshot"`
	MF       MFConfig       `koanf:"mf"`
	Content  ContentConfig  `koanf:"content"`
	Hybrid   HybridConfig   `koanf:"hybrid"`

	DefaultTopN int `koanf:"default_top_n"`
	MaxTopN     int `koanf:"max_top_n"`

	Cache CacheConfig `koanf:"cache"`

	// CatalogRefresh is how long a loaded catalog is served before reloading.
	CatalogRefresh time.Duration `koanf:"catalog_refresh"`
}

// SnapshotConfig selects where trained models are persisted.
type SnapshotConfig struct {
	// Backend is "file", "badger" or "none".
	Backend        string `koanf:"backend"`
	Path           string `koanf:"path"`
	RetainVersions int    `koanf:"retain_versions"`
}

// MFConfig holds matrix factorization hyperparameters.
type MFConfig struct {
	Factors           int     `koanf:"factors"`
	LearningRate      float64 `koanf:"learning_rate"`
	Iterations        int     `koanf:"iterations"`
	Regularization    float64 `koanf:"regularization"`
	LearningRateDecay float64 `koanf:"learning_rate_decay"`
	Seed              int64   `koanf:"seed"`
	MinInteractions   int     `koanf:"min_interactions"`
	CacheSize         int     `koanf:"cache_size"`
}

// ContentConfig holds TF-IDF index settings.
type ContentConfig struct {
	MaxFeatures   int     `koanf:"max_features"`
	MinSimilarity float64 `koanf:"min_similarity"`
	MaxNGram      int     `koanf:"max_ngram"`
}

// HybridConfig holds blending and popularity settings.
type HybridConfig struct {
	CollaborativeWeight float64 `koanf:"collaborative_weight"`
	SeedItems           int     `koanf:"seed_items"`
	CandidatesPerSeed   int     `koanf:"candidates_per_seed"`
	MinVotes            int     `koanf:"min_votes"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled           bool          `koanf:"enabled"`
	TTL               time.Duration `koanf:"ttl"`
	MaxEntries        int           `koanf:"max_entries"`
	InvalidateOnTrain bool          `koanf:"invalidate_on_train"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `koanf:"level"`

	// Format is json (production) or console (development).
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}

// SupervisorConfig tunes restart behaviour of the supervisor tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
