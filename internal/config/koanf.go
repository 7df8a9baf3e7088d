// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelmatch/config.yaml",
	"/etc/reelmatch/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      1 << 20,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Database: DatabaseConfig{
			Path:         "/data/reelmatch.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			QueryTimeout: 30 * time.Second,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Recommend: RecommendConfig{
			TrainOnStartup:  true,
			TrainInterval:   6 * time.Hour,
			MinRatings:      10,
			TrainingTimeout: 10 * time.Minute,
			Snapshot: SnapshotConfig{
				Backend:        "file",
				Path:           "/data/models",
				RetainVersions: 5,
			},
			MF: MFConfig{
				Factors:           20,
				LearningRate:      0.01,
				Iterations:        20,
				Regularization:    0.02,
				LearningRateDecay: 0.95,
				Seed:              42,
				MinInteractions:   3,
				CacheSize:         1000,
			},
			Content: ContentConfig{
				MaxFeatures:   5000,
				MinSimilarity: 0.01,
				MaxNGram:      2,
			},
			Hybrid: HybridConfig{
				CollaborativeWeight: 0.7,
				SeedItems:           3,
				CandidatesPerSeed:   20,
				MinVotes:            10,
			},
			DefaultTopN: 10,
			MaxTopN:     100,
			Cache: CacheConfig{
				Enabled:           true,
				TTL:               5 * time.Minute,
				MaxEntries:        10000,
				InvalidateOnTrain: true,
			},
			CatalogRefresh: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, in that order of increasing precedence, and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables to config paths. Anything not
// listed is ignored so unrelated variables cannot leak into the config.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"max_body_bytes":        "server.max_body_bytes",
	"cors_origins":          "server.cors_origins",
	"rate_limit_reqs":       "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	"duckdb_path":          "database.path",
	"duckdb_max_memory":    "database.max_memory",
	"duckdb_threads":       "database.threads",
	"db_query_timeout":     "database.query_timeout",
	"db_breaker_enabled":   "database.breaker.enabled",
	"db_breaker_timeout":   "database.breaker.timeout",
	"db_breaker_min_reqs":  "database.breaker.min_requests",
	"db_breaker_fail_rate": "database.breaker.failure_ratio",

	"recommend_train_on_startup":     "recommend.train_on_startup",
	"recommend_train_interval":       "recommend.train_interval",
	"recommend_min_ratings":          "recommend.min_ratings",
	"recommend_training_timeout":     "recommend.training_timeout",
	"recommend_snapshot_backend":     "recommend.snapshot.backend",
	"recommend_model_path":           "recommend.snapshot.path",
	"recommend_retain_versions":      "recommend.snapshot.retain_versions",
	"recommend_factors":              "recommend.mf.factors",
	"recommend_learning_rate":        "recommend.mf.learning_rate",
	"recommend_iterations":           "recommend.mf.iterations",
	"recommend_regularization":       "recommend.mf.regularization",
	"recommend_lr_decay":             "recommend.mf.learning_rate_decay",
	"recommend_seed":                 "recommend.mf.seed",
	"recommend_min_interactions":     "recommend.mf.min_interactions",
	"recommend_mf_cache_size":        "recommend.mf.cache_size",
	"recommend_max_features":         "recommend.content.max_features",
	"recommend_min_similarity":       "recommend.content.min_similarity",
	"recommend_collaborative_weight": "recommend.hybrid.collaborative_weight",
	"recommend_min_votes":            "recommend.hybrid.min_votes",
	"recommend_default_top_n":        "recommend.default_top_n",
	"recommend_max_top_n":            "recommend.max_top_n",
	"recommend_cache_enabled":        "recommend.cache.enabled",
	"recommend_cache_ttl":            "recommend.cache.ttl",
	"recommend_catalog_refresh":      "recommend.catalog_refresh",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"supervisor_shutdown_timeout": "supervisor.shutdown_timeout",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
