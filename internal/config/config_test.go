// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Recommend.MF.Factors != 20 || cfg.Recommend.MF.Seed != 42 {
		t.Errorf("MF defaults = %+v", cfg.Recommend.MF)
	}
	if cfg.Recommend.Hybrid.CollaborativeWeight != 0.7 {
		t.Errorf("CollaborativeWeight = %v, want 0.7", cfg.Recommend.Hybrid.CollaborativeWeight)
	}
	if cfg.Recommend.Snapshot.Backend != "file" {
		t.Errorf("Snapshot.Backend = %q, want file", cfg.Recommend.Snapshot.Backend)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"HTTP_PORT", "server.port"},
		{"DUCKDB_PATH", "database.path"},
		{"RECOMMEND_FACTORS", "recommend.mf.factors"},
		{"RECOMMEND_MODEL_PATH", "recommend.snapshot.path"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.input); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DUCKDB_PATH", ":memory:")
	t.Setenv("RECOMMEND_FACTORS", "32")
	t.Setenv("RECOMMEND_CACHE_TTL", "90s")
	t.Setenv("RECOMMEND_COLLABORATIVE_WEIGHT", "0.5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Recommend.MF.Factors != 32 {
		t.Errorf("MF.Factors = %d, want 32", cfg.Recommend.MF.Factors)
	}
	if cfg.Recommend.Cache.TTL != 90*time.Second {
		t.Errorf("Cache.TTL = %v, want 90s", cfg.Recommend.Cache.TTL)
	}
	if cfg.Recommend.Hybrid.CollaborativeWeight != 0.5 {
		t.Errorf("CollaborativeWeight = %v, want 0.5", cfg.Recommend.Hybrid.CollaborativeWeight)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Recommend.MF.LearningRate != 0.01 {
		t.Errorf("unset field lost its default: LearningRate = %v", cfg.Recommend.MF.LearningRate)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 7000
recommend:
  train_on_startup: false
  mf:
    factors: 8
    iterations: 5
  snapshot:
    backend: badger
    path: /tmp/reelmatch-models
logging:
  format: console
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("RECOMMEND_ITERATIONS", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000 from file", cfg.Server.Port)
	}
	if cfg.Recommend.TrainOnStartup {
		t.Error("TrainOnStartup = true, want false from file")
	}
	if cfg.Recommend.MF.Factors != 8 {
		t.Errorf("MF.Factors = %d, want 8 from file", cfg.Recommend.MF.Factors)
	}
	if cfg.Recommend.MF.Iterations != 12 {
		t.Errorf("MF.Iterations = %d, want 12 from env", cfg.Recommend.MF.Iterations)
	}
	if cfg.Recommend.Snapshot.Backend != "badger" || cfg.Logging.Format != "console" {
		t.Errorf("file values not applied: %+v %+v", cfg.Recommend.Snapshot, cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"breaker ratio", func(c *Config) { c.Database.Breaker.FailureRatio = 1.5 }, "DB_BREAKER_FAIL_RATE"},
		{"breaker disabled ignores ratio", func(c *Config) {
			c.Database.Breaker.Enabled = false
			c.Database.Breaker.FailureRatio = 0
		}, ""},
		{"unknown backend", func(c *Config) { c.Recommend.Snapshot.Backend = "s3" }, "RECOMMEND_SNAPSHOT_BACKEND"},
		{"no snapshot path", func(c *Config) { c.Recommend.Snapshot.Path = "" }, "RECOMMEND_MODEL_PATH"},
		{"none backend needs no path", func(c *Config) {
			c.Recommend.Snapshot.Backend = "none"
			c.Recommend.Snapshot.Path = ""
		}, ""},
		{"rate limit", func(c *Config) { c.Server.RateLimitReqs = 0 }, "rate limit"},
		{"rate limit disabled", func(c *Config) {
			c.Server.RateLimitDisabled = true
			c.Server.RateLimitReqs = 0
		}, ""},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
