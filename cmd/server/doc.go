// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

// Package main is the entry point for the Reelmatch server.
//
// Reelmatch serves movie recommendations over HTTP. It blends a biased
// matrix factorization model trained on user interactions with a TF-IDF
// content index over the catalog, and falls back to a popularity ranking
// when neither signal is available.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config file, then environment (Koanf v2)
//  2. Logging: zerolog, JSON or console output
//  3. Database: DuckDB holding the catalog and the interaction log
//  4. Circuit breaker: gobreaker around every engine read
//  5. Snapshot store: file or BadgerDB backend for trained models
//  6. Models: matrix factorization (restored from the latest snapshot) and
//     the content index
//  7. Engine: the recommendation orchestrator with its response cache
//  8. Supervisor tree: the training scheduler and the HTTP server under suture
//
// # Configuration
//
// Configuration is layered, highest priority first:
//   - Environment variables (HTTP_PORT, DUCKDB_PATH, RECOMMEND_FACTORS, ...)
//   - Config file (config.yaml, or the path in CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// On SIGINT or SIGTERM the supervisor stops the HTTP server and the training
// scheduler. The server then waits for an in-flight training run, flushes
// pending snapshot writes, and closes the snapshot store and the database.
//
// # Example Usage
//
//	export DUCKDB_PATH=/var/lib/reelmatch/reelmatch.duckdb
//	export RECOMMEND_SNAPSHOT_BACKEND=badger
//	export RECOMMEND_MODEL_PATH=/var/lib/reelmatch/models
//	./reelmatch
package main
