// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

// Package storage provides versioned snapshot persistence for trained models.
//
// A snapshot is a model's complete serializable state. The Store encodes it
// with gob, records a SHA-256 checksum of the raw encoding, compresses it with
// gzip and hands the resulting blob to a Backend keyed by (name, version).
// Loading reverses the pipeline and rejects blobs whose checksum does not match.
//
// # Backends
//
//   - FileBackend writes one file per snapshot: {name}_v{version}.gob.gz
//   - BadgerBackend stores snapshots in an embedded BadgerDB under
//     model/{name}/v{version}
//
// Both are interchangeable behind the Backend interface; the server picks one
// from configuration.
//
// # Usage Example
//
//	store, err := storage.NewFileStore("/data/models")
//	if err != nil {
//	    return err
//	}
//
//	state := &storage.MFModelState{...}
//	err = store.Save(ctx, "mf", 3, state, storage.ModelMetadata{UserCount: 120})
//
//	var loaded storage.MFModelState
//	meta, err := store.Load(ctx, "mf", 0, &loaded) // 0 = latest
//
// # Thread Safety
//
// Store serializes writes with a mutex and allows concurrent loads.
package storage
