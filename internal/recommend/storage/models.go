// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ModelMetadata contains information about a stored model.
type ModelMetadata struct {
	// Name is the model name (e.g., "mf").
	Name string `json:"name"`

	// Version is the model version (monotonically increasing).
	Version int `json:"version"`

	// TrainedAt is when the model was trained.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the model was saved.
	SavedAt time.Time `json:"saved_at"`

	// RatingCount is the number of aggregated ratings used for training.
	RatingCount int `json:"rating_count"`

	// ItemCount is the number of unique items.
	ItemCount int `json:"item_count"`

	// UserCount is the number of unique users.
	UserCount int `json:"user_count"`

	// FinalRMSE is the training error after the last epoch.
	FinalRMSE float64 `json:"final_rmse"`

	// Checksum is the SHA-256 checksum of the uncompressed model data.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed model size in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long training took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedModel is the encoded blob handed to a Backend.
type storedModel struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages versioned model snapshots on top of a Backend.
type Store struct {
	backend Backend
	mu      sync.RWMutex

	// latest version per model name
	versions map[string]int
}

// NewStore wraps backend and indexes the versions it already holds.
func NewStore(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{
		backend:  backend,
		versions: make(map[string]int),
	}

	names, err := backend.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	for _, name := range names {
		versions, err := backend.Versions(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("scan versions of %s: %w", name, err)
		}
		if len(versions) > 0 {
			s.versions[name] = versions[len(versions)-1]
		}
	}
	return s, nil
}

// NewFileStore is a convenience for a Store on a FileBackend rooted at baseDir.
func NewFileStore(baseDir string) (*Store, error) {
	backend, err := NewFileBackend(baseDir)
	if err != nil {
		return nil, err
	}
	return NewStore(context.Background(), backend)
}

// Save encodes data and stores it as (name, version).
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta ModelMetadata) error {
	if version <= 0 {
		return fmt.Errorf("version must be positive, got %d", version)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()
	meta.Name = name
	meta.Version = version

	var blob bytes.Buffer
	if err := gob.NewEncoder(&blob).Encode(storedModel{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Put(ctx, name, version, blob.Bytes()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return nil
}

// Load decodes snapshot (name, version) into target.
// A version of 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("no model found for %s: %w", name, ErrNotFound)
		}
	}

	blob, err := s.backend.Get(ctx, name, version)
	if err != nil {
		return nil, err
	}

	sm, err := decodeStored(blob)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sm.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	checksum := hex.EncodeToString(hash[:])
	if checksum != sm.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sm.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &sm.Metadata, nil
}

// LatestVersion returns the latest stored version for a model.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// List returns metadata for the latest version of every stored model.
func (s *Store) List(ctx context.Context) ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make([]ModelMetadata, 0, len(s.versions))
	for name, version := range s.versions {
		blob, err := s.backend.Get(ctx, name, version)
		if err != nil {
			continue
		}
		sm, err := decodeStored(blob)
		if err != nil {
			continue
		}
		models = append(models, sm.Metadata)
	}
	return models, nil
}

// Delete removes a specific model version.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(ctx, name, version); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if s.versions[name] != version {
		return nil
	}

	remaining, err := s.backend.Versions(ctx, name)
	if err != nil {
		return fmt.Errorf("rescan versions: %w", err)
	}
	if len(remaining) == 0 {
		delete(s.versions, name)
	} else {
		s.versions[name] = remaining[len(remaining)-1]
	}
	return nil
}

// Prune removes old versions, keeping only the latest keepVersions.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepVersions < 1 {
		keepVersions = 1
	}

	versions, err := s.backend.Versions(ctx, name)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}

	var errs []error
	for i := 0; i < len(versions)-keepVersions; i++ {
		if err := s.backend.Remove(ctx, name, versions[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func decodeStored(blob []byte) (*storedModel, error) {
	var sm storedModel
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&sm); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return &sm, nil
}
