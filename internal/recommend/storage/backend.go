// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Backend persists opaque snapshot blobs keyed by model name and version.
type Backend interface {
	// Put stores blob, replacing any existing blob for (name, version).
	Put(ctx context.Context, name string, version int, blob []byte) error

	// Get returns the blob for (name, version) or ErrNotFound.
	Get(ctx context.Context, name string, version int) ([]byte, error)

	// Versions returns all stored versions of name in ascending order.
	Versions(ctx context.Context, name string) ([]int, error)

	// Names returns every model name with at least one stored version.
	Names(ctx context.Context) ([]string, error)

	// Remove deletes (name, version). Removing a missing snapshot is not an error.
	Remove(ctx context.Context, name string, version int) error

	// Close releases backend resources.
	Close() error
}

const snapshotExt = ".gob.gz"

// FileBackend stores each snapshot as a file in a directory.
type FileBackend struct {
	baseDir string
}

// NewFileBackend creates the directory if needed and returns a backend rooted there.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileBackend{baseDir: baseDir}, nil
}

// Put writes to a temporary file and renames it into place so readers never
// see a partially written snapshot.
func (b *FileBackend) Put(ctx context.Context, name string, version int, blob []byte) error {
	final := b.path(name, version)
	tmp, err := os.CreateTemp(b.baseDir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()        //nolint:errcheck // write already failed
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Get reads the snapshot file for (name, version).
func (b *FileBackend) Get(ctx context.Context, name string, version int) ([]byte, error) {
	data, err := os.ReadFile(b.path(name, version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s v%d: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Versions scans the directory for files belonging to name.
func (b *FileBackend) Versions(ctx context.Context, name string) ([]int, error) {
	all, err := b.scan()
	if err != nil {
		return nil, err
	}
	versions := all[name]
	sort.Ints(versions)
	return versions, nil
}

// Names scans the directory for model names.
func (b *FileBackend) Names(ctx context.Context) ([]string, error) {
	all, err := b.scan()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the snapshot file.
func (b *FileBackend) Remove(ctx context.Context, name string, version int) error {
	err := os.Remove(b.path(name, version))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for files.
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) scan() (map[string][]int, error) {
	entries, err := os.ReadDir(b.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	found := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotExt) {
			continue
		}
		name, version := parseModelFilename(strings.TrimSuffix(entry.Name(), snapshotExt))
		if name == "" {
			continue
		}
		found[name] = append(found[name], version)
	}
	return found, nil
}

func (b *FileBackend) path(name string, version int) string {
	return filepath.Join(b.baseDir, fmt.Sprintf("%s_v%d%s", name, version, snapshotExt))
}

// parseModelFilename extracts the model name and version from "mf_v12".
func parseModelFilename(base string) (name string, version int) {
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version <= 0 {
		return "", 0
	}
	return base[:idx], version
}
