// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "model/"

// BadgerBackend stores snapshots in an embedded BadgerDB.
// Keys have the form model/{name}/v{version:010d} so a prefix scan returns
// versions in ascending order.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens (or creates) a BadgerDB at path.
// An empty path opens an in-memory database, which is useful in tests.
func OpenBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

// Put stores blob under the snapshot key.
func (b *BadgerBackend) Put(ctx context.Context, name string, version int, blob []byte) error {
	key := badgerKey(name, version)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, blob)
	})
}

// Get returns a copy of the stored blob.
func (b *BadgerBackend) Get(ctx context.Context, name string, version int) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(name, version))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s v%d: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Versions scans the name's key prefix.
func (b *BadgerBackend) Versions(ctx context.Context, name string) ([]int, error) {
	prefix := []byte(badgerKeyPrefix + name + "/v")
	var versions []int

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := strconv.Atoi(string(it.Item().Key()[len(prefix):]))
			if err != nil {
				continue
			}
			versions = append(versions, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan versions: %w", err)
	}
	sort.Ints(versions)
	return versions, nil
}

// Names lists distinct model names.
func (b *BadgerBackend) Names(ctx context.Context) ([]string, error) {
	prefix := []byte(badgerKeyPrefix)
	seen := make(map[string]struct{})

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := string(it.Item().Key()[len(prefix):])
			if idx := strings.LastIndex(rest, "/v"); idx > 0 {
				seen[rest[:idx]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan names: %w", err)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the snapshot key.
func (b *BadgerBackend) Remove(ctx context.Context, name string, version int) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(name, version))
	})
}

// Close closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func badgerKey(name string, version int) []byte {
	return []byte(fmt.Sprintf("%s%s/v%010d", badgerKeyPrefix, name, version))
}
