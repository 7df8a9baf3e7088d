// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"reflect"
	"testing"
	"time"
)

func sampleState(version int) *MFModelState {
	return &MFModelState{
		NumFactors:  2,
		UserFactors: []float64{0.1, -0.2, 0.3, 0.4},
		ItemFactors: []float64{0.5, 0.6, -0.7, 0.8, 0.9, 1.0},
		UserBias:    []float64{0.01, -0.02},
		ItemBias:    []float64{0.1, 0.2, 0.3},
		GlobalMean:  2.5,
		UserIDs:     []int{1, 7},
		ItemIDs:     []int{10, 20, 30},
		TrainedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Version:     version,
		RatingCount: 4,
		RMSEHistory: []float64{1.2, 0.9},
	}
}

// backends returns a constructor per backend so every test runs against both.
func backends(t *testing.T) map[string]func() Backend {
	t.Helper()
	return map[string]func() Backend{
		"file": func() Backend {
			b, err := NewFileBackend(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileBackend: %v", err)
			}
			return b
		},
		"badger": func() Backend {
			b, err := OpenBadgerBackend("")
			if err != nil {
				t.Fatalf("OpenBadgerBackend: %v", err)
			}
			t.Cleanup(func() { _ = b.Close() })
			return b
		},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store, err := NewStore(ctx, newBackend())
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}

			state := sampleState(1)
			err = store.Save(ctx, "mf", 1, state, ModelMetadata{UserCount: 2, ItemCount: 3, RatingCount: 4})
			if err != nil {
				t.Fatalf("Save: %v", err)
			}

			var loaded MFModelState
			meta, err := store.Load(ctx, "mf", 0, &loaded)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if !reflect.DeepEqual(&loaded, state) {
				t.Errorf("loaded state = %+v, want %+v", loaded, *state)
			}
			if meta.Name != "mf" || meta.Version != 1 {
				t.Errorf("meta = %s v%d, want mf v1", meta.Name, meta.Version)
			}
			if meta.Checksum == "" {
				t.Error("meta.Checksum is empty")
			}
			if meta.SizeBytes <= 0 {
				t.Errorf("meta.SizeBytes = %d, want > 0", meta.SizeBytes)
			}
			if meta.UserCount != 2 || meta.ItemCount != 3 {
				t.Errorf("meta counts = users %d items %d, want 2 and 3", meta.UserCount, meta.ItemCount)
			}
		})
	}
}

func TestStore_LatestVersionAndPrune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			backend := newBackend()
			store, err := NewStore(ctx, backend)
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}

			for v := 1; v <= 4; v++ {
				if err := store.Save(ctx, "mf", v, sampleState(v), ModelMetadata{}); err != nil {
					t.Fatalf("Save v%d: %v", v, err)
				}
			}

			if v, ok := store.LatestVersion("mf"); !ok || v != 4 {
				t.Errorf("LatestVersion = %d, %v; want 4, true", v, ok)
			}

			if err := store.Prune(ctx, "mf", 2); err != nil {
				t.Fatalf("Prune: %v", err)
			}
			versions, err := backend.Versions(ctx, "mf")
			if err != nil {
				t.Fatalf("Versions: %v", err)
			}
			if !reflect.DeepEqual(versions, []int{3, 4}) {
				t.Errorf("versions after prune = %v, want [3 4]", versions)
			}

			var loaded MFModelState
			if _, err := store.Load(ctx, "mf", 0, &loaded); err != nil {
				t.Fatalf("Load latest after prune: %v", err)
			}
			if loaded.Version != 4 {
				t.Errorf("loaded.Version = %d, want 4", loaded.Version)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store, err := NewStore(ctx, newBackend())
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			_ = store.Save(ctx, "mf", 1, sampleState(1), ModelMetadata{})
			_ = store.Save(ctx, "mf", 2, sampleState(2), ModelMetadata{})

			if err := store.Delete(ctx, "mf", 2); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if v, ok := store.LatestVersion("mf"); !ok || v != 1 {
				t.Errorf("LatestVersion after delete = %d, %v; want 1, true", v, ok)
			}

			if err := store.Delete(ctx, "mf", 1); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok := store.LatestVersion("mf"); ok {
				t.Error("LatestVersion should report no model after deleting all versions")
			}
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	var loaded MFModelState
	if _, err := store.Load(ctx, "mf", 0, &loaded); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load latest of empty store error = %v, want ErrNotFound", err)
	}
	if _, err := store.Load(ctx, "mf", 7, &loaded); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load v7 error = %v, want ErrNotFound", err)
	}
}

func TestStore_ChecksumMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}

	// Hand-build a blob whose recorded checksum does not match its payload.
	var raw bytes.Buffer
	_ = gob.NewEncoder(&raw).Encode(sampleState(1))
	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	_, _ = gzw.Write(raw.Bytes())
	_ = gzw.Close()

	var blob bytes.Buffer
	_ = gob.NewEncoder(&blob).Encode(storedModel{
		Metadata:       ModelMetadata{Name: "mf", Version: 1, Checksum: "deadbeef"},
		CompressedData: compressed.Bytes(),
	})
	if err := backend.Put(ctx, "mf", 1, blob.Bytes()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	store, err := NewStore(ctx, backend)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	var loaded MFModelState
	_, err = store.Load(ctx, "mf", 1, &loaded)
	if err == nil {
		t.Fatal("Load succeeded, want checksum mismatch error")
	}
}

func TestNewStore_IndexesExistingSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_ = first.Save(ctx, "mf", 3, sampleState(3), ModelMetadata{})
	_ = first.Save(ctx, "mf", 5, sampleState(5), ModelMetadata{})

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := reopened.LatestVersion("mf"); !ok || v != 5 {
		t.Errorf("LatestVersion after reopen = %d, %v; want 5, true", v, ok)
	}

	models, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(models) != 1 || models[0].Version != 5 {
		t.Errorf("List = %+v, want one entry at v5", models)
	}
}

func TestStore_SaveRejectsNonPositiveVersion(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save(context.Background(), "mf", 0, sampleState(0), ModelMetadata{}); err == nil {
		t.Error("Save with version 0 succeeded, want error")
	}
}

func TestParseModelFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in          string
		wantName    string
		wantVersion int
	}{
		{"mf_v1", "mf", 1},
		{"my_model_v12", "my_model", 12},
		{"mf", "", 0},
		{"mf_vx", "", 0},
		{"_v3", "", 0},
		{"mf_v0", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, version := parseModelFilename(tt.in)
			if name != tt.wantName || version != tt.wantVersion {
				t.Errorf("parseModelFilename(%q) = %q, %d; want %q, %d", tt.in, name, version, tt.wantName, tt.wantVersion)
			}
		})
	}
}

func TestMFModelState_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*MFModelState)
		wantErr bool
	}{
		{"valid", func(*MFModelState) {}, false},
		{"zero factors", func(s *MFModelState) { s.NumFactors = 0 }, true},
		{"short user factors", func(s *MFModelState) { s.UserFactors = s.UserFactors[:3] }, true},
		{"short item factors", func(s *MFModelState) { s.ItemFactors = s.ItemFactors[:2] }, true},
		{"user bias mismatch", func(s *MFModelState) { s.UserBias = []float64{0} }, true},
		{"item bias mismatch", func(s *MFModelState) { s.ItemBias = nil }, true},
		{"duplicate user id", func(s *MFModelState) { s.UserIDs = []int{1, 1} }, true},
		{"duplicate item id", func(s *MFModelState) { s.ItemIDs = []int{10, 10, 30} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleState(1)
			tt.modify(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
