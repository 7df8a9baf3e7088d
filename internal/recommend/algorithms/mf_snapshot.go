// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/reelmatch/internal/recommend"
	"github.com/tomtom215/reelmatch/internal/recommend/storage"
)

// mfModelName is the snapshot name used for the MF model.
const mfModelName = "mf"

// persistTimeout bounds a background snapshot save.
const persistTimeout = 2 * time.Minute

// ModelStore persists versioned model snapshots. *storage.Store implements it.
type ModelStore interface {
	Save(ctx context.Context, name string, version int, data interface{}, meta storage.ModelMetadata) error
	Load(ctx context.Context, name string, version int, target interface{}) (*storage.ModelMetadata, error)
	LatestVersion(name string) (int, bool)
	Prune(ctx context.Context, name string, keepVersions int) error
}

var _ ModelStore = (*storage.Store)(nil)

// SetStore attaches a snapshot store. Successful training runs are then
// persisted in the background.
func (m *MatrixFactorization) SetStore(store ModelStore) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	m.store = store
}

// SetPersistHook registers a callback invoked after every background save.
func (m *MatrixFactorization) SetPersistHook(hook func(version int, err error)) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	m.persistHook = hook
}

func (m *MatrixFactorization) getStore() ModelStore {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()
	return m.store
}

// Flush blocks until all background saves have finished.
func (m *MatrixFactorization) Flush() {
	m.persistWG.Wait()
}

// SaveSnapshot synchronously persists the served model.
func (m *MatrixFactorization) SaveSnapshot(ctx context.Context) error {
	s := m.state.Load()
	if s == nil {
		return recommend.ErrModelNotTrained
	}
	store := m.getStore()
	if store == nil {
		return errors.New("no model store configured")
	}
	return m.save(ctx, store, s, 0)
}

// LoadSnapshot replaces the served model with the latest stored snapshot and
// returns its version.
func (m *MatrixFactorization) LoadSnapshot(ctx context.Context) (int, error) {
	store := m.getStore()
	if store == nil {
		return 0, errors.New("no model store configured")
	}

	var stored storage.MFModelState
	meta, err := store.Load(ctx, mfModelName, 0, &stored)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	s, err := stateFromStored(&stored)
	if err != nil {
		return 0, fmt.Errorf("restore snapshot v%d: %w", meta.Version, err)
	}
	if s.version == 0 {
		s.version = meta.Version
	}

	m.publish(s)
	m.logger.Info().
		Int("version", s.version).
		Int("users", len(s.userIDs)).
		Int("items", len(s.itemIDs)).
		Msg("MF snapshot loaded")
	return s.version, nil
}

// persistAsync saves s on a background goroutine. Failures are logged and
// reported to the persist hook; they never affect the served model.
func (m *MatrixFactorization) persistAsync(s *mfState, trainDuration time.Duration) {
	store := m.getStore()
	if store == nil {
		return
	}

	m.persistWG.Add(1)
	go func() {
		defer m.persistWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		err := m.save(ctx, store, s, trainDuration)
		if err != nil {
			m.logger.Error().Err(err).Int("version", s.version).Msg("Failed to persist MF snapshot")
		}

		m.storeMu.RLock()
		hook := m.persistHook
		m.storeMu.RUnlock()
		if hook != nil {
			hook(s.version, err)
		}
	}()
}

func (m *MatrixFactorization) save(ctx context.Context, store ModelStore, s *mfState, trainDuration time.Duration) error {
	meta := storage.ModelMetadata{
		TrainedAt:          s.trainedAt,
		RatingCount:        s.nRatings,
		ItemCount:          len(s.itemIDs),
		UserCount:          len(s.userIDs),
		FinalRMSE:          s.finalRMSE(),
		TrainingDurationMS: trainDuration.Milliseconds(),
	}
	if err := store.Save(ctx, mfModelName, s.version, storedFromState(s), meta); err != nil {
		return err
	}

	if m.cfg.RetainVersions > 0 {
		if err := store.Prune(ctx, mfModelName, m.cfg.RetainVersions); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to prune old MF snapshots")
		}
	}
	m.logger.Debug().Int("version", s.version).Msg("MF snapshot saved")
	return nil
}

func storedFromState(s *mfState) *storage.MFModelState {
	return &storage.MFModelState{
		NumFactors:  s.k,
		UserFactors: append([]float64(nil), s.userFactors.RawMatrix().Data...),
		ItemFactors: append([]float64(nil), s.itemFactors.RawMatrix().Data...),
		UserBias:    append([]float64(nil), s.userBias...),
		ItemBias:    append([]float64(nil), s.itemBias...),
		GlobalMean:  s.globalMean,
		UserIDs:     append([]int(nil), s.userIDs...),
		ItemIDs:     append([]int(nil), s.itemIDs...),
		TrainedAt:   s.trainedAt,
		Version:     s.version,
		RatingCount: s.nRatings,
		RMSEHistory: append([]float64(nil), s.rmseHistory...),
	}
}

func stateFromStored(st *storage.MFModelState) (*mfState, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if len(st.UserIDs) == 0 || len(st.ItemIDs) == 0 {
		return nil, errors.New("snapshot has no users or items")
	}

	userIndex := make(map[int]int, len(st.UserIDs))
	for n, id := range st.UserIDs {
		userIndex[id] = n
	}
	itemIndex := make(map[int]int, len(st.ItemIDs))
	for n, id := range st.ItemIDs {
		itemIndex[id] = n
	}

	return &mfState{
		k:           st.NumFactors,
		userFactors: mat.NewDense(len(st.UserIDs), st.NumFactors, st.UserFactors),
		itemFactors: mat.NewDense(len(st.ItemIDs), st.NumFactors, st.ItemFactors),
		userBias:    st.UserBias,
		itemBias:    st.ItemBias,
		globalMean:  st.GlobalMean,
		userIndex:   userIndex,
		itemIndex:   itemIndex,
		userIDs:     st.UserIDs,
		itemIDs:     st.ItemIDs,
		trainedAt:   st.TrainedAt,
		version:     st.Version,
		nRatings:    st.RatingCount,
		rmseHistory: st.RMSEHistory,
	}, nil
}
