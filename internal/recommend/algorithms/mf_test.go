// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelmatch/internal/recommend"
	"github.com/tomtom215/reelmatch/internal/recommend/storage"
)

func newTestMF(t *testing.T, mutate func(*MFConfig)) *MatrixFactorization {
	t.Helper()
	cfg := DefaultMFConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewMatrixFactorization(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewMatrixFactorization: %v", err)
	}
	return m
}

// denseRatings builds a small dataset where users 1-3 like items 10-12 and
// users 4-6 like items 20-22.
func denseRatings() []recommend.Rating {
	var ratings []recommend.Rating
	for u := 1; u <= 6; u++ {
		for _, i := range []int{10, 11, 12, 20, 21, 22} {
			sameGroup := (u <= 3) == (i < 20)
			if sameGroup {
				ratings = append(ratings, recommend.Rating{UserID: u, ItemID: i, Value: 5})
			} else if (u+i)%2 == 0 {
				ratings = append(ratings, recommend.Rating{UserID: u, ItemID: i, Value: 1})
			}
		}
	}
	return ratings
}

func TestMFConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*MFConfig)
		field  string
	}{
		{"zero factors", func(c *MFConfig) { c.NumFactors = 0 }, "NumFactors"},
		{"zero iterations", func(c *MFConfig) { c.NumIterations = 0 }, "NumIterations"},
		{"zero learning rate", func(c *MFConfig) { c.LearningRate = 0 }, "LearningRate"},
		{"NaN learning rate", func(c *MFConfig) { c.LearningRate = math.NaN() }, "LearningRate"},
		{"negative regularization", func(c *MFConfig) { c.Regularization = -0.1 }, "Regularization"},
		{"zero decay", func(c *MFConfig) { c.LearningRateDecay = 0 }, "LearningRateDecay"},
		{"decay above one", func(c *MFConfig) { c.LearningRateDecay = 1.5 }, "LearningRateDecay"},
		{"negative min interactions", func(c *MFConfig) { c.MinInteractions = -1 }, "MinInteractions"},
		{"negative cache size", func(c *MFConfig) { c.CacheSize = -1 }, "CacheSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultMFConfig()
			tt.mutate(&cfg)

			_, err := NewMatrixFactorization(cfg, zerolog.Nop())
			if !errors.Is(err, recommend.ErrInvalidHyperparameter) {
				t.Fatalf("error = %v, want ErrInvalidHyperparameter", err)
			}
			var hpErr *recommend.InvalidHyperparameterError
			if !errors.As(err, &hpErr) || hpErr.Field != tt.field {
				t.Errorf("error = %v, want field %s", err, tt.field)
			}
		})
	}

	if err := DefaultMFConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg := DefaultMFConfig()
	cfg.LearningRateDecay = 1
	cfg.Regularization = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("boundary config invalid: %v", err)
	}
}

func TestMatrixFactorization_Untrained(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)

	if m.IsTrained() {
		t.Error("IsTrained() = true before training")
	}
	if got := m.Predict(1, 10); got != 0 {
		t.Errorf("Predict() = %f, want 0", got)
	}
	if _, err := m.Recommend(context.Background(), 1, 5, true, nil); !errors.Is(err, recommend.ErrModelNotTrained) {
		t.Errorf("Recommend error = %v, want ErrModelNotTrained", err)
	}
	if !m.IsColdStart(1, 10) {
		t.Error("IsColdStart() = false on untrained model")
	}
	info := m.Info()
	if info.Trained || info.Version != 0 || info.NFactors != 20 {
		t.Errorf("Info() = %+v, want untrained with 20 factors", info)
	}
	if err := m.SaveSnapshot(context.Background()); !errors.Is(err, recommend.ErrModelNotTrained) {
		t.Errorf("SaveSnapshot error = %v, want ErrModelNotTrained", err)
	}
}

func TestMatrixFactorization_TrainEmpty(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)

	if _, err := m.Train(context.Background(), nil); !errors.Is(err, recommend.ErrNoTrainingData) {
		t.Errorf("Train(nil) error = %v, want ErrNoTrainingData", err)
	}
}

func TestMatrixFactorization_TrainAggregatesAndIndexes(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)

	ratings := []recommend.Rating{
		{UserID: 2, ItemID: 10, Value: 2},
		{UserID: 1, ItemID: 10, Value: 3},
		{UserID: 1, ItemID: 20, Value: 1},
		{UserID: 1, ItemID: 10, Value: 2},
	}
	result, err := m.Train(context.Background(), ratings)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if result.NUsers != 2 || result.NItems != 2 || result.NRatings != 3 {
		t.Errorf("result = %d users, %d items, %d ratings; want 2, 2, 3", result.NUsers, result.NItems, result.NRatings)
	}
	if math.Abs(result.GlobalMean-8.0/3.0) > 1e-9 {
		t.Errorf("GlobalMean = %f, want 2.6667", result.GlobalMean)
	}
	if len(result.RMSEHistory) != 20 {
		t.Errorf("RMSEHistory has %d entries, want 20", len(result.RMSEHistory))
	}
	if result.Version != 1 {
		t.Errorf("Version = %d, want 1", result.Version)
	}

	s := m.state.Load()
	if s.userIndex[1] != 0 || s.userIndex[2] != 1 || s.itemIndex[10] != 0 || s.itemIndex[20] != 1 {
		t.Errorf("indices = users %v items %v, want ascending by ID", s.userIndex, s.itemIndex)
	}
	for id, idx := range s.userIndex {
		if s.userIDs[idx] != id {
			t.Errorf("userIDs[%d] = %d, want %d", idx, s.userIDs[idx], id)
		}
	}
	if r, c := s.userFactors.Dims(); r != 2 || c != 20 {
		t.Errorf("user factors %dx%d, want 2x20", r, c)
	}
}

func TestMatrixFactorization_SingleInteraction(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)

	if _, err := m.Train(context.Background(), []recommend.Rating{{UserID: 1, ItemID: 10, Value: 5}}); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got := m.Predict(1, 10); math.Abs(got-5) > 0.1 {
		t.Errorf("Predict(1, 10) = %f, want about 5", got)
	}
}

func TestMatrixFactorization_PredictFallbacks(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)

	if _, err := m.Train(context.Background(), denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	s := m.state.Load()
	gm := s.globalMean
	bi := s.itemBias[s.itemIndex[10]]
	bu := s.userBias[s.userIndex[1]]

	if got := m.Predict(999, 10); got != gm+bi {
		t.Errorf("unknown user: Predict = %f, want gm+bi = %f", got, gm+bi)
	}
	if got := m.Predict(1, 999); got != gm+bu {
		t.Errorf("unknown item: Predict = %f, want gm+bu = %f", got, gm+bu)
	}
	if got := m.Predict(999, 999); got != gm {
		t.Errorf("unknown both: Predict = %f, want gm = %f", got, gm)
	}
}

func TestMatrixFactorization_LearnsStructure(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, func(c *MFConfig) {
		c.NumIterations = 200
		c.LearningRate = 0.05
		c.LearningRateDecay = 0.99
	})

	result, err := m.Train(context.Background(), denseRatings())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if first, last := result.RMSEHistory[0], result.FinalRMSE; last >= first {
		t.Errorf("RMSE did not improve: first %f, final %f", first, last)
	}
	if liked, disliked := m.Predict(1, 10), m.Predict(1, 21); liked <= disliked {
		t.Errorf("Predict(1, liked) = %f should exceed Predict(1, disliked) = %f", liked, disliked)
	}
}

func TestMatrixFactorization_Deterministic(t *testing.T) {
	t.Parallel()
	a := newTestMF(t, nil)
	b := newTestMF(t, nil)

	ra, err := a.Train(context.Background(), denseRatings())
	if err != nil {
		t.Fatalf("Train a: %v", err)
	}
	rb, err := b.Train(context.Background(), denseRatings())
	if err != nil {
		t.Fatalf("Train b: %v", err)
	}
	if ra.FinalRMSE != rb.FinalRMSE {
		t.Errorf("same seed gave different RMSE: %f vs %f", ra.FinalRMSE, rb.FinalRMSE)
	}
	if a.Predict(4, 11) != b.Predict(4, 11) {
		t.Error("same seed gave different predictions")
	}
}

func TestMatrixFactorization_Recommend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMF(t, nil)

	if _, err := m.Train(ctx, denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	interacted := []int{10, 11, 21}
	recs, err := m.Recommend(ctx, 1, 10, true, interacted)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3 (6 items minus 3 interacted)", len(recs))
	}

	seen := make(map[int]bool)
	for i, r := range recs {
		if seen[r.ItemID] {
			t.Errorf("duplicate item %d", r.ItemID)
		}
		seen[r.ItemID] = true
		for _, x := range interacted {
			if r.ItemID == x {
				t.Errorf("interacted item %d returned", x)
			}
		}
		if i > 0 && recs[i-1].Score < r.Score {
			t.Errorf("not sorted: %f before %f", recs[i-1].Score, r.Score)
		}
		if want := m.Predict(1, r.ItemID); math.Abs(r.Score-want) > 1e-9 {
			t.Errorf("score for %d = %f, want Predict = %f", r.ItemID, r.Score, want)
		}
	}

	top2, err := m.Recommend(ctx, 1, 2, false, interacted)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(top2) != 2 {
		t.Errorf("len = %d, want 2", len(top2))
	}

	none, err := m.Recommend(ctx, 1, 0, true, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("Recommend(topN=0) = %v, %v; want empty", none, err)
	}
}

func TestMatrixFactorization_RecommendColdUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMF(t, nil)

	if _, err := m.Train(ctx, denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	recs, err := m.Recommend(ctx, 999, 6, false, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 6 {
		t.Fatalf("len = %d, want 6", len(recs))
	}

	s := m.state.Load()
	for _, r := range recs {
		want := s.globalMean + s.itemBias[s.itemIndex[r.ItemID]]
		if r.Score != want {
			t.Errorf("cold score for %d = %f, want gm+bi = %f", r.ItemID, r.Score, want)
		}
	}
}

func TestMatrixFactorization_RecommendCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMF(t, nil)

	if _, err := m.Train(ctx, denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	first, _ := m.Recommend(ctx, 1, 3, true, []int{10})
	first[0].Score = -100 // mutating the returned slice must not poison the cache
	second, _ := m.Recommend(ctx, 1, 3, true, []int{10})
	if second[0].Score == -100 {
		t.Error("cached result shares memory with caller")
	}
	if got := m.Info().CacheSize; got != 1 {
		t.Errorf("CacheSize = %d, want 1", got)
	}

	// A different interacted set is a different key.
	third, _ := m.Recommend(ctx, 1, 3, true, []int{10, second[0].ItemID})
	for _, r := range third {
		if r.ItemID == second[0].ItemID {
			t.Error("stale cache entry ignored new exclusion")
		}
	}

	if _, err := m.Train(ctx, denseRatings()); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if got := m.Info().CacheSize; got != 0 {
		t.Errorf("CacheSize after retrain = %d, want 0", got)
	}
}

func TestMatrixFactorization_IsColdStart(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)
	if _, err := m.Train(context.Background(), denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	tests := []struct {
		name  string
		user  int
		count int
		want  bool
	}{
		{"zero interactions", 1, 0, true},
		{"unknown user", 999, 10, true},
		{"below threshold", 1, 2, true},
		{"at threshold", 1, 3, false},
		{"above threshold", 1, 8, false},
	}
	for _, tt := range tests {
		if got := m.IsColdStart(tt.user, tt.count); got != tt.want {
			t.Errorf("%s: IsColdStart(%d, %d) = %v, want %v", tt.name, tt.user, tt.count, got, tt.want)
		}
	}
}

func TestMatrixFactorization_FailedTrainingKeepsModel(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)

	if _, err := m.Train(context.Background(), denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	before := m.Predict(1, 10)
	version := m.Info().Version

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Train(ctx, denseRatings())
		if !errors.Is(err, recommend.ErrTrainingFailed) || !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want ErrTrainingFailed wrapping context.Canceled", err)
		}
	})

	t.Run("non-finite rating", func(t *testing.T) {
		_, err := m.Train(context.Background(), []recommend.Rating{
			{UserID: 1, ItemID: 10, Value: math.Inf(1)},
			{UserID: 2, ItemID: 10, Value: 1},
		})
		if !errors.Is(err, recommend.ErrTrainingFailed) {
			t.Errorf("error = %v, want ErrTrainingFailed", err)
		}
	})

	if got := m.Predict(1, 10); got != before {
		t.Errorf("Predict changed after failed training: %f -> %f", before, got)
	}
	if got := m.Info().Version; got != version {
		t.Errorf("Version changed after failed training: %d -> %d", version, got)
	}
}

func TestMatrixFactorization_TrainingInProgress(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)

	m.trainMu.Lock()
	_, err := m.Train(context.Background(), denseRatings())
	m.trainMu.Unlock()

	if !errors.Is(err, recommend.ErrTrainingInProgress) {
		t.Errorf("error = %v, want ErrTrainingInProgress", err)
	}
}

func TestMatrixFactorization_ConcurrentReadsDuringTraining(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMF(t, nil)
	if _, err := m.Train(ctx, denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				_ = m.Predict(1+g%6, 10)
				if _, err := m.Recommend(ctx, 1+g%6, 3, true, []int{10}); err != nil {
					t.Errorf("Recommend: %v", err)
					return
				}
			}
		}(g)
	}
	for n := 0; n < 3; n++ {
		_, err := m.Train(ctx, denseRatings())
		if err != nil && !errors.Is(err, recommend.ErrTrainingInProgress) {
			t.Errorf("Train: %v", err)
		}
	}
	wg.Wait()
}

func TestMatrixFactorization_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	var (
		hookMu    sync.Mutex
		persisted []int
	)
	m := newTestMF(t, nil)
	m.SetStore(store)
	m.SetPersistHook(func(version int, err error) {
		hookMu.Lock()
		defer hookMu.Unlock()
		if err == nil {
			persisted = append(persisted, version)
		}
	})

	if _, err := m.Train(ctx, denseRatings()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	m.Flush()

	hookMu.Lock()
	if len(persisted) != 1 || persisted[0] != 1 {
		t.Errorf("persisted versions = %v, want [1]", persisted)
	}
	hookMu.Unlock()

	restored := newTestMF(t, nil)
	restored.SetStore(store)
	version, err := restored.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if version != 1 {
		t.Errorf("loaded version = %d, want 1", version)
	}

	for _, pair := range [][2]int{{1, 10}, {4, 21}, {999, 10}, {2, 999}} {
		if a, b := m.Predict(pair[0], pair[1]), restored.Predict(pair[0], pair[1]); a != b {
			t.Errorf("Predict%v = %f after restore, want %f", pair, b, a)
		}
	}
	if a, b := m.Info(), restored.Info(); a.NUsers != b.NUsers || a.NItems != b.NItems || a.FinalRMSE != b.FinalRMSE {
		t.Errorf("restored info = %+v, want %+v", b, a)
	}

	// A model with an attached store continues the version sequence.
	result, err := restored.Train(ctx, denseRatings())
	if err != nil {
		t.Fatalf("Train after restore: %v", err)
	}
	if result.Version != 2 {
		t.Errorf("version after restore and retrain = %d, want 2", result.Version)
	}
	restored.Flush()

	if err := m.SaveSnapshot(ctx); err != nil {
		t.Errorf("SaveSnapshot: %v", err)
	}
}

func TestMatrixFactorization_LoadSnapshotWithoutStore(t *testing.T) {
	t.Parallel()
	m := newTestMF(t, nil)
	if _, err := m.LoadSnapshot(context.Background()); err == nil {
		t.Error("LoadSnapshot without store succeeded")
	}
}

func TestIDSetFingerprint(t *testing.T) {
	t.Parallel()

	if idSetFingerprint([]int{3, 1, 2}) != idSetFingerprint([]int{1, 2, 3, 3}) {
		t.Error("fingerprint depends on order or duplicates")
	}
	if idSetFingerprint([]int{1, 2}) == idSetFingerprint([]int{1, 2, 3}) {
		t.Error("fingerprint ignores an added ID")
	}
}
