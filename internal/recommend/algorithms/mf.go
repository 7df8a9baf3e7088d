// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package algorithms

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/reelmatch/internal/cache"
	"github.com/tomtom215/reelmatch/internal/recommend"
)

// MFConfig contains hyperparameters for the matrix factorization model.
type MFConfig struct {
	// NumFactors is the dimension of the latent factor vectors.
	NumFactors int

	// LearningRate is the initial SGD step size.
	LearningRate float64

	// NumIterations is the number of training epochs.
	NumIterations int

	// Regularization is the L2 penalty applied to biases and factors.
	Regularization float64

	// LearningRateDecay multiplies the learning rate after every epoch.
	// Must be in (0, 1].
	LearningRateDecay float64

	// Seed makes factor initialization and shuffling reproducible.
	Seed int64

	// MinInteractions is the cold-start threshold.
	MinInteractions int

	// CacheSize is the number of cached top-N results. Zero disables caching.
	CacheSize int

	// RetainVersions is how many snapshots to keep after each save.
	RetainVersions int
}

// DefaultMFConfig returns default matrix factorization hyperparameters.
func DefaultMFConfig() MFConfig {
	return MFConfig{
		NumFactors:        20,
		LearningRate:      0.01,
		NumIterations:     20,
		Regularization:    0.02,
		LearningRateDecay: 0.95,
		Seed:              42,
		MinInteractions:   3,
		CacheSize:         1000,
		RetainVersions:    5,
	}
}

// Validate rejects hyperparameters that cannot produce a usable model.
func (c MFConfig) Validate() error {
	switch {
	case c.NumFactors <= 0:
		return &recommend.InvalidHyperparameterError{Field: "NumFactors", Value: c.NumFactors, Reason: "must be positive"}
	case c.NumIterations <= 0:
		return &recommend.InvalidHyperparameterError{Field: "NumIterations", Value: c.NumIterations, Reason: "must be positive"}
	case c.LearningRate <= 0 || math.IsNaN(c.LearningRate) || math.IsInf(c.LearningRate, 0):
		return &recommend.InvalidHyperparameterError{Field: "LearningRate", Value: c.LearningRate, Reason: "must be a positive finite number"}
	case c.Regularization < 0 || math.IsNaN(c.Regularization) || math.IsInf(c.Regularization, 0):
		return &recommend.InvalidHyperparameterError{Field: "Regularization", Value: c.Regularization, Reason: "must be a non-negative finite number"}
	case !(c.LearningRateDecay > 0 && c.LearningRateDecay <= 1):
		return &recommend.InvalidHyperparameterError{Field: "LearningRateDecay", Value: c.LearningRateDecay, Reason: "must be in (0, 1]"}
	case c.MinInteractions < 0:
		return &recommend.InvalidHyperparameterError{Field: "MinInteractions", Value: c.MinInteractions, Reason: "must not be negative"}
	case c.CacheSize < 0:
		return &recommend.InvalidHyperparameterError{Field: "CacheSize", Value: c.CacheSize, Reason: "must not be negative"}
	case c.RetainVersions < 0:
		return &recommend.InvalidHyperparameterError{Field: "RetainVersions", Value: c.RetainVersions, Reason: "must not be negative"}
	}
	return nil
}

// mfState is an immutable trained model. A new one is built per training run
// or snapshot load and published with a single pointer swap.
type mfState struct {
	k           int
	userFactors *mat.Dense // nUsers x k
	itemFactors *mat.Dense // nItems x k
	userBias    []float64
	itemBias    []float64
	globalMean  float64

	userIndex map[int]int
	itemIndex map[int]int
	userIDs   []int
	itemIDs   []int

	trainedAt   time.Time
	version     int
	nRatings    int
	rmseHistory []float64
}

func (s *mfState) finalRMSE() float64 {
	if len(s.rmseHistory) == 0 {
		return 0
	}
	return s.rmseHistory[len(s.rmseHistory)-1]
}

// MatrixFactorization is a biased matrix factorization model trained with
// stochastic gradient descent:
//
//	r̂(u,i) = μ + b_u + b_i + p_u · q_i
//
// Reads never block: they load the current state pointer and work against
// that snapshot. Training builds a fresh state off to the side and swaps it
// in only on success.
type MatrixFactorization struct {
	cfg    MFConfig
	logger zerolog.Logger

	trainMu sync.Mutex
	state   atomic.Pointer[mfState]
	topN    *cache.LRU[[]recommend.ItemScore]

	storeMu     sync.RWMutex
	store       ModelStore
	persistHook func(version int, err error)
	persistWG   sync.WaitGroup
}

// NewMatrixFactorization validates cfg and returns an untrained model.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMatrixFactorization(cfg MFConfig, logger zerolog.Logger) (*MatrixFactorization, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &MatrixFactorization{
		cfg:    cfg,
		logger: logger.With().Str("component", "mf").Logger(),
	}
	if cfg.CacheSize > 0 {
		m.topN = cache.NewLRU[[]recommend.ItemScore](cfg.CacheSize, 0)
	}
	return m, nil
}

// Config returns the model hyperparameters.
func (m *MatrixFactorization) Config() MFConfig {
	return m.cfg
}

// IsTrained reports whether a model is being served.
func (m *MatrixFactorization) IsTrained() bool {
	return m.state.Load() != nil
}

// triple is one aggregated rating in index space.
type triple struct {
	u, i int
	r    float64
}

// Train fits a new model on ratings and swaps it in. Ratings for the same
// (user, item) pair are summed first. The served model is untouched unless
// training succeeds.
//
//nolint:gocyclo // SGD training loop is inherently branchy
func (m *MatrixFactorization) Train(ctx context.Context, ratings []recommend.Rating) (*recommend.TrainingResult, error) {
	if !m.trainMu.TryLock() {
		return nil, recommend.ErrTrainingInProgress
	}
	defer m.trainMu.Unlock()

	if len(ratings) == 0 {
		return nil, recommend.ErrNoTrainingData
	}
	if ContextCancelled(ctx) {
		return nil, fmt.Errorf("%w: %w", recommend.ErrTrainingFailed, ctx.Err())
	}

	start := time.Now()
	agg := sumRatings(ratings)

	userIDs, userIndex := denseIndex(agg, func(r recommend.Rating) int { return r.UserID })
	itemIDs, itemIndex := denseIndex(agg, func(r recommend.Rating) int { return r.ItemID })
	nUsers, nItems, k := len(userIDs), len(itemIDs), m.cfg.NumFactors

	triples := make([]triple, len(agg))
	var sum float64
	for n, r := range agg {
		triples[n] = triple{u: userIndex[r.UserID], i: itemIndex[r.ItemID], r: r.Value}
		sum += r.Value
	}
	gm := sum / float64(len(agg))

	//nolint:gosec // G404: math/rand is fine for model initialization, not security
	rng := rand.New(rand.NewSource(m.cfg.Seed))
	std := 0.1 / math.Sqrt(float64(k))

	userF := make([]float64, nUsers*k)
	for n := range userF {
		userF[n] = rng.NormFloat64() * std
	}
	itemF := make([]float64, nItems*k)
	for n := range itemF {
		itemF[n] = rng.NormFloat64() * std
	}
	bu := make([]float64, nUsers)
	bi := make([]float64, nItems)

	lr, reg := m.cfg.LearningRate, m.cfg.Regularization
	history := make([]float64, 0, m.cfg.NumIterations)

	for epoch := 0; epoch < m.cfg.NumIterations; epoch++ {
		if ContextCancelled(ctx) {
			return nil, fmt.Errorf("%w: cancelled at epoch %d: %w", recommend.ErrTrainingFailed, epoch, ctx.Err())
		}

		rng.Shuffle(len(triples), func(a, b int) { triples[a], triples[b] = triples[b], triples[a] })

		for _, t := range triples {
			pu := userF[t.u*k : (t.u+1)*k]
			qi := itemF[t.i*k : (t.i+1)*k]
			e := t.r - (gm + bu[t.u] + bi[t.i] + floats.Dot(pu, qi))

			bu[t.u] += lr * (e - reg*bu[t.u])
			bi[t.i] += lr * (e - reg*bi[t.i])
			for f := 0; f < k; f++ {
				puf, qif := pu[f], qi[f]
				pu[f] += lr * (e*qif - reg*puf)
				qi[f] += lr * (e*puf - reg*qif)
			}
		}

		rmse := trainingRMSE(triples, gm, bu, bi, userF, itemF, k)
		if math.IsNaN(rmse) || math.IsInf(rmse, 0) {
			return nil, fmt.Errorf("%w: non-finite error at epoch %d", recommend.ErrTrainingFailed, epoch)
		}
		history = append(history, rmse)
		lr *= m.cfg.LearningRateDecay

		m.logger.Debug().Int("epoch", epoch+1).Float64("rmse", rmse).Msg("MF epoch complete")
	}

	next := &mfState{
		k:           k,
		userFactors: mat.NewDense(nUsers, k, userF),
		itemFactors: mat.NewDense(nItems, k, itemF),
		userBias:    bu,
		itemBias:    bi,
		globalMean:  gm,
		userIndex:   userIndex,
		itemIndex:   itemIndex,
		userIDs:     userIDs,
		itemIDs:     itemIDs,
		trainedAt:   time.Now(),
		version:     m.nextVersion(),
		nRatings:    len(agg),
		rmseHistory: history,
	}
	m.publish(next)

	duration := time.Since(start)
	m.logger.Info().
		Int("users", nUsers).
		Int("items", nItems).
		Int("ratings", len(agg)).
		Float64("rmse", next.finalRMSE()).
		Int("version", next.version).
		Dur("duration", duration).
		Msg("MF model trained")

	m.persistAsync(next, duration)

	return &recommend.TrainingResult{
		NUsers:      nUsers,
		NItems:      nItems,
		NRatings:    len(agg),
		FinalRMSE:   next.finalRMSE(),
		GlobalMean:  gm,
		RMSEHistory: append([]float64(nil), history...),
		Version:     next.version,
		Duration:    duration,
		TrainedAt:   next.trainedAt,
	}, nil
}

// publish swaps in a new state and drops cached results from the old one.
func (m *MatrixFactorization) publish(next *mfState) {
	m.state.Store(next)
	if m.topN != nil {
		m.topN.Clear()
	}
}

// nextVersion is one past the highest version served or stored.
func (m *MatrixFactorization) nextVersion() int {
	v := 0
	if s := m.state.Load(); s != nil {
		v = s.version
	}
	if store := m.getStore(); store != nil {
		if latest, ok := store.LatestVersion(mfModelName); ok && latest > v {
			v = latest
		}
	}
	return v + 1
}

// Predict returns the predicted affinity of user for item. Unknown IDs fall
// back to the bias terms that are available. An untrained model returns 0.
func (m *MatrixFactorization) Predict(userID, itemID int) float64 {
	s := m.state.Load()
	if s == nil {
		return 0
	}

	u, knownUser := s.userIndex[userID]
	i, knownItem := s.itemIndex[itemID]

	switch {
	case knownUser && knownItem:
		return s.globalMean + s.userBias[u] + s.itemBias[i] +
			floats.Dot(s.userFactors.RawRowView(u), s.itemFactors.RawRowView(i))
	case knownItem:
		return s.globalMean + s.itemBias[i]
	case knownUser:
		return s.globalMean + s.userBias[u]
	default:
		return s.globalMean
	}
}

// Recommend returns up to topN items for userID, best first. A user unknown
// to the model is ranked by item bias alone. When excludeInteracted is set,
// items in interacted are skipped.
func (m *MatrixFactorization) Recommend(ctx context.Context, userID, topN int, excludeInteracted bool, interacted []int) ([]recommend.ItemScore, error) {
	s := m.state.Load()
	if s == nil {
		return nil, recommend.ErrModelNotTrained
	}
	if topN <= 0 {
		return []recommend.ItemScore{}, nil
	}
	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	var key string
	if m.topN != nil {
		key = topNCacheKey(s.version, userID, topN, excludeInteracted, interacted)
		if cached, ok := m.topN.Get(key); ok {
			return append([]recommend.ItemScore(nil), cached...), nil
		}
	}

	scores := m.scoreAll(s, userID)

	excluded := mapset.NewThreadUnsafeSet[int]()
	if excludeInteracted {
		excluded.Append(interacted...)
	}

	order := make([]int, 0, len(scores))
	for i := range scores {
		if excluded.Contains(s.itemIDs[i]) {
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})
	if len(order) > topN {
		order = order[:topN]
	}

	result := make([]recommend.ItemScore, len(order))
	for n, i := range order {
		result[n] = recommend.ItemScore{ItemID: s.itemIDs[i], Score: scores[i]}
	}

	if m.topN != nil {
		m.topN.Set(key, append([]recommend.ItemScore(nil), result...))
	}
	return result, nil
}

// scoreAll predicts every item for userID. Known users are scored with a
// single matrix-vector product over the item factors.
func (m *MatrixFactorization) scoreAll(s *mfState, userID int) []float64 {
	nItems := len(s.itemIDs)
	scores := make([]float64, nItems)

	u, known := s.userIndex[userID]
	if !known {
		for i := range scores {
			scores[i] = s.globalMean + s.itemBias[i]
		}
		return scores
	}

	dots := mat.NewVecDense(nItems, nil)
	dots.MulVec(s.itemFactors, mat.NewVecDense(s.k, s.userFactors.RawRowView(u)))

	base := s.globalMean + s.userBias[u]
	for i := range scores {
		scores[i] = base + s.itemBias[i] + dots.AtVec(i)
	}
	return scores
}

// IsColdStart reports whether collaborative output should not be trusted for
// userID given how many interactions the user has recorded.
func (m *MatrixFactorization) IsColdStart(userID, interactionCount int) bool {
	if interactionCount == 0 {
		return true
	}
	s := m.state.Load()
	if s == nil {
		return true
	}
	if _, ok := s.userIndex[userID]; !ok {
		return true
	}
	return interactionCount < m.cfg.MinInteractions
}

// Info describes the served model.
func (m *MatrixFactorization) Info() recommend.ModelInfo {
	info := recommend.ModelInfo{NFactors: m.cfg.NumFactors}
	if m.topN != nil {
		info.CacheSize = m.topN.Len()
	}

	s := m.state.Load()
	if s == nil {
		return info
	}
	info.Trained = true
	info.NUsers = len(s.userIDs)
	info.NItems = len(s.itemIDs)
	info.NFactors = s.k
	info.NRatings = s.nRatings
	info.GlobalMean = s.globalMean
	info.FinalRMSE = s.finalRMSE()
	info.LastTrainedAt = s.trainedAt
	info.Version = s.version
	return info
}

// sumRatings merges ratings that share a (user, item) pair.
func sumRatings(ratings []recommend.Rating) []recommend.Rating {
	interactions := make([]recommend.Interaction, len(ratings))
	for n, r := range ratings {
		interactions[n] = recommend.Interaction{UserID: r.UserID, ItemID: r.ItemID, Weight: r.Value}
	}
	return recommend.AggregateInteractions(interactions)
}

// denseIndex assigns contiguous indices to the distinct IDs picked from
// ratings, in ascending ID order.
func denseIndex(ratings []recommend.Rating, pick func(recommend.Rating) int) ([]int, map[int]int) {
	seen := make(map[int]struct{})
	ids := make([]int, 0)
	for _, r := range ratings {
		id := pick(r)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	index := make(map[int]int, len(ids))
	for n, id := range ids {
		index[id] = n
	}
	return ids, index
}

func trainingRMSE(triples []triple, gm float64, bu, bi, userF, itemF []float64, k int) float64 {
	var sse float64
	for _, t := range triples {
		pred := gm + bu[t.u] + bi[t.i] + floats.Dot(userF[t.u*k:(t.u+1)*k], itemF[t.i*k:(t.i+1)*k])
		e := t.r - pred
		sse += e * e
	}
	return math.Sqrt(sse / float64(len(triples)))
}

// topNCacheKey identifies a Recommend call. The interacted set only matters
// when it is excluded, so it is fingerprinted only then.
func topNCacheKey(version, userID, topN int, exclude bool, interacted []int) string {
	var fp uint64
	if exclude {
		fp = idSetFingerprint(interacted)
	}
	return strconv.Itoa(version) + ":" + strconv.Itoa(userID) + ":" + strconv.Itoa(topN) + ":" +
		strconv.FormatBool(exclude) + ":" + strconv.FormatUint(fp, 16)
}

// idSetFingerprint hashes the distinct IDs in ascending order.
func idSetFingerprint(ids []int) uint64 {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	h := fnv.New64a()
	var buf [8]byte
	prev, first := 0, true
	for _, id := range sorted {
		if !first && id == prev {
			continue
		}
		prev, first = id, false
		v := uint64(int64(id)) //nolint:gosec // bit reinterpretation is intended
		for b := 0; b < 8; b++ {
			buf[b] = byte(v >> (8 * b))
		}
		_, _ = h.Write(buf[:]) //nolint:errcheck // hash writes never fail
	}
	return h.Sum64()
}
