// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package recommend

import (
	"context"
	"sort"
	"time"
)

// InteractionType classifies a user-item interaction.
type InteractionType string

const (
	// InteractionView is a detail page view.
	InteractionView InteractionType = "view"
	// InteractionBook is a ticket booking.
	InteractionBook InteractionType = "book"
	// InteractionRate is an explicit rating; the weight is the rating value.
	InteractionRate InteractionType = "rate"
	// InteractionWatchComplete is a completed watch.
	InteractionWatchComplete InteractionType = "watch_complete"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionBook, InteractionRate, InteractionWatchComplete:
		return true
	default:
		return false
	}
}

// DefaultWeight returns the implicit weight used when an interaction is
// recorded without one. Ratings carry their own value and default to 0.
func (t InteractionType) DefaultWeight() float64 {
	switch t {
	case InteractionView:
		return 1.0
	case InteractionWatchComplete:
		return 2.0
	case InteractionBook:
		return 3.0
	default:
		return 0
	}
}

// Interaction is a single recorded user-item event. Interactions are
// immutable once written.
type Interaction struct {
	UserID    int             `json:"user_id"`
	ItemID    int             `json:"item_id"`
	Type      InteractionType `json:"type"`
	Weight    float64         `json:"weight"`
	Timestamp time.Time       `json:"timestamp"`
}

// Rating is the aggregated signal for one (user, item) pair: the sum of all
// interaction weights between them.
type Rating struct {
	UserID int     `json:"user_id"`
	ItemID int     `json:"item_id"`
	Value  float64 `json:"value"`
}

// AggregateInteractions sums interaction weights per (user, item) pair.
// The result is ordered by user ID, then item ID.
func AggregateInteractions(interactions []Interaction) []Rating {
	type pair struct{ user, item int }
	sums := make(map[pair]float64, len(interactions))
	for _, in := range interactions {
		sums[pair{in.UserID, in.ItemID}] += in.Weight
	}

	ratings := make([]Rating, 0, len(sums))
	for p, v := range sums {
		ratings = append(ratings, Rating{UserID: p.user, ItemID: p.item, Value: v})
	}
	sort.Slice(ratings, func(i, j int) bool {
		if ratings[i].UserID != ratings[j].UserID {
			return ratings[i].UserID < ratings[j].UserID
		}
		return ratings[i].ItemID < ratings[j].ItemID
	})
	return ratings
}

// Item is a catalog movie. Items are owned by the catalog; the engine only
// reads them.
type Item struct {
	// ID is the unique movie identifier.
	ID int `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Genres is the list of genre tags.
	Genres []string `json:"genres"`

	// Director is the director's name.
	Director string `json:"director,omitempty"`

	// Synopsis is the plot summary.
	Synopsis string `json:"synopsis,omitempty"`

	// Cast holds up to four principal cast members.
	Cast []string `json:"cast,omitempty"`

	// VoteCount is the number of external votes.
	VoteCount int `json:"vote_count"`

	// ExternalRating is the average external rating (0-10).
	ExternalRating float64 `json:"external_rating"`
}

// ItemScore is an item ID with a model score.
type ItemScore struct {
	ItemID int     `json:"item_id"`
	Score  float64 `json:"score"`
}

// SimilarItem is a content similarity result.
type SimilarItem struct {
	ItemID     int     `json:"item_id"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason"`
}

// RecommendationType identifies which signal produced a recommendation.
type RecommendationType string

const (
	TypeCollaborative RecommendationType = "collaborative"
	TypeContentBased  RecommendationType = "content-based"
	TypePopularity    RecommendationType = "popularity"

	// TypeHybrid is reserved for entries whose score blends several
	// signals. The engine does not emit it: hybrid responses tag each
	// entry with the signal that selected it, so clients can tell
	// collaborative, content and popularity slots apart.
	TypeHybrid RecommendationType = "hybrid"
)

// Mode selects the recommendation strategy for a request.
type Mode string

const (
	// ModePopular ranks the catalog by external rating and vote count.
	ModePopular Mode = "popular"
	// ModeCollaborative uses the factorization model only.
	ModeCollaborative Mode = "collaborative"
	// ModeHybrid blends collaborative, content-based and popularity signals.
	ModeHybrid Mode = "hybrid"
	// ModeSimilar returns items similar to a given item.
	ModeSimilar Mode = "similar"
)

// Recommendation is a single ranked result entry.
type Recommendation struct {
	// Item is the recommended movie.
	Item Item `json:"item"`

	// Score is the predicted affinity or similarity. Nil for popularity entries.
	Score *float64 `json:"score,omitempty"`

	// Type identifies the signal that selected this item.
	Type RecommendationType `json:"type"`

	// Reason is a human-readable explanation.
	Reason string `json:"reason"`
}

// Response is the result of a recommendation request.
type Response struct {
	// Items is the ordered, de-duplicated result list.
	Items []Recommendation `json:"items"`

	// Metadata contains timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains timing and diagnostic information.
type ResponseMetadata struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id,omitempty"`

	// UserID is the user the recommendations are for (0 for anonymous).
	UserID int `json:"user_id,omitempty"`

	// Mode is the requested recommendation mode.
	Mode Mode `json:"mode"`

	// Fallback is true when the requested signal was unavailable and a
	// lower-priority signal was substituted.
	Fallback bool `json:"fallback"`

	// FallbackReason explains why a fallback was used.
	FallbackReason string `json:"fallback_reason,omitempty"`

	// LatencyMS is the total recommendation latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// CacheHit indicates whether the result was served from cache.
	CacheHit bool `json:"cache_hit"`

	// ModelVersion is the version of the trained model used.
	ModelVersion int `json:"model_version"`

	// TrainedAt is when the model was last trained.
	TrainedAt time.Time `json:"trained_at,omitempty"`

	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`
}

// TrainingResult summarizes a completed training run.
type TrainingResult struct {
	NUsers      int           `json:"n_users"`
	NItems      int           `json:"n_items"`
	NRatings    int           `json:"n_ratings"`
	FinalRMSE   float64       `json:"final_rmse"`
	GlobalMean  float64       `json:"global_mean"`
	RMSEHistory []float64     `json:"rmse_history"`
	Version     int           `json:"version"`
	Duration    time.Duration `json:"duration"`
	TrainedAt   time.Time     `json:"trained_at"`
}

// ModelInfo describes the currently served model.
type ModelInfo struct {
	Trained       bool      `json:"trained"`
	NUsers        int       `json:"n_users"`
	NItems        int       `json:"n_items"`
	NFactors      int       `json:"n_factors"`
	NRatings      int       `json:"n_ratings"`
	GlobalMean    float64   `json:"global_mean"`
	FinalRMSE     float64   `json:"final_rmse"`
	LastTrainedAt time.Time `json:"last_trained_at,omitempty"`
	CacheSize     int       `json:"cache_size"`
	Version       int       `json:"version"`
}

// TrainingStatus represents the current training state.
type TrainingStatus struct {
	// IsTraining indicates whether training is currently in progress.
	IsTraining bool `json:"is_training"`

	// LastTrainedAt is when training last completed successfully.
	LastTrainedAt time.Time `json:"last_trained_at"`

	// LastTrainingDurationMS is how long the last training took.
	LastTrainingDurationMS int64 `json:"last_training_duration_ms"`

	// LastError contains the last training error, if any.
	LastError string `json:"last_error,omitempty"`

	// LastResult is the summary of the last successful run.
	LastResult *TrainingResult `json:"last_result,omitempty"`
}

// Metrics contains engine counters for observability.
type Metrics struct {
	RequestCount  int64 `json:"request_count"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	FallbackCount int64 `json:"fallback_count"`
	ErrorCount    int64 `json:"error_count"`
	TrainingCount int64 `json:"training_count"`
}

// CollaborativeModel is a trained user-item affinity model.
type CollaborativeModel interface {
	// Train fits a new model and swaps it in atomically.
	Train(ctx context.Context, ratings []Rating) (*TrainingResult, error)

	// Predict returns the predicted affinity. It never fails; unknown IDs
	// fall back to bias terms and an untrained model returns 0.
	Predict(userID, itemID int) float64

	// Recommend returns up to topN items for a user, best first.
	Recommend(ctx context.Context, userID, topN int, excludeInteracted bool, interacted []int) ([]ItemScore, error)

	// IsColdStart reports whether collaborative output should not be trusted
	// for the user.
	IsColdStart(userID, interactionCount int) bool

	// IsTrained reports whether a model is being served.
	IsTrained() bool

	// Info describes the served model.
	Info() ModelInfo
}

// SimilarityIndex answers item-to-item content similarity queries.
type SimilarityIndex interface {
	// SimilarItems ranks catalog items by similarity to itemID.
	SimilarItems(ctx context.Context, catalog []Item, itemID, limit int) ([]SimilarItem, error)

	// Warm builds the index for catalog if it is stale.
	Warm(ctx context.Context, catalog []Item) error

	// Invalidate drops the index so the next query rebuilds it.
	Invalidate()
}

// DataProvider reads interactions and the catalog from the backing store.
type DataProvider interface {
	// AggregatedInteractions returns summed weights per (user, item).
	AggregatedInteractions(ctx context.Context) ([]Rating, error)

	// Items returns the full catalog.
	Items(ctx context.Context) ([]Item, error)

	// UserInteractionCount returns the number of interaction records for a user.
	UserInteractionCount(ctx context.Context, userID int) (int, error)

	// UserInteractedItems returns the distinct item IDs a user interacted with.
	UserInteractedItems(ctx context.Context, userID int) ([]int, error)

	// UserTopItems returns up to k item IDs with the highest summed weight.
	UserTopItems(ctx context.Context, userID, k int) ([]int, error)
}
