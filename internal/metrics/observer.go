// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/reelmatch/internal/recommend"
)

// ResponseCache is the cache label used for the engine's response cache.
const ResponseCache = "response"

// RecommendObserver exports engine events as Prometheus metrics.
type RecommendObserver struct{}

var _ recommend.Observer = RecommendObserver{}

func (RecommendObserver) ObserveRequest(mode recommend.Mode, latency time.Duration, err error) {
	RecommendRequests.WithLabelValues(string(mode), resultLabel(err)).Inc()
	RecommendLatency.WithLabelValues(string(mode)).Observe(latency.Seconds())
}

func (RecommendObserver) ObserveFallback(mode recommend.Mode, reason string) {
	RecommendFallbacks.WithLabelValues(string(mode), reason).Inc()
}

func (RecommendObserver) ObserveCache(hit bool) {
	if hit {
		CacheHits.WithLabelValues(ResponseCache).Inc()
	} else {
		CacheMisses.WithLabelValues(ResponseCache).Inc()
	}
}

func (RecommendObserver) ObserveTraining(result *recommend.TrainingResult, duration time.Duration, err error) {
	TrainingDuration.Observe(duration.Seconds())
	TrainingRuns.WithLabelValues(resultLabel(err)).Inc()
	if err != nil || result == nil {
		return
	}
	ModelRMSE.Set(result.FinalRMSE)
	ModelUsers.Set(float64(result.NUsers))
	ModelItems.Set(float64(result.NItems))
	ModelVersion.Set(float64(result.Version))
}

// IndexStats is implemented by the content similarity index.
type IndexStats interface {
	Builds() int64
	Size() (items, terms int)
}

// RegisterIndexCollectors exposes content index size and build count as
// collectors that read idx on every scrape.
func RegisterIndexCollectors(reg prometheus.Registerer, idx IndexStats) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "reelmatch_content_index_builds_total",
			Help: "TF-IDF matrix rebuilds",
		}, func() float64 { return float64(idx.Builds()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "reelmatch_content_index_items",
			Help: "Items in the current TF-IDF matrix",
		}, func() float64 {
			items, _ := idx.Size()
			return float64(items)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "reelmatch_content_index_terms",
			Help: "Vocabulary size of the current TF-IDF matrix",
		}, func() float64 {
			_, terms := idx.Size()
			return float64(terms)
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
