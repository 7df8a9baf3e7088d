// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package storage

import (
	"encoding/gob"
	"fmt"
	"time"
)

// MFModelState is the serializable state of a matrix factorization model.
// Factor matrices are stored row-major: row u of UserFactors occupies
// UserFactors[u*NumFactors : (u+1)*NumFactors].
type MFModelState struct {
	// NumFactors is the latent dimension k.
	NumFactors int

	// UserFactors is the nUsers x k user factor matrix.
	UserFactors []float64

	// ItemFactors is the nItems x k item factor matrix.
	ItemFactors []float64

	// UserBias and ItemBias hold one scalar per index.
	UserBias []float64
	ItemBias []float64

	// GlobalMean is the mean of all aggregated ratings.
	GlobalMean float64

	// UserIDs maps user index to external ID; the inverse map is rebuilt on load.
	UserIDs []int

	// ItemIDs maps item index to external ID.
	ItemIDs []int

	// TrainedAt is when the model was trained.
	TrainedAt time.Time

	// Version is the model version.
	Version int

	// RatingCount and RMSEHistory are training diagnostics.
	RatingCount int
	RMSEHistory []float64
}

// Validate checks the index invariants: every index in [0,n) has exactly
// one ID and one factor row.
func (s *MFModelState) Validate() error {
	if s.NumFactors <= 0 {
		return fmt.Errorf("num factors must be positive, got %d", s.NumFactors)
	}
	nUsers, nItems := len(s.UserIDs), len(s.ItemIDs)
	if len(s.UserFactors) != nUsers*s.NumFactors {
		return fmt.Errorf("user factors: have %d values, want %d", len(s.UserFactors), nUsers*s.NumFactors)
	}
	if len(s.ItemFactors) != nItems*s.NumFactors {
		return fmt.Errorf("item factors: have %d values, want %d", len(s.ItemFactors), nItems*s.NumFactors)
	}
	if len(s.UserBias) != nUsers {
		return fmt.Errorf("user bias: have %d values, want %d", len(s.UserBias), nUsers)
	}
	if len(s.ItemBias) != nItems {
		return fmt.Errorf("item bias: have %d values, want %d", len(s.ItemBias), nItems)
	}
	if err := uniqueIDs(s.UserIDs); err != nil {
		return fmt.Errorf("user ids: %w", err)
	}
	if err := uniqueIDs(s.ItemIDs); err != nil {
		return fmt.Errorf("item ids: %w", err)
	}
	return nil
}

func uniqueIDs(ids []int) error {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Register gob types for serialization.
//
//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(MFModelState{})
	gob.Register(ModelMetadata{})
	gob.Register(storedModel{})
}
