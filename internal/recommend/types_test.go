// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package recommend

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestInteractionType_Valid(t *testing.T) {
	tests := []struct {
		typ  InteractionType
		want bool
	}{
		{InteractionView, true},
		{InteractionBook, true},
		{InteractionRate, true},
		{InteractionWatchComplete, true},
		{"like", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.typ.Valid(); got != tt.want {
			t.Errorf("%q.Valid() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestInteractionType_DefaultWeight(t *testing.T) {
	tests := []struct {
		typ  InteractionType
		want float64
	}{
		{InteractionView, 1},
		{InteractionWatchComplete, 2},
		{InteractionBook, 3},
		{InteractionRate, 0},
	}
	for _, tt := range tests {
		if got := tt.typ.DefaultWeight(); got != tt.want {
			t.Errorf("%q.DefaultWeight() = %f, want %f", tt.typ, got, tt.want)
		}
	}
}

func TestAggregateInteractions(t *testing.T) {
	in := []Interaction{
		{UserID: 2, ItemID: 10, Weight: 1},
		{UserID: 1, ItemID: 20, Weight: 3},
		{UserID: 1, ItemID: 10, Weight: 1},
		{UserID: 1, ItemID: 20, Weight: 2},
	}
	want := []Rating{
		{UserID: 1, ItemID: 10, Value: 1},
		{UserID: 1, ItemID: 20, Value: 5},
		{UserID: 2, ItemID: 10, Value: 1},
	}
	if got := AggregateInteractions(in); !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateInteractions() = %v, want %v", got, want)
	}
	if got := AggregateInteractions(nil); len(got) != 0 {
		t.Errorf("AggregateInteractions(nil) = %v, want empty", got)
	}
}

func TestTypedErrors(t *testing.T) {
	notFound := fmt.Errorf("lookup: %w", &ItemNotFoundError{ItemID: 7})
	if !errors.Is(notFound, ErrItemNotFound) {
		t.Error("wrapped ItemNotFoundError does not match ErrItemNotFound")
	}
	var nf *ItemNotFoundError
	if !errors.As(notFound, &nf) || nf.ItemID != 7 {
		t.Errorf("errors.As = %v, want ItemID 7", nf)
	}

	hp := &InvalidHyperparameterError{Field: "NumFactors", Value: 0, Reason: "must be positive"}
	if !errors.Is(hp, ErrInvalidHyperparameter) {
		t.Error("InvalidHyperparameterError does not match ErrInvalidHyperparameter")
	}
	if errors.Is(hp, ErrItemNotFound) {
		t.Error("InvalidHyperparameterError matches an unrelated sentinel")
	}
	if hp.Error() != "invalid hyperparameter NumFactors=0: must be positive" {
		t.Errorf("Error() = %q", hp.Error())
	}
}
