// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTrainingData is returned when training is attempted with no interactions.
	ErrNoTrainingData = errors.New("no training data")

	// ErrModelNotTrained is returned when a collaborative result is requested
	// before any successful training run.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrItemNotFound is returned when a similarity query names an unknown item.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidHyperparameter is returned by model constructors.
	ErrInvalidHyperparameter = errors.New("invalid hyperparameter")

	// ErrTrainingFailed wraps unexpected failures during a training run.
	// The previously served model is left untouched.
	ErrTrainingFailed = errors.New("training failed")

	// ErrTrainingInProgress is returned when a second training run is
	// requested while one is active.
	ErrTrainingInProgress = errors.New("training already in progress")
)

// ItemNotFoundError reports the item that was not found.
type ItemNotFoundError struct {
	ItemID int
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %d not found", e.ItemID)
}

// Is makes errors.Is(err, ErrItemNotFound) match.
func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// InvalidHyperparameterError reports which hyperparameter was rejected.
type InvalidHyperparameterError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidHyperparameterError) Error() string {
	return fmt.Sprintf("invalid hyperparameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidHyperparameter) match.
func (e *InvalidHyperparameterError) Is(target error) bool {
	return target == ErrInvalidHyperparameter
}
