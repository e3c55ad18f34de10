// Package forecasting fits, persists and serves trend+seasonality
// decomposition models for per-pair demand forecasting.
package forecasting

import "errors"

var (
	// ErrInsufficientData is returned when a series is too short to
	// cross-validate or fit.
	ErrInsufficientData = errors.New("insufficient usage history")

	// ErrModelNotFound is returned when a forecast is requested before any
	// model was trained for the pair.
	ErrModelNotFound = errors.New("no trained model for pair")

	// ErrPersistence wraps I/O failures while saving or loading a model.
	// The previously persisted model remains authoritative.
	ErrPersistence = errors.New("model persistence failure")

	// ErrTrainingFailed is returned when every hyperparameter combination
	// of a grid search failed to fit.
	ErrTrainingFailed = errors.New("all hyperparameter combinations failed")
)
