package models

import "errors"

var (
	// ErrInsufficientData: series too short or too few labeled rows.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrSchemaMismatch: live feature schema diverges from the artifact schema.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrModelNotTrained: inference requested before any successful training.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrUpstreamData: malformed OHLCV input.
	ErrUpstreamData = errors.New("upstream data error")

	// ErrUnknownClass: prediction class has no horizon profile.
	ErrUnknownClass = errors.New("unknown prediction class")
)
