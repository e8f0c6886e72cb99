package model

import "errors"

// Error taxonomy shared across the core. Per-item failures in batch
// operations carry one of these; they never abort the whole batch.
var (
	// ErrRepositoryUnavailable marks a connectivity failure. Transient;
	// retried by the caller with backoff, never by the core itself.
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	// ErrInsufficientData marks a symbol or ticker lacking the minimum
	// fields required for the requested computation.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInsufficientHistory marks a ticker with too few bars to compute
	// a trailing window.
	ErrInsufficientHistory = errors.New("insufficient history")
)
