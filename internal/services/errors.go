package services

import "errors"

// Service errors. Callers match them with errors.Is; the wrapped cause
// carries the detail.
var (
	// ErrDatasetUnavailable means the sales export could not be loaded.
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	// ErrInsightsDisabled means no completion API key is configured.
	ErrInsightsDisabled = errors.New("insight generation is disabled")
	// ErrInvalidInput wraps request parameters that are not filter fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamFailure wraps completion API failures.
	ErrUpstreamFailure = errors.New("upstream failure")
)
