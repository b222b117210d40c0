package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails, e.g. a value
	// without a usable timestamp or an unknown timeframe.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnprocessedItems is returned by BatchWriter when items are still
	// unwritten after the retry policy is exhausted.
	ErrUnprocessedItems = errors.New("unprocessed batch items")
)
