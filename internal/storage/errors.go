package storage

import "errors"

// Rows are written once per run and never updated.
var (
	// ErrNotFound is returned for an unknown run or an empty price series.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run, trade, equity point or price
	// observation is already stored under the same key.
	ErrDuplicateKey = errors.New("already stored")

	// ErrInvalidInput is returned for a record missing its key fields.
	ErrInvalidInput = errors.New("invalid input")
)
