package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrUnknownKind = errors.New("unknown entity kind")
)
