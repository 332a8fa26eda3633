package model

import "errors"

// Sentinel kinds for model validation.
var (
	ErrInvalidEntity = errors.New("invalid entity")
)
