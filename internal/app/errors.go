package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrForbidden   = errors.New("only the owner may change this entity")
	ErrNoExpander  = errors.New("no expansion client configured")
	ErrNotStarted  = errors.New("service not started")
	ErrMissingUser = errors.New("missing caller identity")
)
