package expansion

import (
	"errors"
	"fmt"
)

// ErrUnavailable is the kind of every expansion failure: transport error,
// timeout, non-2xx status or an undecodable body.
var ErrUnavailable = errors.New("expansion service unavailable")

// StatusError carries the HTTP status of a non-2xx expansion response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Body)
}

// Unwrap makes errors.Is(err, ErrUnavailable) hold for status failures.
func (e *StatusError) Unwrap() error { return ErrUnavailable }
