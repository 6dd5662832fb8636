package requests

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a request id does not resolve. Handlers
// translate it to a 404; it is never wrapped in PersistenceError.
var ErrNotFound = errors.New("request not found")

// ValidationError reports caller input that violates a required-field
// or enum constraint. It names every offending field so the client can
// fix the whole payload in one round trip.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return "invalid request payload"
	}
	return strings.Join(parts, "; ")
}

// PersistenceError wraps a storage failure. Its message stays generic;
// the wrapped cause goes to the internal log only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage failure during %s", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
