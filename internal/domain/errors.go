package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAccount is returned when no account identifier was configured.
	ErrMissingAccount = errors.New("account identifier is required")
	// ErrNoRepositories is returned when enumeration finished without a single repository.
	ErrNoRepositories = errors.New("no public repositories found")
	// ErrAccountNotFound is returned by account lookups for unknown logins.
	ErrAccountNotFound = errors.New("account not found")
)

// FetchError reports a failed request to the host API: either a transport
// failure (StatusCode is 0) or a non-success status.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
