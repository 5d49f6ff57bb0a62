package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyReference is returned when Fetch is called without a reference.
	ErrEmptyReference = errors.New("empty page reference")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected [user:password@]host:port")

	// ErrInvalidBaseURL is returned when the base address is not absolute.
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")
)

// StatusError is returned when the site answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}
