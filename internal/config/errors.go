package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while still printing a readable message.
var (
	// ErrNoTarget is returned when no page reference or URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one page reference or URL")

	// ErrInvalidBaseURL is returned when the base URL has no scheme or host.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http(s) URL")

	// ErrInvalidDelay is returned when the request delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownReportFormat is returned for a report format other than
	// text, markdown or json.
	ErrUnknownReportFormat = errors.New("unknown report format: use text, markdown or json")

	// ErrNoDatabase is returned when the database path is empty.
	ErrNoDatabase = errors.New("no database file specified")
)
