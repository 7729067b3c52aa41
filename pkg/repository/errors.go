package repository

import "errors"

// Sentinel errors returned by sources. [Chain] converts them into
// structured errors once every repository has been tried.
var (
	// ErrNotFound is returned when a repository does not have the file.
	ErrNotFound = errors.New("artifact not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrCorrupt is returned when downloaded bytes fail an integrity check.
	ErrCorrupt = errors.New("integrity check failed")
)
