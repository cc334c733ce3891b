package querycache

import "errors"

// Sentinel errors for query execution and connection lookup.
var (
	// ErrCacheUnavailable is returned by Get when a cache duration is set on a
	// builder that has no cache service.
	ErrCacheUnavailable = errors.New("querycache: caching requested but no cache service configured")

	// ErrConnectionNotFound is returned when a named connection is not registered.
	ErrConnectionNotFound = errors.New("querycache: connection not found")

	// ErrNoDefaultConnection is returned when no connection name is given and
	// the manager has no default.
	ErrNoDefaultConnection = errors.New("querycache: no default connection")

	// ErrNotNumeric is returned when an aggregate value cannot be read as a number.
	ErrNotNumeric = errors.New("querycache: value is not numeric")
)
