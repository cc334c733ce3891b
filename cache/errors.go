package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrInvalidTTL is returned when Remember receives a negative TTL.
	// Use RememberForever for entries that never expire.
	ErrInvalidTTL = errors.New("cache: ttl must not be negative")

	// ErrNilFetchFn is returned when a read-through call has no fetch function.
	ErrNilFetchFn = errors.New("cache: fetch function is nil")

	// ErrUnknownDriver is returned by Open for an unsupported Config.Driver.
	ErrUnknownDriver = errors.New("cache: unknown driver")

	// ErrMarshal is returned when value serialization fails.
	ErrMarshal = errors.New("cache: failed to marshal value")

	// ErrUnmarshal is returned when value deserialization fails.
	ErrUnmarshal = errors.New("cache: failed to unmarshal value")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
