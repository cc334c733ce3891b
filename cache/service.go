package cache

import (
	"context"
	"time"
)

// Forever is the TTL value drivers interpret as "never expires".
const Forever time.Duration = -1

// KeySerializer builds a cache key payload from a namespace + arbitrary args.
// It is responsible for producing stable output across calls.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn is the function signature a Service expects when computing a value on a miss.
type FetchFn[V any] func(ctx context.Context) (V, error)

// Service exposes the read-through operations consumed by cached queries.
// Tagged handles returned by TaggableService.Tags satisfy the same contract.
type Service[V any] interface {
	// Remember returns the value stored under key, or runs fetchFn, stores its
	// result for ttl and returns it. A zero ttl computes the value but does not
	// retain it.
	Remember(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFn[V]) (V, error)

	// RememberForever behaves like Remember but stores without expiration.
	RememberForever(ctx context.Context, key string, fetchFn FetchFn[V]) (V, error)

	// Forget removes a single entry.
	Forget(ctx context.Context, key string) error
}

// TaggableService is a Service that can scope operations to a set of tags.
type TaggableService[V any] interface {
	Service[V]

	// Tags returns a handle whose entries are invalidated together when any
	// of the given tags is flushed.
	Tags(names ...string) Service[V]
}

// Driver is the raw byte store a Store is assembled from.
//
// A negative ttl (Forever) means no expiration. Get returns (nil, false, nil)
// on a miss.
type Driver interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Close() error
}
