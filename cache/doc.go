// Package cache provides the read-through store behind cached query execution.
//
// # Overview
//
// The package exports three building blocks:
//
//   - Service / TaggableService: read-through Remember, RememberForever and Forget
//   - Store: the default implementation, layering encoding, key prefixes and
//     tag namespaces over a byte level Driver
//   - KeySerializer: builds stable keys from a namespace and arguments
//
// Drivers live in internal/cacheinfra: an in-process sturdyc driver, redis and
// embedded badger. Open picks one from a Config:
//
//	store, err := cache.Open[[]Row](ctx, cache.DefaultConfig(), cache.WithPrefix("app"))
//	rows, err := store.Remember(ctx, key, 10*time.Minute, func(ctx context.Context) ([]Row, error) {
//		return runQuery(ctx)
//	})
//
// # Expiration
//
// A positive TTL expires after that duration. Forever never expires. A zero
// TTL still consults the store but the computed value is not retained.
// Remember rejects negative durations with ErrInvalidTTL.
//
// # Tags
//
// Store.Tags returns a Service whose keys live in a namespace derived from
// per-tag ids. FlushTags rotates those ids, which makes every entry written
// under any of the tags unreachable:
//
//	users := store.Tags("users")
//	_, _ = users.RememberForever(ctx, key, fetch)
//	_ = store.FlushTags(ctx, "users")
//
// Entries written without tags are not reachable through a tagged handle and
// the other way around.
//
// # Failure Handling
//
// The cache never turns a working query into a failed one. Driver errors on
// read are treated as misses, and write errors are logged and counted while
// the computed value is still returned. Errors from the fetch function are
// returned unchanged and nothing is stored.
//
// # Key Serialization
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Strings are quoted and every value carries a type tag, so "1" and 1
//     produce different keys
//   - time.Time values are normalized to UTC RFC3339Nano
//   - driver.Valuer values are resolved before encoding
//   - Maps are written as sorted key-value pairs
//   - Function pointers use %p and are stable only within a process
package cache
