// Package querycache caches the results of read queries.
//
// A Builder is a query in progress. Calling Remember or RememberForever on it
// attaches a cache Directive; Get then derives a key from the connection
// name, the rendered SQL and its bindings, and serves the rows from a
// cache.TaggableService, running the query only on a miss:
//
//	store, _ := cache.Open[[]querycache.Row](ctx, cache.DefaultConfig())
//	manager := querycache.NewManager(querycache.WithCache(store))
//	manager.AddConnection(querycache.NewConnection("main", db))
//
//	users, _ := manager.Table("users")
//	rows, err := users.Where("active", "=", true).Remember(10).Get(ctx)
//
// Builders without a directive execute directly and never touch the cache.
//
// # Keys
//
// Derived keys are hex SHA-256 digests of the serialized connection name,
// SQL text and ordered bindings. Changing any of them yields a new key. An
// explicit key passed to Remember is used as is, which lets different
// queries share an entry.
//
// # Durations
//
// Remember(n) with n >= 0 caches for n minutes. Remember(0) still consults
// the cache, but fresh results are not retained. A negative n is the same as
// RememberForever.
//
// # Tags
//
// WithTags scopes the entry so that cache.Store.FlushTags invalidates it.
// Tags can also be attached to a context with WithCacheTags; those are
// added to the directive's own tags.
//
// # Aggregates
//
// Aggregate and the Count, Sum, Avg, Min, Max and Exists helpers swap the
// projection and ordering, run through Get, and restore the builder on every
// exit path. They are cached exactly like any other query.
package querycache
