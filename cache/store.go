package cache

import (
	"context"
	"log/slog"
	"time"
)

// Store is the default TaggableService. It layers read-through semantics,
// encoding, key prefixing and tag namespaces over a byte Driver.
type Store[V any] struct {
	driver  Driver
	codec   Codec[V]
	prefix  string
	logger  *slog.Logger
	metrics *instruments
}

// NewStore wraps driver with read-through caching.
// If codec is nil, MsgpackCodec is used.
func NewStore[V any](driver Driver, codec Codec[V], opts ...Option) *Store[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if codec == nil {
		codec = MsgpackCodec[V]{}
	}

	return &Store[V]{
		driver:  driver,
		codec:   codec,
		prefix:  o.prefix,
		logger:  o.logger,
		metrics: newInstruments(o.meterProvider),
	}
}

// Remember implements Service.Remember.
func (s *Store[V]) Remember(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFn[V]) (V, error) {
	if ttl < 0 {
		var zero V
		return zero, ErrInvalidTTL
	}
	return s.remember(ctx, key, ttl, false, fetchFn)
}

// RememberForever implements Service.RememberForever.
func (s *Store[V]) RememberForever(ctx context.Context, key string, fetchFn FetchFn[V]) (V, error) {
	return s.remember(ctx, key, Forever, false, fetchFn)
}

// Forget implements Service.Forget.
func (s *Store[V]) Forget(ctx context.Context, key string) error {
	return s.driver.Forget(ctx, s.key(key))
}

// Flush removes every entry from the underlying driver.
func (s *Store[V]) Flush(ctx context.Context) error {
	return s.driver.Flush(ctx)
}

// Tags implements TaggableService.Tags.
func (s *Store[V]) Tags(names ...string) Service[V] {
	return &TaggedCache[V]{
		store: s,
		tags:  NewTagSet(s.driver, s.prefix, names...),
	}
}

// FlushTags invalidates every entry stored under any of the given tags.
func (s *Store[V]) FlushTags(ctx context.Context, names ...string) error {
	return NewTagSet(s.driver, s.prefix, names...).Reset(ctx)
}

// Close releases the driver.
func (s *Store[V]) Close() error {
	return s.driver.Close()
}

func (s *Store[V]) remember(ctx context.Context, key string, ttl time.Duration, tagged bool, fetchFn FetchFn[V]) (V, error) {
	var zero V
	if fetchFn == nil {
		return zero, ErrNilFetchFn
	}

	fullKey := s.key(key)

	if value, ok := s.lookup(ctx, fullKey, tagged); ok {
		s.metrics.add(ctx, s.metrics.hits, tagged)
		s.logger.DebugContext(ctx, "cache hit", slog.String("key", fullKey))
		return value, nil
	}

	s.metrics.add(ctx, s.metrics.misses, tagged)
	s.logger.DebugContext(ctx, "cache miss", slog.String("key", fullKey), slog.Duration("ttl", ttl))

	value, err := fetchFn(ctx)
	if err != nil {
		return zero, err
	}

	s.store(ctx, fullKey, value, ttl, tagged)
	return value, nil
}

// lookup treats driver and decode failures as misses.
func (s *Store[V]) lookup(ctx context.Context, key string, tagged bool) (V, bool) {
	var zero V

	data, ok, err := s.driver.Get(ctx, key)
	if err != nil {
		s.metrics.add(ctx, s.metrics.storeErrors, tagged)
		s.logger.WarnContext(ctx, "cache get failed", slog.String("key", key), slog.Any("error", err))
		return zero, false
	}
	if !ok {
		return zero, false
	}

	value, err := s.codec.Unmarshal(data)
	if err != nil {
		s.logger.WarnContext(ctx, "cache entry unreadable, discarding", slog.String("key", key), slog.Any("error", err))
		_ = s.driver.Forget(ctx, key)
		return zero, false
	}

	return value, true
}

// store is best effort: the computed value is returned even if the write fails.
func (s *Store[V]) store(ctx context.Context, key string, value V, ttl time.Duration, tagged bool) {
	if ttl == 0 {
		// zero minutes: expire immediately
		if err := s.driver.Forget(ctx, key); err != nil {
			s.metrics.add(ctx, s.metrics.storeErrors, tagged)
			s.logger.WarnContext(ctx, "cache forget failed", slog.String("key", key), slog.Any("error", err))
		}
		return
	}

	data, err := s.codec.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "cache value not encodable", slog.String("key", key), slog.Any("error", err))
		return
	}

	if err := s.driver.Put(ctx, key, data, ttl); err != nil {
		s.metrics.add(ctx, s.metrics.storeErrors, tagged)
		s.logger.WarnContext(ctx, "cache put failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Store[V]) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

var _ TaggableService[any] = (*Store[any])(nil)
