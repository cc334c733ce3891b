package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// TagSet resolves the namespace for a group of tags.
//
// Every tag owns a random id stored in the driver under "tag:{name}:key".
// Entries written through a tagged handle live under a key derived from the
// ids of all its tags, so rotating any one id (Reset) orphans them. Orphaned
// entries are left to the driver's own expiration and eviction.
type TagSet struct {
	driver Driver
	prefix string
	names  []string
}

// NewTagSet creates a TagSet for the given tag names. Order is preserved.
func NewTagSet(driver Driver, prefix string, names ...string) *TagSet {
	return &TagSet{
		driver: driver,
		prefix: prefix,
		names:  append([]string(nil), names...),
	}
}

// Names returns the tag names in the order they were given.
func (t *TagSet) Names() []string {
	return append([]string(nil), t.names...)
}

// Namespace joins the current ids of every tag, creating ids on first use.
func (t *TagSet) Namespace(ctx context.Context) (string, error) {
	ids := make([]string, len(t.names))
	for i, name := range t.names {
		id, err := t.tagID(ctx, name)
		if err != nil {
			return "", err
		}
		ids[i] = id
	}
	return strings.Join(ids, "|"), nil
}

// TaggedKey maps key into the namespace of this tag set.
func (t *TagSet) TaggedKey(ctx context.Context, key string) (string, error) {
	namespace, err := t.Namespace(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x:%s", xxhash.Sum64String(namespace), key), nil
}

// Reset rotates the id of every tag in the set.
func (t *TagSet) Reset(ctx context.Context) error {
	for _, name := range t.names {
		if _, err := t.resetTag(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (t *TagSet) tagID(ctx context.Context, name string) (string, error) {
	data, ok, err := t.driver.Get(ctx, t.tagKey(name))
	if err != nil {
		return "", err
	}
	if ok && len(data) > 0 {
		return string(data), nil
	}
	return t.resetTag(ctx, name)
}

func (t *TagSet) resetTag(ctx context.Context, name string) (string, error) {
	id := uuid.NewString()
	if err := t.driver.Put(ctx, t.tagKey(name), []byte(id), Forever); err != nil {
		return "", err
	}
	return id, nil
}

func (t *TagSet) tagKey(name string) string {
	key := "tag:" + name + ":key"
	if t.prefix == "" {
		return key
	}
	return t.prefix + ":" + key
}

// TaggedCache is the Service returned by Store.Tags.
type TaggedCache[V any] struct {
	store *Store[V]
	tags  *TagSet
}

// Remember implements Service.Remember within the tag namespace.
func (c *TaggedCache[V]) Remember(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFn[V]) (V, error) {
	if ttl < 0 {
		var zero V
		return zero, ErrInvalidTTL
	}
	return c.remember(ctx, key, ttl, fetchFn)
}

// RememberForever implements Service.RememberForever within the tag namespace.
func (c *TaggedCache[V]) RememberForever(ctx context.Context, key string, fetchFn FetchFn[V]) (V, error) {
	return c.remember(ctx, key, Forever, fetchFn)
}

// Forget implements Service.Forget within the tag namespace.
func (c *TaggedCache[V]) Forget(ctx context.Context, key string) error {
	taggedKey, err := c.tags.TaggedKey(ctx, key)
	if err != nil {
		return err
	}
	return c.store.Forget(ctx, taggedKey)
}

// Flush invalidates every entry stored under this handle's tags.
func (c *TaggedCache[V]) Flush(ctx context.Context) error {
	return c.tags.Reset(ctx)
}

// TagSet exposes the tags this handle is scoped to.
func (c *TaggedCache[V]) TagSet() *TagSet {
	return c.tags
}

func (c *TaggedCache[V]) remember(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFn[V]) (V, error) {
	if fetchFn == nil {
		var zero V
		return zero, ErrNilFetchFn
	}

	taggedKey, err := c.tags.TaggedKey(ctx, key)
	if err != nil {
		// without a namespace nothing can be cached safely
		c.store.metrics.add(ctx, c.store.metrics.storeErrors, true)
		c.store.logger.WarnContext(ctx, "cache tag lookup failed, bypassing cache",
			slog.Any("tags", c.tags.names), slog.Any("error", err))
		return fetchFn(ctx)
	}

	return c.store.remember(ctx, taggedKey, ttl, true, fetchFn)
}

var _ Service[any] = (*TaggedCache[any])(nil)
