package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-query-cache/cache"
)

type executedQuery struct {
	sql      string
	bindings []any
}

// fakeExecutor records every statement and returns canned rows.
type fakeExecutor struct {
	name  string
	rows  []Row
	err   error
	calls []executedQuery
}

func newFakeExecutor(name string, rows ...Row) *fakeExecutor {
	return &fakeExecutor{name: name, rows: rows}
}

func (f *fakeExecutor) Name() string { return f.name }

func (f *fakeExecutor) Select(_ context.Context, query string, bindings []any) ([]Row, error) {
	f.calls = append(f.calls, executedQuery{sql: query, bindings: append([]any(nil), bindings...)})
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeExecutor) lastSQL() string {
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1].sql
}

type rememberCall struct {
	key     string
	ttl     time.Duration
	forever bool
	tags    []string
}

// recordingCache is a cache.TaggableService that records which path was
// taken and how many values were written.
type recordingCache struct {
	mu       sync.Mutex
	entries  map[string][]Row
	calls    []rememberCall
	tagCalls [][]string
	writes   int
	forgets  []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string][]Row)}
}

func (c *recordingCache) Remember(ctx context.Context, key string, ttl time.Duration, fetchFn cache.FetchFn[[]Row]) ([]Row, error) {
	return c.remember(ctx, nil, key, ttl, false, fetchFn)
}

func (c *recordingCache) RememberForever(ctx context.Context, key string, fetchFn cache.FetchFn[[]Row]) ([]Row, error) {
	return c.remember(ctx, nil, key, cache.Forever, true, fetchFn)
}

func (c *recordingCache) Forget(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgets = append(c.forgets, key)
	delete(c.entries, entryKey(nil, key))
	return nil
}

func (c *recordingCache) Tags(names ...string) cache.Service[[]Row] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tagCalls = append(c.tagCalls, append([]string(nil), names...))
	return &recordingTagged{parent: c, tags: append([]string(nil), names...)}
}

// seed stores rows as if a previous call had cached them.
func (c *recordingCache) seed(key string, rows []Row, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entryKey(tags, key)] = rows
}

func (c *recordingCache) remember(ctx context.Context, tags []string, key string, ttl time.Duration, forever bool, fetchFn cache.FetchFn[[]Row]) ([]Row, error) {
	c.mu.Lock()
	c.calls = append(c.calls, rememberCall{key: key, ttl: ttl, forever: forever, tags: tags})
	rows, ok := c.entries[entryKey(tags, key)]
	c.mu.Unlock()

	if ok {
		return rows, nil
	}

	rows, err := fetchFn(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if forever || ttl > 0 {
		c.entries[entryKey(tags, key)] = rows
	}
	return rows, nil
}

func entryKey(tags []string, key string) string {
	return strings.Join(tags, ",") + "|" + key
}

type recordingTagged struct {
	parent *recordingCache
	tags   []string
}

func (t *recordingTagged) Remember(ctx context.Context, key string, ttl time.Duration, fetchFn cache.FetchFn[[]Row]) ([]Row, error) {
	return t.parent.remember(ctx, t.tags, key, ttl, false, fetchFn)
}

func (t *recordingTagged) RememberForever(ctx context.Context, key string, fetchFn cache.FetchFn[[]Row]) ([]Row, error) {
	return t.parent.remember(ctx, t.tags, key, cache.Forever, true, fetchFn)
}

func (t *recordingTagged) Forget(_ context.Context, key string) error {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	delete(t.parent.entries, entryKey(t.tags, key))
	return nil
}

var _ cache.TaggableService[[]Row] = (*recordingCache)(nil)
