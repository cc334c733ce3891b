package querycache

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestBuilder(exec Executor, store *recordingCache) *Builder {
	if store == nil {
		return NewBuilder(exec, "users")
	}
	return NewBuilder(exec, "users", WithCache(store))
}

func TestBuilder_DirectiveDefaults(t *testing.T) {
	b := newTestBuilder(newFakeExecutor("main"), nil)

	d := b.Directive()
	if d.Duration.IsSet() {
		t.Errorf("expected unset duration, got %v", d.Duration)
	}
	if d.Key != "" || d.Tags != nil {
		t.Errorf("expected empty directive, got %+v", d)
	}
}

func TestBuilder_DirectiveSetters(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Builder) *Builder
		want  Directive
	}{
		{
			name:  "remember minutes",
			apply: func(b *Builder) *Builder { return b.Remember(5) },
			want:  Directive{Duration: Duration{Kind: DurationMinutes, Minutes: 5}},
		},
		{
			name:  "remember with key",
			apply: func(b *Builder) *Builder { return b.Remember(10, "users.all") },
			want:  Directive{Key: "users.all", Duration: Duration{Kind: DurationMinutes, Minutes: 10}},
		},
		{
			name:  "zero minutes is set",
			apply: func(b *Builder) *Builder { return b.Remember(0) },
			want:  Directive{Duration: Duration{Kind: DurationMinutes, Minutes: 0}},
		},
		{
			name:  "negative minutes means forever",
			apply: func(b *Builder) *Builder { return b.Remember(-1) },
			want:  Directive{Duration: Duration{Kind: DurationForever}},
		},
		{
			name:  "minutes past the duration range means forever",
			apply: func(b *Builder) *Builder { return b.Remember(math.MaxInt) },
			want:  Directive{Duration: Duration{Kind: DurationForever}},
		},
		{
			name:  "remember forever with key",
			apply: func(b *Builder) *Builder { return b.RememberForever("k") },
			want:  Directive{Key: "k", Duration: Duration{Kind: DurationForever}},
		},
		{
			name:  "tags keep order",
			apply: func(b *Builder) *Builder { return b.Remember(1).WithTags("users", "accounts") },
			want:  Directive{Duration: Duration{Kind: DurationMinutes, Minutes: 1}, Tags: []string{"users", "accounts"}},
		},
		{
			name:  "cache tags replaces",
			apply: func(b *Builder) *Builder { return b.WithTags("a").CacheTags("b") },
			want:  Directive{Tags: []string{"b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(newFakeExecutor("main"), nil)
			if got := tt.apply(b); got != b {
				t.Fatal("expected setters to return the same builder")
			}
			if diff := cmp.Diff(tt.want, b.Directive()); diff != "" {
				t.Errorf("directive mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuilder_CacheKeyDeterminism(t *testing.T) {
	b := newTestBuilder(newFakeExecutor("main"), nil).Where("age", ">", 30)

	first := b.CacheKey()
	second := b.CacheKey()

	if first != second {
		t.Errorf("expected identical keys, got %s and %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("expected a hex sha256 digest, got %q", first)
	}

	other := newTestBuilder(newFakeExecutor("main"), nil).Where("age", ">", 30)
	if other.CacheKey() != first {
		t.Error("expected equivalent queries to share a key")
	}
}

func TestBuilder_CacheKeySensitivity(t *testing.T) {
	base := func(conn string) *Builder {
		return newTestBuilder(newFakeExecutor(conn), nil).Where("age", ">", 30).Where("status", "=", "active")
	}
	reference := base("main").CacheKey()

	tests := []struct {
		name string
		b    *Builder
	}{
		{"connection name", base("replica")},
		{"binding value", newTestBuilder(newFakeExecutor("main"), nil).Where("age", ">", 31).Where("status", "=", "active")},
		{"binding type", newTestBuilder(newFakeExecutor("main"), nil).Where("age", ">", "30").Where("status", "=", "active")},
		{"binding order", newTestBuilder(newFakeExecutor("main"), nil).WhereRaw(`"age" > ? and "status" = ?`, "active", 30)},
		{"extra clause", base("main").OrderBy("age")},
		{"columns", base("main").Select("id")},
		{"limit", base("main").Limit(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if key := tt.b.CacheKey(); key == reference {
				t.Errorf("expected a different key, got the reference key %s", key)
			}
		})
	}
}

func TestBuilder_ExplicitKeyOverride(t *testing.T) {
	b := newTestBuilder(newFakeExecutor("main"), nil).Remember(5, "users.active")

	if got := b.CacheKey(); got != "users.active" {
		t.Errorf("expected explicit key, got %q", got)
	}

	b.Where("age", ">", 18).OrderBy("name")

	if got := b.CacheKey(); got != "users.active" {
		t.Errorf("expected explicit key after shape change, got %q", got)
	}
	if b.GenerateCacheKey() == "users.active" {
		t.Error("expected GenerateCacheKey to ignore the explicit key")
	}
}

func TestBuilder_GetUnsetNeverTouchesCache(t *testing.T) {
	exec := newFakeExecutor("main", Row{"id": 1})
	store := newRecordingCache()
	b := newTestBuilder(exec, store)

	for range 2 {
		rows, err := b.Get(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
	}

	if len(exec.calls) != 2 {
		t.Errorf("expected direct execution every time, got %d calls", len(exec.calls))
	}
	if len(store.calls) != 0 || len(store.tagCalls) != 0 {
		t.Errorf("expected no cache interaction, got %d calls", len(store.calls))
	}
	if b.Shape().Columns != nil {
		t.Error("expected the uncached path to leave the projection unset")
	}
}

func TestBuilder_GetUnsetWithoutCache(t *testing.T) {
	exec := newFakeExecutor("main", Row{"id": 1})
	b := newTestBuilder(exec, nil)

	if _, err := b.Get(context.Background(), "id", "name"); err != nil {
		t.Fatal(err)
	}
	if got := exec.lastSQL(); got != `select "id", "name" from "users"` {
		t.Errorf("unexpected sql %q", got)
	}
}

func TestBuilder_GetWithoutCacheService(t *testing.T) {
	exec := newFakeExecutor("main")
	b := newTestBuilder(exec, nil).Remember(5)

	if _, err := b.Get(context.Background()); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Error("expected no execution")
	}
}

func TestBuilder_GetMissExecutesOnceAndStores(t *testing.T) {
	exec := newFakeExecutor("main", Row{"id": 1}, Row{"id": 2})
	store := newRecordingCache()
	b := newTestBuilder(exec, store).Remember(5)

	rows, err := b.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
	if len(exec.calls) != 1 {
		t.Errorf("expected exactly one execution, got %d", len(exec.calls))
	}
	if store.writes != 1 {
		t.Errorf("expected exactly one store write, got %d", store.writes)
	}

	want := []rememberCall{{key: b.CacheKey(), ttl: 5 * time.Minute}}
	if diff := cmp.Diff(want, store.calls, cmp.AllowUnexported(rememberCall{})); diff != "" {
		t.Errorf("cache calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_GetHitShortCircuits(t *testing.T) {
	exec := newFakeExecutor("main", Row{"id": 1})
	store := newRecordingCache()
	b := newTestBuilder(exec, store).Remember(5)

	// the cached path projects * before deriving the key
	b.Select("*")
	cached := []Row{{"id": 99, "name": "cached"}}
	store.seed(b.CacheKey(), cached)

	rows, err := b.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(exec.calls) != 0 {
		t.Errorf("expected no execution on a hit, got %d", len(exec.calls))
	}
	if diff := cmp.Diff(cached, rows); diff != "" {
		t.Errorf("expected stored rows verbatim (-want +got):\n%s", diff)
	}
}

func TestBuilder_GetSetsColumnsBeforeKeying(t *testing.T) {
	exec := newFakeExecutor("main")
	store := newRecordingCache()
	b := newTestBuilder(exec, store).Remember(5)

	if _, err := b.Get(context.Background(), "id", "email"); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"id", "email"}, b.Shape().Columns); diff != "" {
		t.Errorf("expected projection to be set (-want +got):\n%s", diff)
	}
	if got := exec.lastSQL(); got != `select "id", "email" from "users"` {
		t.Errorf("unexpected sql %q", got)
	}
	if store.calls[0].key != b.GenerateCacheKey() {
		t.Error("expected the key to match the executed statement")
	}
}

func TestBuilder_GetForeverUsesForeverPath(t *testing.T) {
	exec := newFakeExecutor("main", Row{"id": 1})
	store := newRecordingCache()
	b := newTestBuilder(exec, store).RememberForever()

	for range 2 {
		if _, err := b.Get(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	for _, call := range store.calls {
		if !call.forever {
			t.Errorf("expected only forever calls, got %+v", call)
		}
	}
	if len(exec.calls) != 1 {
		t.Errorf("expected one execution, got %d", len(exec.calls))
	}
}

func TestBuilder_GetZeroMinutesConsultsStore(t *testing.T) {
	exec := newFakeExecutor("main", Row{"id": 1})
	store := newRecordingCache()
	b := newTestBuilder(exec, store).Remember(0)

	for range 2 {
		if _, err := b.Get(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if len(store.calls) != 2 {
		t.Fatalf("expected the store to be consulted every time, got %d calls", len(store.calls))
	}
	if store.calls[0].ttl != 0 || store.calls[0].forever {
		t.Errorf("expected a zero ttl call, got %+v", store.calls[0])
	}
	if len(exec.calls) != 2 {
		t.Errorf("expected results not to be retained, got %d executions", len(exec.calls))
	}
}

func TestBuilder_GetForwardsTags(t *testing.T) {
	exec := newFakeExecutor("main")
	store := newRecordingCache()
	b := newTestBuilder(exec, store).Remember(5).WithTags("users", "accounts")

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([][]string{{"users", "accounts"}}, store.tagCalls); diff != "" {
		t.Errorf("expected tags forwarded verbatim (-want +got):\n%s", diff)
	}
}

func TestBuilder_GetMergesContextTags(t *testing.T) {
	exec := newFakeExecutor("main")
	store := newRecordingCache()
	b := newTestBuilder(exec, store).Remember(5).WithTags("users")

	ctx := WithCacheTags(context.Background(), "tenant:1", "users")
	if _, err := b.Get(ctx); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([][]string{{"users", "tenant:1"}}, store.tagCalls); diff != "" {
		t.Errorf("unexpected tag scope (-want +got):\n%s", diff)
	}
}

func TestBuilder_GetFailureIsNotStored(t *testing.T) {
	boom := errors.New("no such table")
	exec := newFakeExecutor("main")
	exec.err = boom
	store := newRecordingCache()
	b := newTestBuilder(exec, store).Remember(5)

	if _, err := b.Get(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if store.writes != 0 {
		t.Errorf("expected no write after a failure, got %d", store.writes)
	}
}

func TestBuilder_First(t *testing.T) {
	exec := newFakeExecutor("main", Row{"id": 1, "name": "alice"})
	b := newTestBuilder(exec, nil).OrderBy("id")

	row, err := b.First(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if row["name"] != "alice" {
		t.Errorf("unexpected row %v", row)
	}
	if got := exec.lastSQL(); got != `select * from "users" order by "id" asc limit 1` {
		t.Errorf("unexpected sql %q", got)
	}
	if b.Shape().Limit != 0 {
		t.Error("expected First to leave the builder unlimited")
	}

	exec.rows = nil
	row, err = b.First(context.Background())
	if err != nil || row != nil {
		t.Errorf("expected nil row for an empty result, got %v, %v", row, err)
	}
}

func TestBuilder_CloneIsIndependent(t *testing.T) {
	b := newTestBuilder(newFakeExecutor("main"), nil).Where("age", ">", 18).Remember(5).WithTags("users")

	c := b.Clone().Where("status", "=", "active").WithTags("other").RememberForever()

	if len(b.Shape().Wheres) != 1 {
		t.Errorf("expected original wheres untouched, got %d", len(b.Shape().Wheres))
	}
	if b.Directive().Duration.IsForever() || b.Directive().Tags[0] != "users" {
		t.Errorf("expected original directive untouched, got %+v", b.Directive())
	}
	if len(c.Shape().Wheres) != 2 {
		t.Errorf("expected clone to have both wheres, got %d", len(c.Shape().Wheres))
	}
}

func TestBuilder_DirectiveCopyIsDetached(t *testing.T) {
	b := newTestBuilder(newFakeExecutor("main"), nil).WithTags("users")

	d := b.Directive()
	d.Tags[0] = "mutated"

	if b.Directive().Tags[0] != "users" {
		t.Error("expected Directive to return a copy")
	}
}
