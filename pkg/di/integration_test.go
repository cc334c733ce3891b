package di

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/dbinfra"
	"github.com/goliatone/go-query-cache/pkg/config"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newSeededContainer opens a file backed SQLite database seeded with the
// fixture users.
func newSeededContainer(t testing.TB, opts ...Option) *Container {
	t.Helper()

	cfg := config.Default()
	cfg.Connections = []config.Connection{{
		Name:   "main",
		Driver: dbinfra.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "users.db"),
	}}

	container, err := NewContainer(context.Background(), cfg, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	db, ok := container.DB("main")
	require.True(t, ok)
	ctx := context.Background()
	_, err = db.NewCreateTable().Model((*testsupport.User)(nil)).Exec(ctx)
	require.NoError(t, err)
	users := testsupport.SeedUsers()
	_, err = db.NewInsert().Model(&users).Exec(ctx)
	require.NoError(t, err)

	return container
}

func insertUser(t testing.TB, c *Container, name string, age int) {
	t.Helper()

	db, _ := c.DB("main")
	testsupport.InsertUser(t, db, testsupport.User{Name: name, Email: name + "@example.com", Age: age, Status: "active"})
}

func TestIntegration_CachedQueryLifecycle(t *testing.T) {
	c := newSeededContainer(t)
	ctx := context.Background()

	query := func() *querycache.Builder {
		b, err := c.Manager().Table("users")
		require.NoError(t, err)
		return b.Where("status", "=", "active").Remember(10).WithTags("users")
	}

	rows, err := query().Get(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	insertUser(t, c, "erin", 22)

	// a fresh builder with the same query and connection shares the entry
	rows, err = query().Get(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	require.NoError(t, c.Cache().FlushTags(ctx, "users"))

	rows, err = query().Get(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestIntegration_ExplicitKeyAndForget(t *testing.T) {
	c := newSeededContainer(t)
	ctx := context.Background()

	b, err := c.Manager().Table("users")
	require.NoError(t, err)
	b.RememberForever("users.count")

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	insertUser(t, c, "erin", 22)

	n, err = b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, c.Cache().Forget(ctx, "users.count"))

	n, err = b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestIntegration_ContextTags(t *testing.T) {
	c := newSeededContainer(t)
	ctx := querycache.WithCacheTags(context.Background(), "tenant:1")

	b, err := c.Manager().Table("users")
	require.NoError(t, err)
	b.Remember(10)

	_, err = b.Get(ctx)
	require.NoError(t, err)
	insertUser(t, c, "erin", 22)

	require.NoError(t, c.Cache().FlushTags(ctx, "tenant:1"))

	rows, err := b.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestIntegration_ConcurrentReaders(t *testing.T) {
	c := newSeededContainer(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Manager().Table("users")
			if err != nil {
				errs <- err
				return
			}
			if _, err := b.Remember(5).Count(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestIntegration_Observability(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	c := newSeededContainer(t, WithMeterProvider(mp), WithTracerProvider(tp))
	ctx := context.Background()

	b, err := c.Manager().Table("users")
	require.NoError(t, err)
	b.Remember(5)

	for range 2 {
		_, err := b.Get(ctx)
		require.NoError(t, err)
	}

	assert.Len(t, recorder.Ended(), 1, "expected the second read to be served from the cache")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names[cache.MetricMisses], "expected a miss to be recorded, got %v", names)
	assert.True(t, names[cache.MetricHits], "expected a hit to be recorded, got %v", names)
}
