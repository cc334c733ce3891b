package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/dbinfra"
	"github.com/goliatone/go-query-cache/pkg/config"
	"github.com/goliatone/go-query-cache/querycache"
)

// Container provides dependency injection for the query cache components.
// It owns the database handles and the cache store it opens, and hands out a
// Manager whose builders share them.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	keySerializer cache.KeySerializer
	store         *cache.Store[[]querycache.Row]
	manager       *querycache.Manager
	dbs           map[string]*bun.DB
}

// Option customizes the observability hooks the container wires in.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithLogger replaces the logger built from the log section of the config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeterProvider is passed to the cache store.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider is passed to every connection.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// NewContainer validates cfg, opens every configured connection and the
// cache store, and registers the connections on a Manager. Anything opened
// before a failure is closed again.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = cfg.Log.NewLogger(nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		logger:        o.logger,
		keySerializer: cache.NewDefaultKeySerializer(),
		dbs:           make(map[string]*bun.DB, len(cfg.Connections)),
	}

	storeOpts := []cache.Option{cache.WithLogger(o.logger)}
	if o.meterProvider != nil {
		storeOpts = append(storeOpts, cache.WithMeterProvider(o.meterProvider))
	}
	store, err := cache.Open[[]querycache.Row](ctx, cfg.Cache, storeOpts...)
	if err != nil {
		return nil, err
	}
	c.store = store

	c.manager = querycache.NewManager(
		querycache.WithCache(store),
		querycache.WithKeySerializer(c.keySerializer),
	)

	connOpts := []querycache.ConnectionOption{querycache.WithConnectionLogger(o.logger)}
	if o.tracerProvider != nil {
		connOpts = append(connOpts, querycache.WithTracerProvider(o.tracerProvider))
	}

	for _, conn := range cfg.Connections {
		db, err := dbinfra.Open(ctx, conn.DB())
		if err != nil {
			return nil, errors.Join(err, c.Close())
		}
		c.dbs[conn.Name] = db
		c.manager.AddConnection(querycache.NewConnection(conn.Name, db, connOpts...))
	}

	if err := c.manager.SetDefaultConnection(cfg.DefaultConnection); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	o.logger.Debug("query cache container ready",
		"connections", c.manager.Connections(),
		"default", cfg.DefaultConnection,
		"cache_driver", cfg.Cache.Driver,
	)

	return c, nil
}

// NewContainerWithDefaults opens config.Default: one in-memory SQLite
// connection and the memory cache.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.Default(), opts...)
}

// Manager returns the connection manager builders are created from.
func (c *Container) Manager() *querycache.Manager {
	return c.manager
}

// Cache returns the store shared by every builder. Use it to forget keys or
// flush tags after writes.
func (c *Container) Cache() *cache.Store[[]querycache.Row] {
	return c.store
}

// KeySerializer returns the serializer used to derive query keys.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the container logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// DB returns the bun handle opened for the named connection.
func (c *Container) DB(name string) (*bun.DB, bool) {
	db, ok := c.dbs[name]
	return db, ok
}

// Close releases every database handle and the cache store.
func (c *Container) Close() error {
	var errs []error
	for name, db := range c.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection %q: %w", name, err))
		}
	}
	clear(c.dbs)

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
		c.store = nil
	}
	return errors.Join(errs...)
}
