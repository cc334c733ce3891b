package querycache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-query-cache/querycache"

// Executor runs rendered select statements. Name identifies the connection
// and takes part in cache key derivation.
type Executor interface {
	Name() string
	Select(ctx context.Context, query string, bindings []any) ([]Row, error)
}

// Connection executes queries through a bun database handle.
type Connection struct {
	name   string
	db     *bun.DB
	logger *slog.Logger
	tracer trace.Tracer
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithConnectionLogger sets the logger for executed statements.
func WithConnectionLogger(logger *slog.Logger) ConnectionOption {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ConnectionOption {
	return func(c *Connection) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewConnection wraps db under the logical name used for cache keys.
func NewConnection(name string, db *bun.DB, opts ...ConnectionOption) *Connection {
	c := &Connection{
		name:   name,
		db:     db,
		logger: slog.Default(),
		tracer: otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Executor.
func (c *Connection) Name() string {
	return c.name
}

// DB returns the underlying bun handle.
func (c *Connection) DB() *bun.DB {
	return c.db
}

// Select implements Executor. Rows are scanned into maps keyed by column name.
func (c *Connection) Select(ctx context.Context, query string, bindings []any) ([]Row, error) {
	ctx, span := c.tracer.Start(ctx, "querycache.select",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.connection", c.name),
			attribute.String("db.system", c.db.Dialect().Name().String()),
			attribute.String("db.statement", query),
		),
	)
	defer span.End()

	start := time.Now()

	var raw []map[string]any
	err := c.db.NewRaw(query, bindings...).Scan(ctx, &raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.DebugContext(ctx, "query failed",
			slog.String("connection", c.name),
			slog.String("sql", query),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("querycache: select on %q: %w", c.name, err)
	}

	rows := make([]Row, len(raw))
	for i, r := range raw {
		rows[i] = Row(r)
	}

	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	c.logger.DebugContext(ctx, "query executed",
		slog.String("connection", c.name),
		slog.String("sql", query),
		slog.Int("bindings", len(bindings)),
		slog.Int("rows", len(rows)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return rows, nil
}

var _ Executor = (*Connection)(nil)
