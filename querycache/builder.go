package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/goliatone/go-query-cache/cache"
)

// Builder is a query in progress. It accumulates clauses and an optional
// cache Directive, and executes through an Executor. A Builder is not safe
// for concurrent use; Clone it to share a base query.
type Builder struct {
	executor   Executor
	cache      cache.TaggableService[[]Row]
	serializer cache.KeySerializer
	grammar    Grammar

	shape     Shape
	directive Directive
}

// NewBuilder creates a builder for table on executor.
func NewBuilder(executor Executor, table string, opts ...Option) *Builder {
	s := newSettings(opts...)
	return &Builder{
		executor:   executor,
		cache:      s.cache,
		serializer: s.serializer,
		grammar:    s.grammar,
		shape:      Shape{Table: table},
	}
}

// Remember caches results for the given number of minutes. A negative value
// caches forever. The optional key overrides the derived cache key.
func (b *Builder) Remember(minutes int, key ...string) *Builder {
	b.directive.Duration = Minutes(minutes)
	if len(key) > 0 && key[0] != "" {
		b.directive.Key = key[0]
	}
	return b
}

// RememberForever caches results without expiration.
func (b *Builder) RememberForever(key ...string) *Builder {
	return b.Remember(-1, key...)
}

// WithTags scopes cached results to the given tags, replacing any set before.
func (b *Builder) WithTags(tags ...string) *Builder {
	b.directive.Tags = cloneStrings(tags)
	return b
}

// CacheTags is an alias of WithTags.
func (b *Builder) CacheTags(tags ...string) *Builder {
	return b.WithTags(tags...)
}

// Directive returns a copy of the current cache directive.
func (b *Builder) Directive() Directive {
	return b.directive.clone()
}

// Shape returns a copy of the current query shape.
func (b *Builder) Shape() Shape {
	return b.shape.Clone()
}

// Clone returns an independent builder with the same shape and directive.
func (b *Builder) Clone() *Builder {
	c := *b
	c.shape = b.shape.Clone()
	c.directive = b.directive.clone()
	return &c
}

// ToSQL renders the current shape.
func (b *Builder) ToSQL() string {
	return b.grammar.CompileSelect(&b.shape)
}

// Bindings returns the ordered parameter values of the current shape.
func (b *Builder) Bindings() []any {
	return b.shape.Bindings()
}

// CacheKey returns the explicit key when one was set, otherwise the key
// derived from the current query.
func (b *Builder) CacheKey() string {
	if b.directive.Key != "" {
		return b.directive.Key
	}
	return b.GenerateCacheKey()
}

// GenerateCacheKey hashes the connection name, rendered SQL and bindings.
func (b *Builder) GenerateCacheKey() string {
	name := ""
	if b.executor != nil {
		name = b.executor.Name()
	}

	serialized := b.serializer.SerializeKey(name, b.ToSQL(), b.Bindings())
	sum := sha256.Sum256([]byte(serialized))
	return hex.EncodeToString(sum[:])
}

// Get executes the query and returns its rows, consulting the cache when a
// duration was set with Remember or RememberForever. Columns default to *.
func (b *Builder) Get(ctx context.Context, columns ...string) ([]Row, error) {
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	if !b.directive.Duration.IsSet() {
		return b.runSelect(ctx, columns)
	}

	if b.cache == nil {
		return nil, ErrCacheUnavailable
	}

	if b.shape.Columns == nil {
		b.shape.Columns = cloneStrings(columns)
	}

	key := b.CacheKey()
	fetch := func(ctx context.Context) ([]Row, error) {
		return b.runSelect(ctx, columns)
	}

	store := b.cacheService(ctx)
	if b.directive.Duration.IsForever() {
		return store.RememberForever(ctx, key, fetch)
	}
	return store.Remember(ctx, key, b.directive.Duration.TTL(), fetch)
}

// First returns the first row or nil. The builder itself is not limited.
func (b *Builder) First(ctx context.Context, columns ...string) (Row, error) {
	rows, err := b.Clone().Limit(1).Get(ctx, columns...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// runSelect always hits the executor. columns only apply when the shape
// has no projection of its own, and the shape is left untouched.
func (b *Builder) runSelect(ctx context.Context, columns []string) ([]Row, error) {
	shape := b.shape
	if shape.Columns == nil {
		shape.Columns = columns
	}
	return b.executor.Select(ctx, b.grammar.CompileSelect(&shape), shape.Bindings())
}

func (b *Builder) cacheService(ctx context.Context) cache.Service[[]Row] {
	tags := effectiveTags(ctx, b.directive.Tags)
	if len(tags) == 0 {
		return b.cache
	}
	return b.cache.Tags(tags...)
}

// Select sets the projected columns.
func (b *Builder) Select(columns ...string) *Builder {
	b.shape.Columns = cloneStrings(columns)
	return b
}

// Distinct makes the query return distinct rows.
func (b *Builder) Distinct() *Builder {
	b.shape.Distinct = true
	return b
}

// Join adds an inner join.
func (b *Builder) Join(table, first, operator, second string) *Builder {
	return b.join("inner", table, first, operator, second)
}

// LeftJoin adds a left join.
func (b *Builder) LeftJoin(table, first, operator, second string) *Builder {
	return b.join("left", table, first, operator, second)
}

func (b *Builder) join(kind, table, first, operator, second string) *Builder {
	b.shape.Joins = append(b.shape.Joins, Join{
		Type:     kind,
		Table:    table,
		First:    first,
		Operator: operator,
		Second:   second,
	})
	return b
}

// Where adds "column operator ?" joined with and.
func (b *Builder) Where(column, operator string, value any) *Builder {
	return b.addWhere("and", b.comparison(column, operator), value)
}

// OrWhere adds "column operator ?" joined with or.
func (b *Builder) OrWhere(column, operator string, value any) *Builder {
	return b.addWhere("or", b.comparison(column, operator), value)
}

// WhereRaw adds a raw condition with ? placeholders.
func (b *Builder) WhereRaw(sql string, args ...any) *Builder {
	return b.addWhere("and", sql, args...)
}

// WhereNull adds "column is null".
func (b *Builder) WhereNull(column string) *Builder {
	return b.addWhere("and", b.grammar.Wrap(column)+" is null")
}

// WhereIn adds "column in (...)". An empty list matches nothing.
func (b *Builder) WhereIn(column string, values ...any) *Builder {
	if len(values) == 0 {
		return b.addWhere("and", "0 = 1")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return b.addWhere("and", b.grammar.Wrap(column)+" in ("+placeholders+")", values...)
}

func (b *Builder) addWhere(boolean, sql string, args ...any) *Builder {
	b.shape.Wheres = append(b.shape.Wheres, Condition{Boolean: boolean, SQL: sql, Args: args})
	return b
}

// GroupBy adds group by columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	b.shape.Groups = append(b.shape.Groups, columns...)
	return b
}

// Having adds "column operator ?" to the having clause.
func (b *Builder) Having(column, operator string, value any) *Builder {
	b.shape.Havings = append(b.shape.Havings, Condition{
		Boolean: "and",
		SQL:     b.comparison(column, operator),
		Args:    []any{value},
	})
	return b
}

// OrderBy adds an ascending order.
func (b *Builder) OrderBy(column string) *Builder {
	b.shape.Orders = append(b.shape.Orders, Order{Column: column, Direction: "asc"})
	return b
}

// OrderByDesc adds a descending order.
func (b *Builder) OrderByDesc(column string) *Builder {
	b.shape.Orders = append(b.shape.Orders, Order{Column: column, Direction: "desc"})
	return b
}

// Limit caps the number of rows. Non positive values remove the limit.
func (b *Builder) Limit(n int) *Builder {
	b.shape.Limit = max(n, 0)
	return b
}

// Offset skips n rows.
func (b *Builder) Offset(n int) *Builder {
	b.shape.Offset = max(n, 0)
	return b
}

func (b *Builder) comparison(column, operator string) string {
	return b.grammar.Wrap(column) + " " + operator + " ?"
}
