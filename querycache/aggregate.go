package querycache

import (
	"context"

	"github.com/shopspring/decimal"
)

const aggregateColumn = "aggregate"

// Aggregate runs function(columns) through Get, so the call is cached like
// any other query when a duration is set. Columns default to *.
//
// The projection and ordering are swapped for the duration of the call and
// restored on every exit path. The result is the "aggregate" value of the
// first row, or nil when no rows came back.
func (b *Builder) Aggregate(ctx context.Context, function string, columns ...string) (any, error) {
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	savedColumns := b.shape.Columns
	savedOrders := b.shape.Orders
	defer func() {
		b.shape.Aggregate = nil
		b.shape.Columns = savedColumns
		b.shape.Orders = savedOrders
	}()

	b.shape.Aggregate = &AggregateClause{Function: function, Columns: cloneStrings(columns)}
	b.shape.Orders = nil

	rows, err := b.Get(ctx, columns...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	value, _ := rows[0].Lookup(aggregateColumn)
	return value, nil
}

// Count returns the number of matching rows.
func (b *Builder) Count(ctx context.Context, columns ...string) (int64, error) {
	value, err := b.Aggregate(ctx, "count", columns...)
	if err != nil {
		return 0, err
	}
	return Int64(value)
}

// Exists reports whether any row matches.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	n, err := b.Count(ctx)
	return n > 0, err
}

// Sum returns the sum of column, zero when no rows match.
func (b *Builder) Sum(ctx context.Context, column string) (decimal.Decimal, error) {
	value, err := b.Aggregate(ctx, "sum", column)
	if err != nil {
		return decimal.Zero, err
	}
	return Numeric(value)
}

// Avg returns the average of column. The result is invalid when no rows match.
func (b *Builder) Avg(ctx context.Context, column string) (decimal.NullDecimal, error) {
	value, err := b.Aggregate(ctx, "avg", column)
	if err != nil || value == nil {
		return decimal.NullDecimal{}, err
	}

	d, err := Numeric(value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// Min returns the smallest value of column as the driver reports it.
func (b *Builder) Min(ctx context.Context, column string) (any, error) {
	return b.Aggregate(ctx, "min", column)
}

// Max returns the largest value of column as the driver reports it.
func (b *Builder) Max(ctx context.Context, column string) (any, error) {
	return b.Aggregate(ctx, "max", column)
}
