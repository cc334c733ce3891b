package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-query-cache/querycache"
)

var operators = []string{">=", "<=", "!=", "<>", "=", ">", "<"}

// queryFlags are the clause and cache flags shared by select, aggregate and key.
type queryFlags struct {
	wheres   []string
	orWheres []string
	nulls    []string
	orders   []string
	groups   []string
	distinct bool
	limit    int
	offset   int

	remember int
	forever  bool
	key      string
	tags     []string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVarP(&q.wheres, "where", "w", nil, `filter such as "age>=30" (repeatable)`)
	f.StringArrayVar(&q.orWheres, "or-where", nil, "filter joined with or (repeatable)")
	f.StringSliceVar(&q.nulls, "where-null", nil, "columns that must be null")
	f.StringSliceVar(&q.orders, "order", nil, `order columns, prefix with "-" for descending`)
	f.StringSliceVar(&q.groups, "group", nil, "group by columns")
	f.BoolVar(&q.distinct, "distinct", false, "select distinct rows")
	f.IntVar(&q.limit, "limit", 0, "maximum number of rows")
	f.IntVar(&q.offset, "offset", 0, "rows to skip")

	f.IntVar(&q.remember, "remember", 0, "cache the result for N minutes, negative for forever")
	f.BoolVar(&q.forever, "forever", false, "cache the result without expiration")
	f.StringVar(&q.key, "key", "", "explicit cache key")
	f.StringSliceVar(&q.tags, "tags", nil, "cache tags")
}

// apply adds the clauses and the cache directive to b. The directive is only
// set when --remember or --forever is passed.
func (q *queryFlags) apply(cmd *cobra.Command, b *querycache.Builder) error {
	for _, raw := range q.wheres {
		column, op, value, err := parseCondition(raw)
		if err != nil {
			return err
		}
		b.Where(column, op, value)
	}
	for _, raw := range q.orWheres {
		column, op, value, err := parseCondition(raw)
		if err != nil {
			return err
		}
		b.OrWhere(column, op, value)
	}
	for _, column := range q.nulls {
		b.WhereNull(column)
	}
	if len(q.groups) > 0 {
		b.GroupBy(q.groups...)
	}
	for _, column := range q.orders {
		if name, ok := strings.CutPrefix(column, "-"); ok {
			b.OrderByDesc(name)
			continue
		}
		b.OrderBy(column)
	}
	if q.distinct {
		b.Distinct()
	}
	if q.limit > 0 {
		b.Limit(q.limit)
	}
	if q.offset > 0 {
		b.Offset(q.offset)
	}

	switch {
	case q.forever:
		b.RememberForever(q.key)
	case cmd.Flags().Changed("remember"):
		b.Remember(q.remember, q.key)
	}
	if len(q.tags) > 0 {
		b.WithTags(q.tags...)
	}
	return nil
}

// parseCondition splits "column<op>value" on the earliest operator, longest
// match first. Numeric values bind as numbers.
func parseCondition(raw string) (column, op string, value any, err error) {
	at := -1
	for _, candidate := range operators {
		idx := strings.Index(raw, candidate)
		if idx <= 0 {
			continue
		}
		if at == -1 || idx < at || (idx == at && len(candidate) > len(op)) {
			op, at = candidate, idx
		}
	}

	if at > 0 {
		column = strings.TrimSpace(raw[:at])
	}
	if column == "" {
		return "", "", nil, fmt.Errorf("invalid condition %q: expected column, operator and value", raw)
	}
	return column, op, parseValue(strings.TrimSpace(raw[at+len(op):])), nil
}

func parseValue(text string) any {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return strings.Trim(text, `"'`)
}
