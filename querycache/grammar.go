package querycache

import (
	"strconv"
	"strings"
)

// Grammar renders a Shape into SQL text with ? placeholders.
type Grammar interface {
	CompileSelect(shape *Shape) string
	Wrap(identifier string) string
}

// SQLGrammar renders ANSI style SQL with double quoted identifiers. bun
// rewrites the ? placeholders for the connection's dialect.
type SQLGrammar struct{}

// NewGrammar returns the default grammar.
func NewGrammar() *SQLGrammar {
	return &SQLGrammar{}
}

// CompileSelect renders shape as a select statement.
func (g *SQLGrammar) CompileSelect(shape *Shape) string {
	var b strings.Builder

	b.WriteString("select ")
	if shape.Aggregate != nil {
		b.WriteString(g.compileAggregate(shape))
	} else {
		if shape.Distinct {
			b.WriteString("distinct ")
		}
		b.WriteString(g.columnize(shape.Columns))
	}

	if shape.Table != "" {
		b.WriteString(" from ")
		b.WriteString(g.Wrap(shape.Table))
	}

	for _, j := range shape.Joins {
		b.WriteString(" ")
		b.WriteString(j.Type)
		b.WriteString(" join ")
		b.WriteString(g.Wrap(j.Table))
		b.WriteString(" on ")
		b.WriteString(g.Wrap(j.First))
		b.WriteString(" ")
		b.WriteString(j.Operator)
		b.WriteString(" ")
		b.WriteString(g.Wrap(j.Second))
	}

	if len(shape.Wheres) > 0 {
		b.WriteString(" where ")
		b.WriteString(g.compileConditions(shape.Wheres))
	}

	if len(shape.Groups) > 0 {
		b.WriteString(" group by ")
		b.WriteString(g.columnize(shape.Groups))
	}

	if len(shape.Havings) > 0 {
		b.WriteString(" having ")
		b.WriteString(g.compileConditions(shape.Havings))
	}

	if len(shape.Orders) > 0 {
		parts := make([]string, len(shape.Orders))
		for i, o := range shape.Orders {
			parts[i] = g.Wrap(o.Column) + " " + o.Direction
		}
		b.WriteString(" order by ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if shape.Limit > 0 {
		b.WriteString(" limit ")
		b.WriteString(strconv.Itoa(shape.Limit))
	}

	if shape.Offset > 0 {
		b.WriteString(" offset ")
		b.WriteString(strconv.Itoa(shape.Offset))
	}

	return b.String()
}

func (g *SQLGrammar) compileAggregate(shape *Shape) string {
	column := g.columnize(shape.Aggregate.Columns)

	// count(distinct col) only makes sense for a concrete column list
	if shape.Distinct && column != "*" {
		column = "distinct " + column
	}

	return shape.Aggregate.Function + "(" + column + ") as " + g.Wrap("aggregate")
}

func (g *SQLGrammar) compileConditions(conditions []Condition) string {
	var b strings.Builder
	for i, c := range conditions {
		if i > 0 {
			b.WriteString(" ")
			b.WriteString(c.Boolean)
			b.WriteString(" ")
		}
		b.WriteString(c.SQL)
	}
	return b.String()
}

func (g *SQLGrammar) columnize(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = g.Wrap(c)
	}
	return strings.Join(parts, ", ")
}

// Wrap quotes an identifier, keeping *, dotted segments, aliases and raw
// expressions intact.
func (g *SQLGrammar) Wrap(value string) string {
	if value == "*" || strings.ContainsAny(value, "()\"") {
		return value
	}

	lower := strings.ToLower(value)
	if idx := strings.Index(lower, " as "); idx > 0 {
		return g.Wrap(value[:idx]) + " as " + g.wrapSegment(strings.TrimSpace(value[idx+4:]))
	}

	segments := strings.Split(value, ".")
	for i, s := range segments {
		segments[i] = g.wrapSegment(s)
	}
	return strings.Join(segments, ".")
}

func (g *SQLGrammar) wrapSegment(segment string) string {
	if segment == "*" {
		return segment
	}
	return `"` + segment + `"`
}

var _ Grammar = (*SQLGrammar)(nil)
