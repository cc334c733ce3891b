package querycache

// Shape holds the clauses of a select query. Its SQL text comes from a
// Grammar and its parameters from Bindings.
type Shape struct {
	Table     string
	Columns   []string
	Distinct  bool
	Joins     []Join
	Wheres    []Condition
	Groups    []string
	Havings   []Condition
	Orders    []Order
	Limit     int // zero means no limit
	Offset    int
	Aggregate *AggregateClause
}

// Join is an equality or comparison join between two columns.
type Join struct {
	Type     string // inner, left, right
	Table    string
	First    string
	Operator string
	Second   string
}

// Condition is a single where or having fragment. SQL uses ? placeholders
// matched positionally by Args.
type Condition struct {
	Boolean string // and, or
	SQL     string
	Args    []any
}

// Order is a single order by entry.
type Order struct {
	Column    string
	Direction string // asc, desc
}

// AggregateClause replaces the projection with function(columns) as aggregate.
type AggregateClause struct {
	Function string
	Columns  []string
}

// Bindings returns the ordered parameter values of every clause.
func (s Shape) Bindings() []any {
	bindings := make([]any, 0)
	for _, w := range s.Wheres {
		bindings = append(bindings, w.Args...)
	}
	for _, h := range s.Havings {
		bindings = append(bindings, h.Args...)
	}
	return bindings
}

// Clone returns a deep copy. Binding values themselves are shared.
func (s Shape) Clone() Shape {
	s.Columns = cloneStrings(s.Columns)
	s.Groups = cloneStrings(s.Groups)
	if s.Joins != nil {
		s.Joins = append([]Join{}, s.Joins...)
	}
	s.Wheres = cloneConditions(s.Wheres)
	s.Havings = cloneConditions(s.Havings)
	if s.Orders != nil {
		s.Orders = append([]Order{}, s.Orders...)
	}
	if s.Aggregate != nil {
		agg := AggregateClause{Function: s.Aggregate.Function, Columns: cloneStrings(s.Aggregate.Columns)}
		s.Aggregate = &agg
	}
	return s
}

func cloneConditions(in []Condition) []Condition {
	if in == nil {
		return nil
	}
	out := make([]Condition, len(in))
	for i, c := range in {
		out[i] = Condition{Boolean: c.Boolean, SQL: c.SQL, Args: append([]any(nil), c.Args...)}
	}
	return out
}
