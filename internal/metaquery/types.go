// Package metaquery evaluates filter, group/aggregate, and ordering
// primitives over document metadata rows. It is a best-effort retrieval
// layer, not a query planner: specs are validated up front, and evaluation
// itself is total — incompatible comparisons fail closed instead of erroring.
package metaquery

import "fmt"

// FilterOp enumerates the supported filter operators.
type FilterOp string

const (
	OpEqual        FilterOp = "="
	OpNotEqual     FilterOp = "!="
	OpIn           FilterOp = "in"
	OpContains     FilterOp = "contains"
	OpGreater      FilterOp = ">"
	OpGreaterEqual FilterOp = ">="
	OpLess         FilterOp = "<"
	OpLessEqual    FilterOp = "<="
)

// AggregateFunc enumerates the supported aggregate functions.
type AggregateFunc string

const (
	FuncCount AggregateFunc = "count"
	FuncSum   AggregateFunc = "sum"
	FuncAvg   AggregateFunc = "avg"
)

// Filter is a single predicate over one metadata field. Filters combine with
// logical AND only; OR/NOT composition is not supported.
type Filter struct {
	Field string   `json:"field"`
	Op    FilterOp `json:"op"`
	Value any      `json:"value"`
}

// Aggregate computes one value per group. Field may be "*" for count.
type Aggregate struct {
	Func  AggregateFunc `json:"func"`
	Field string        `json:"field"`
	Alias string        `json:"as,omitempty"`
}

// OrderBy is one sort clause. Direction is "asc" (default) or "desc".
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// Query is the full metadata query DSL payload.
type Query struct {
	Select     []string    `json:"select,omitempty"`
	Filters    []Filter    `json:"filters,omitempty"`
	GroupBy    []string    `json:"group_by,omitempty"`
	Aggregates []Aggregate `json:"aggregates,omitempty"`
	OrderBy    []OrderBy   `json:"order_by,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

// Row is one metadata result row.
type Row = map[string]any

// ValidationError reports a malformed filter or aggregate spec. Validation
// happens before evaluation so a bad spec is rejected early instead of
// silently matching nothing deep inside the query.
type ValidationError struct {
	Kind   string // "filter", "aggregate", "order_by"
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s spec: %s", e.Kind, e.Detail)
}

// validOps and validFuncs are the closed operator/function sets.
var validOps = map[FilterOp]struct{}{
	OpEqual: {}, OpNotEqual: {}, OpIn: {}, OpContains: {},
	OpGreater: {}, OpGreaterEqual: {}, OpLess: {}, OpLessEqual: {},
}

var validFuncs = map[AggregateFunc]struct{}{
	FuncCount: {}, FuncSum: {}, FuncAvg: {},
}

// Validate checks the query spec against the closed operator and function
// sets. A nil return guarantees evaluation cannot fail.
func (q *Query) Validate() error {
	for _, f := range q.Filters {
		if f.Field == "" {
			return &ValidationError{Kind: "filter", Detail: "missing field"}
		}
		if _, ok := validOps[f.Op]; !ok {
			return &ValidationError{Kind: "filter", Detail: fmt.Sprintf("unknown operator %q", f.Op)}
		}
	}
	for _, agg := range q.Aggregates {
		if _, ok := validFuncs[agg.Func]; !ok {
			return &ValidationError{Kind: "aggregate", Detail: fmt.Sprintf("unknown function %q", agg.Func)}
		}
		if agg.Field == "" {
			return &ValidationError{Kind: "aggregate", Detail: "missing field"}
		}
	}
	for _, ob := range q.OrderBy {
		if ob.Field == "" {
			return &ValidationError{Kind: "order_by", Detail: "missing field"}
		}
	}
	return nil
}

// DefaultAlias returns the result key for an aggregate without an explicit
// alias: "<func>_<field>".
func (a Aggregate) DefaultAlias() string {
	if a.Alias != "" {
		return a.Alias
	}
	return fmt.Sprintf("%s_%s", a.Func, a.Field)
}
