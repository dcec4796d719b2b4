package metaquery

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Engine evaluates metadata queries over in-memory rows. It is stateless and
// safe for concurrent use.
type Engine struct{}

// NewEngine creates a metadata query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Filter returns the rows matching all filters (logical AND). An empty
// filter list returns the input unchanged.
func (e *Engine) Filter(rows []Row, filters []Filter) []Row {
	if len(filters) == 0 {
		return rows
	}
	var matched []Row
	for _, row := range rows {
		ok := true
		for _, f := range filters {
			if !matchFilter(row, f) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, row)
		}
	}
	return matched
}

// matchFilter evaluates one predicate against one row. Comparisons between
// incompatible types fail closed: the row is filtered out, never an error.
func matchFilter(row Row, f Filter) bool {
	candidate := row[f.Field]

	switch f.Op {
	case OpEqual:
		return looseEqual(candidate, f.Value)
	case OpNotEqual:
		return !looseEqual(candidate, f.Value)
	case OpIn:
		// Both directions: the filter value may be a list the row value
		// must belong to, or the row field may itself be list-valued.
		if list, ok := asList(f.Value); ok {
			for _, item := range list {
				if looseEqual(candidate, item) {
					return true
				}
			}
			return false
		}
		if list, ok := asList(candidate); ok {
			for _, item := range list {
				if looseEqual(item, f.Value) {
					return true
				}
			}
			return false
		}
		return looseEqual(candidate, f.Value)
	case OpContains:
		needle := strings.ToLower(stringify(f.Value))
		if list, ok := asList(candidate); ok {
			for _, item := range list {
				if strings.Contains(strings.ToLower(stringify(item)), needle) {
					return true
				}
			}
			return false
		}
		return strings.Contains(strings.ToLower(stringify(candidate)), needle)
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		cmp, ok := compare(candidate, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpGreater:
			return cmp > 0
		case OpGreaterEqual:
			return cmp >= 0
		case OpLess:
			return cmp < 0
		default:
			return cmp <= 0
		}
	}
	return false
}

// looseEqual compares scalars with numeric coercion, so a JSON float64 2020
// equals an int filter value 2020. Lists compare element-wise; any other
// uncomparable value (maps, for instance) fails closed instead of panicking.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, aok := asFloat(a); aok {
		if nb, bok := asFloat(b); bok {
			return na == nb
		}
	}
	if sa, aok := a.(string); aok {
		if sb, bok := b.(string); bok {
			return sa == sb
		}
	}
	if la, aok := asList(a); aok {
		lb, bok := asList(b)
		if !bok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !looseEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// compare orders two values. Numbers compare numerically, strings
// lexically; anything else is incomparable.
func compare(a, b any) (int, bool) {
	if na, aok := asFloat(a); aok {
		if nb, bok := asFloat(b); bok {
			switch {
			case na < nb:
				return -1, true
			case na > nb:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Aggregate applies select/group_by/aggregates to rows.
//
// With neither group_by nor aggregates, it projects select fields per row
// unchanged. With group_by, rows partition by the tuple of group-by values
// in first-seen order; without group_by but with aggregates, a single
// implicit group covers all rows.
func (e *Engine) Aggregate(rows []Row, selectFields, groupBy []string, aggregates []Aggregate) []Row {
	if len(groupBy) == 0 && len(aggregates) == 0 {
		out := make([]Row, 0, len(rows))
		for _, row := range rows {
			out = append(out, projectRow(row, selectFields))
		}
		return out
	}

	type group struct {
		key  []any
		rows []Row
	}
	var groups []*group
	if len(groupBy) > 0 {
		index := make(map[string]*group)
		for _, row := range rows {
			key := make([]any, len(groupBy))
			for i, field := range groupBy {
				key[i] = row[field]
			}
			keyStr := groupKey(key)
			g, ok := index[keyStr]
			if !ok {
				g = &group{key: key}
				index[keyStr] = g
				groups = append(groups, g)
			}
			g.rows = append(g.rows, row)
		}
	} else {
		groups = []*group{{rows: rows}}
	}

	results := make([]Row, 0, len(groups))
	for _, g := range groups {
		base := make(Row)
		for i, field := range groupBy {
			base[field] = g.key[i]
		}

		if len(aggregates) == 0 {
			// Pass through selected fields from the first group row.
			if len(g.rows) > 0 {
				for k, v := range projectRow(g.rows[0], selectFields) {
					if _, exists := base[k]; !exists {
						base[k] = v
					}
				}
			}
			results = append(results, base)
			continue
		}

		for _, agg := range aggregates {
			base[agg.DefaultAlias()] = computeAggregate(g.rows, agg)
		}
		for _, field := range selectFields {
			if _, exists := base[field]; exists {
				continue
			}
			if len(g.rows) > 0 {
				base[field] = g.rows[0][field]
			} else {
				base[field] = nil
			}
		}
		results = append(results, base)
	}
	return results
}

// groupKey builds an unambiguous string key from a group-by value tuple.
func groupKey(values []any) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(0)
		}
		fmt.Fprintf(&sb, "%T:%v", v, v)
	}
	return sb.String()
}

func projectRow(row Row, selectFields []string) Row {
	if len(selectFields) == 0 {
		out := make(Row, len(row))
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	out := make(Row, len(selectFields))
	for _, field := range selectFields {
		out[field] = row[field]
	}
	return out
}

// computeAggregate evaluates one aggregate over a group. Non-numeric values
// are excluded from sum/avg but stay in the group.
func computeAggregate(rows []Row, agg Aggregate) any {
	if agg.Func == FuncCount {
		if agg.Field == "*" {
			return len(rows)
		}
		n := 0
		for _, row := range rows {
			if row[agg.Field] != nil {
				n++
			}
		}
		return n
	}

	var sum float64
	var count int
	for _, row := range rows {
		if n, ok := asFloat(row[agg.Field]); ok {
			sum += n
			count++
		}
	}
	switch agg.Func {
	case FuncSum:
		return sum
	case FuncAvg:
		if count == 0 {
			return float64(0)
		}
		return sum / float64(count)
	}
	return nil
}

// Sort orders rows by the given clauses: a multi-key stable sort, strings
// compared case-insensitively. Applied after aggregation, before limit.
func (e *Engine) Sort(rows []Row, orderBy []OrderBy) {
	if len(orderBy) == 0 {
		return
	}
	// Sorting by the last clause first and stably re-sorting by each
	// earlier clause yields the multi-key order.
	for i := len(orderBy) - 1; i >= 0; i-- {
		clause := orderBy[i]
		desc := strings.EqualFold(clause.Direction, "desc")
		sort.SliceStable(rows, func(a, b int) bool {
			cmp := compareForSort(rows[a][clause.Field], rows[b][clause.Field])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
}

// compareForSort orders values for sorting: nil first, then numbers, then
// case-insensitive strings, then everything else by formatted text.
func compareForSort(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if cmp, ok := compare(a, b); ok {
		if _, isStr := a.(string); isStr {
			return strings.Compare(strings.ToLower(a.(string)), strings.ToLower(b.(string)))
		}
		return cmp
	}
	return strings.Compare(strings.ToLower(stringify(a)), strings.ToLower(stringify(b)))
}

// Run validates and executes a full query: filter, aggregate, order, limit.
func (e *Engine) Run(rows []Row, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	out := e.Filter(rows, q.Filters)
	if len(q.GroupBy) == 0 && len(q.Aggregates) == 0 {
		// Plain row queries sort before projecting, so order_by may use
		// fields outside the selection.
		sorted := make([]Row, len(out))
		copy(sorted, out)
		e.Sort(sorted, q.OrderBy)
		if q.Limit > 0 && len(sorted) > q.Limit {
			sorted = sorted[:q.Limit]
		}
		return e.Aggregate(sorted, q.Select, nil, nil), nil
	}

	out = e.Aggregate(out, q.Select, q.GroupBy, q.Aggregates)
	e.Sort(out, q.OrderBy)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
