package viewcache

import (
	"github.com/roach88/viewcache/internal/query"
)

// Decompose splits q into a variable-free view query and the variable
// filters removed from it.
//
// The view query keeps the non-variable filters in order, copies Collection
// and Select, and orders by each variable attribute ascending followed by
// q's own order. Vars are dropped: a view is shared by every binding.
//
// The view query is returned in a one-element slice. Variable filters keep
// encounter order; only the first is indexed by the Resolver.
func Decompose(q query.Query) ([]query.Query, []query.Leaf) {
	var (
		where     []query.Filter
		variables []query.Leaf
	)
	for _, f := range q.Where {
		if leaf, ok := f.(query.Leaf); ok && leaf.IsVariable() {
			variables = append(variables, leaf)
			continue
		}
		where = append(where, f)
	}

	order := make([]query.OrderClause, 0, len(variables)+len(q.Order))
	for _, v := range variables {
		order = append(order, query.OrderClause{Attribute: v.Attribute, Direction: query.Asc})
	}
	order = append(order, q.Order...)

	view := query.Query{
		Collection: q.Collection,
		Where:      where,
		Select:     append([]string(nil), q.Select...),
		Order:      order,
	}

	return []query.Query{view}, variables
}
