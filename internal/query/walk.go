package query

// Walk visits every filter of q in depth-first order, descending into
// Exists sub-queries. The visitor returns false to stop the walk.
func Walk(q Query, visit func(f Filter, depth int) bool) {
	walk(q.Where, 0, visit)
}

func walk(filters []Filter, depth int, visit func(Filter, int) bool) bool {
	for _, f := range filters {
		if !visit(f, depth) {
			return false
		}
		if ex, ok := f.(Exists); ok {
			if !walk(ex.Subquery.Where, depth+1, visit) {
				return false
			}
		}
	}
	return true
}

// LeafFilters returns the top-level leaf filters of q in order.
// Exists nodes are skipped, not descended into.
func LeafFilters(q Query) []Leaf {
	var out []Leaf
	for _, f := range q.Where {
		if l, ok := f.(Leaf); ok {
			out = append(out, l)
		}
	}
	return out
}

// VariableFilters returns the top-level leaf filters whose value is a
// placeholder, in encounter order.
func VariableFilters(q Query) []Leaf {
	var out []Leaf
	for _, l := range LeafFilters(q) {
		if l.IsVariable() {
			out = append(out, l)
		}
	}
	return out
}

// HasExists reports whether any top-level filter is an Exists node.
func HasExists(q Query) bool {
	for _, f := range q.Where {
		if _, ok := f.(Exists); ok {
			return true
		}
	}
	return false
}

// Collections returns every collection q reads, starting with its own.
// The store uses this to decide which subscriptions a write affects.
func Collections(q Query) []string {
	seen := map[string]bool{q.Collection: true}
	out := []string{q.Collection}
	Walk(q, func(f Filter, _ int) bool {
		if ex, ok := f.(Exists); ok && !seen[ex.Subquery.Collection] {
			seen[ex.Subquery.Collection] = true
			out = append(out, ex.Subquery.Collection)
		}
		return true
	})
	return out
}
