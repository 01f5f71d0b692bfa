package query

import (
	"github.com/roach88/viewcache/internal/ir"
)

// CanonicalForm renders q as an IR value suitable for content hashing.
//
// Included: collection, where (in order, recursively), select, order.
// Excluded: Vars - two queries differing only in bindings are the same
// shape. Slice order is preserved, so the form is order-sensitive.
func CanonicalForm(q Query) ir.IRObject {
	where := make(ir.IRArray, len(q.Where))
	for i, f := range q.Where {
		where[i] = canonicalFilter(f)
	}

	sel := make(ir.IRArray, len(q.Select))
	for i, s := range q.Select {
		sel[i] = ir.IRString(s)
	}

	order := make(ir.IRArray, len(q.Order))
	for i, o := range q.Order {
		dir := o.Direction
		if dir == "" {
			dir = Asc
		}
		order[i] = ir.IRArray{ir.IRString(o.Attribute), ir.IRString(dir)}
	}

	return ir.IRObject{
		"collection": ir.IRString(q.Collection),
		"where":      where,
		"select":     sel,
		"order":      order,
	}
}

func canonicalFilter(f Filter) ir.IRValue {
	switch filter := f.(type) {
	case Leaf:
		return ir.IRObject{
			"kind":      ir.IRString("leaf"),
			"attribute": ir.IRString(filter.Attribute),
			"op":        ir.IRString(filter.Op),
			"value":     canonicalValue(filter.Value),
		}
	case Exists:
		return ir.IRObject{
			"kind":     ir.IRString("exists"),
			"subquery": CanonicalForm(filter.Subquery),
		}
	default:
		return ir.IRObject{"kind": ir.IRString("unknown")}
	}
}

// canonicalValue tags values so that null (forbidden in canonical JSON) and
// a literal string never collide with each other.
func canonicalValue(v ir.IRValue) ir.IRValue {
	if _, isNull := v.(ir.IRNull); isNull || v == nil {
		return ir.IRObject{"null": ir.IRBool(true)}
	}
	return ir.IRObject{"literal": v}
}
