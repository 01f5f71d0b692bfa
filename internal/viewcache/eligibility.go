package viewcache

import (
	"fmt"

	"github.com/roach88/viewcache/internal/query"
	"github.com/roach88/viewcache/internal/schema"
)

// rangeOperators are the operators a sorted view can answer.
var rangeOperators = map[query.Operator]bool{
	query.OpEq:  true,
	query.OpNe:  true,
	query.OpLt:  true,
	query.OpLte: true,
	query.OpGt:  true,
	query.OpGte: true,
}

// CanCacheQuery reports whether q can be served from a cached view.
//
// A query is cacheable when a schema model is supplied, its Where holds only
// leaf filters, exactly one of them is a variable filter, that filter uses a
// range operator, and its attribute resolves to a single-valued type.
func CanCacheQuery(q query.Query, model *schema.Model) bool {
	return Eligibility(q, model) == ""
}

// Eligibility returns why q cannot be served from a cached view, or "" when
// it can.
func Eligibility(q query.Query, model *schema.Model) string {
	if model == nil {
		return "no schema model"
	}

	for _, f := range q.Where {
		if _, ok := f.(query.Leaf); !ok {
			return "where contains a non-leaf filter"
		}
	}

	vars := query.VariableFilters(q)
	if len(vars) != 1 {
		return fmt.Sprintf("need exactly one variable filter, found %d", len(vars))
	}

	filter := vars[0]
	if !rangeOperators[filter.Op] {
		return fmt.Sprintf("operator %q is not supported by range search", filter.Op)
	}

	typ, ok := model.ResolveAttributeType(q.Collection, filter.Attribute)
	if !ok {
		return fmt.Sprintf("attribute %q is not defined on %q", filter.Attribute, q.Collection)
	}
	if typ.IsSet() {
		return fmt.Sprintf("attribute %q is multi-valued", filter.Attribute)
	}

	return ""
}
