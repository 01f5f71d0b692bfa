package query

import (
	"errors"
	"fmt"

	"github.com/roach88/viewcache/internal/ir"
)

var (
	// ErrUnboundVariable is returned when a placeholder has no binding in Vars.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrUnknownOperator is returned for operators outside the Operator set.
	ErrUnknownOperator = errors.New("unknown operator")
)

// ExistsFunc evaluates an Exists sub-query for one enclosing entity.
// The store supplies it; pure callers that never see Exists may pass nil.
type ExistsFunc func(sub Query, parent ir.Entity) (bool, error)

// ResolveValue substitutes a placeholder with its binding.
// Literal values are returned unchanged.
func ResolveValue(v ir.IRValue, vars map[string]ir.IRValue) (ir.IRValue, error) {
	name, ok := PlaceholderName(v)
	if !ok {
		return v, nil
	}
	bound, ok := vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s%s", ErrUnboundVariable, PlaceholderSigil, name)
	}
	if bound == nil {
		return ir.IRNull{}, nil
	}
	return bound, nil
}

// Match reports whether e satisfies every filter (implicit AND).
func Match(e ir.Entity, filters []Filter, vars map[string]ir.IRValue, exists ExistsFunc) (bool, error) {
	for _, f := range filters {
		ok, err := MatchFilter(e, f, vars, exists)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// MatchFilter evaluates a single filter against e.
func MatchFilter(e ir.Entity, f Filter, vars map[string]ir.IRValue, exists ExistsFunc) (bool, error) {
	switch filter := f.(type) {
	case Leaf:
		bound, err := ResolveValue(filter.Value, vars)
		if err != nil {
			return false, err
		}
		attr, _ := e.Get(filter.Attribute)
		return Holds(filter.Op, attr, bound)
	case Exists:
		if exists == nil {
			return false, fmt.Errorf("exists filter on %q: no sub-query evaluator", filter.Subquery.Collection)
		}
		return exists(filter.Subquery, e)
	default:
		return false, fmt.Errorf("unsupported filter type: %T", f)
	}
}

// Holds reports whether "attr op bound" is true.
//
// Ordering operators only relate values of the same kind (see ir.Rank):
// "age < 20" never matches an entity whose age is missing or a string.
func Holds(op Operator, attr, bound ir.IRValue) (bool, error) {
	switch op {
	case OpEq:
		return ir.Equal(attr, bound), nil
	case OpNe:
		return !ir.Equal(attr, bound), nil
	case OpLt, OpLte, OpGt, OpGte:
		if ir.Rank(attr) != ir.Rank(bound) {
			return false, nil
		}
		c := ir.Compare(attr, bound)
		switch op {
		case OpLt:
			return c < 0, nil
		case OpLte:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case OpIn, OpNotIn:
		set, ok := bound.(ir.IRArray)
		if !ok {
			return false, fmt.Errorf("operator %q requires an array value, got %T", op, bound)
		}
		found := false
		for _, candidate := range set {
			if ir.Equal(attr, candidate) {
				found = true
				break
			}
		}
		return found == (op == OpIn), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
}

// Substitute returns a copy of q with every top-level placeholder replaced
// by its binding. Exists sub-queries are left untouched since they may refer
// to "$parent" scope.
func Substitute(q Query) (Query, error) {
	out := q.Clone()
	for i, f := range out.Where {
		leaf, ok := f.(Leaf)
		if !ok || !leaf.IsVariable() {
			continue
		}
		v, err := ResolveValue(leaf.Value, q.Vars)
		if err != nil {
			return Query{}, err
		}
		leaf.Value = v
		out.Where[i] = leaf
	}
	return out, nil
}
