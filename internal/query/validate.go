package query

import (
	"fmt"
	"strings"

	"github.com/roach88/viewcache/internal/ir"
)

// ValidationResult lists the structural problems of a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each violation in encounter order.
	Problems []string
}

// Err folds the problems into a single error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", strings.Join(r.Problems, "; "))
}

// Validate checks q for structural problems:
//  1. Collection must be named
//  2. Leaf attributes must be non-empty and operators known
//  3. in/nin need an array (or a placeholder bound to one)
//  4. Top-level placeholders must be bound in Vars
//  5. Order clauses need an attribute and a known direction
//
// Placeholders inside Exists sub-queries may also use the "$parent." scope.
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(q, q.Vars, "")

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query, vars map[string]ir.IRValue, path string) {
	if q.Collection == "" {
		v.addProblem("%scollection is required", path)
	}

	for i, f := range q.Where {
		at := fmt.Sprintf("%swhere[%d]", path, i)
		switch filter := f.(type) {
		case Leaf:
			v.validateLeaf(filter, vars, at, path != "")
		case Exists:
			v.validateQuery(filter.Subquery, vars, at+".exists.")
		case nil:
			v.addProblem("%s: nil filter", at)
		default:
			v.addProblem("%s: unsupported filter type %T", at, f)
		}
	}

	for i, o := range q.Order {
		if o.Attribute == "" {
			v.addProblem("%sorder[%d]: attribute is required", path, i)
		}
		switch o.Direction {
		case Asc, Desc, "":
		default:
			v.addProblem("%sorder[%d]: unknown direction %q", path, i, o.Direction)
		}
	}

	for i, s := range q.Select {
		if s == "" {
			v.addProblem("%sselect[%d]: attribute is required", path, i)
		}
	}
}

func (v *validator) validateLeaf(l Leaf, vars map[string]ir.IRValue, at string, nested bool) {
	if l.Attribute == "" {
		v.addProblem("%s: attribute is required", at)
	}
	if !l.Op.Valid() {
		v.addProblem("%s: unknown operator %q", at, l.Op)
	}
	if l.Value == nil {
		v.addProblem("%s: value is required", at)
		return
	}

	value := l.Value
	if name, ok := PlaceholderName(l.Value); ok {
		if nested && strings.HasPrefix(name, ParentScope) {
			return
		}
		bound, ok := vars[name]
		if !ok {
			v.addProblem("%s: unbound variable %s%s", at, PlaceholderSigil, name)
			return
		}
		value = bound
	}

	if l.Op == OpIn || l.Op == OpNotIn {
		if _, ok := value.(ir.IRArray); !ok {
			v.addProblem("%s: operator %q requires an array value", at, l.Op)
		}
	}
}
