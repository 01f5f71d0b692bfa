package query

import (
	"fmt"
	"strings"

	"github.com/roach88/viewcache/internal/ir"
)

// PlaceholderSigil prefixes variable references in filter values.
const PlaceholderSigil = "$"

// ParentScope prefixes placeholders that refer to the enclosing entity of an
// Exists sub-query ("$parent.id").
const ParentScope = "parent."

// Operator is a leaf filter comparison.
type Operator string

const (
	OpEq    Operator = "="
	OpNe    Operator = "!="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpIn    Operator = "in"
	OpNotIn Operator = "nin"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpNotIn:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Query is a parameterized read of one collection.
//
// Semantics:
//
//	SELECT <select> FROM <collection> WHERE <where...> ORDER BY <order...>, id
//
// Where entries are implicitly AND-ed. Vars binds placeholder values; it is
// not part of the query's identity.
type Query struct {
	Collection string
	Where      []Filter
	Select     []string
	Order      []OrderClause
	Vars       map[string]ir.IRValue
}

// OrderClause sorts results by one attribute path.
type OrderClause struct {
	Attribute string
	Direction Direction
}

// Filter is a node of a query's where clause.
//
// This is a sealed interface - only Leaf and Exists implement it.
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// Leaf compares one attribute path against a value.
//
// Example:
//
//	Leaf{Attribute: "age", Op: OpGte, Value: ir.IRString("$minAge")}
//
// The value is either a literal or a placeholder reference.
type Leaf struct {
	Attribute string
	Op        Operator
	Value     ir.IRValue
}

func (Leaf) filterNode() {}

// Exists holds when the sub-query returns at least one entity.
// The sub-query may reference the enclosing entity via "$parent.<path>".
type Exists struct {
	Subquery Query
}

func (Exists) filterNode() {}

// IsVariable reports whether the leaf's value is a placeholder reference.
func (l Leaf) IsVariable() bool {
	_, ok := PlaceholderName(l.Value)
	return ok
}

// String renders the leaf for logs and error messages.
func (l Leaf) String() string {
	data, err := ir.MarshalIRValue(l.Value)
	if err != nil {
		return fmt.Sprintf("%s %s %v", l.Attribute, l.Op, l.Value)
	}
	return fmt.Sprintf("%s %s %s", l.Attribute, l.Op, data)
}

// PlaceholderName returns the variable name referenced by v ("$x" → "x").
func PlaceholderName(v ir.IRValue) (string, bool) {
	s, ok := v.(ir.IRString)
	if !ok || !strings.HasPrefix(string(s), PlaceholderSigil) || len(s) == len(PlaceholderSigil) {
		return "", false
	}
	return strings.TrimPrefix(string(s), PlaceholderSigil), true
}

// Placeholder builds a placeholder value referencing name.
func Placeholder(name string) ir.IRString {
	return ir.IRString(PlaceholderSigil + name)
}

// Clone returns a deep-enough copy of q: slices and the vars map are fresh,
// values are shared (IR values are treated as immutable).
func (q Query) Clone() Query {
	out := Query{
		Collection: q.Collection,
		Where:      make([]Filter, len(q.Where)),
		Select:     append([]string(nil), q.Select...),
		Order:      append([]OrderClause(nil), q.Order...),
	}
	for i, f := range q.Where {
		if ex, ok := f.(Exists); ok {
			f = Exists{Subquery: ex.Subquery.Clone()}
		}
		out.Where[i] = f
	}
	if q.Vars != nil {
		out.Vars = make(map[string]ir.IRValue, len(q.Vars))
		for k, v := range q.Vars {
			out.Vars[k] = v
		}
	}
	return out
}
