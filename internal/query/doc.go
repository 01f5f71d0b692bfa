// Package query provides the query intermediate representation (IR) that
// the view cache and the triple store share.
//
// ARCHITECTURE:
//
//	[YAML / Go callers] → [Query IR] → [viewcache: eligibility, decomposition, range search]
//	                                  → [store: full-scan evaluation, subscriptions]
//
// SEALED INTERFACES:
//
// Filter is a sealed interface using the marker method pattern. Only Leaf
// and Exists implement it, so consumers pattern-match with an exhaustive type
// switch instead of probing a filter's shape:
//
//	switch f := filter.(type) {
//	case Leaf:
//	    // attribute OP value
//	case Exists:
//	    // nested sub-query, opaque to the view cache
//	}
//
// PLACEHOLDERS:
//
// A leaf whose value is an ir.IRString starting with "$" is a variable
// filter. "$minAge" is bound by Query.Vars["minAge"]. Inside an Exists
// sub-query, "$parent.<path>" refers to the enclosing entity.
//
// DETERMINISM:
//
// CanonicalForm renders a query (without Vars) into IR values so that the
// view cache can derive a content-addressed identity from it. All literal
// values are ir.IRValue types - no floats.
package query
