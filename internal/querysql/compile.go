package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// scanColumns are the triple columns every compiled scan returns, in order.
const scanColumns = "entity_id, attribute, value, seq, expired"

// stableOrderKey is appended to every scan so rows come back grouped by
// entity with each attribute's history in sequence order.
const stableOrderKey = "entity_id ASC COLLATE BINARY, attribute ASC COLLATE BINARY, seq ASC"

// SQLCompiler compiles queries to parameterized SQL over the triples table.
//
// The compiled SQL is a pre-filter: it returns every triple of every entity
// that could match, and the store applies the full filter semantics in Go.
// A pushed-down predicate must therefore never exclude an entity the Go
// matcher would accept.
//
// All values are parameterized, never interpolated.
type SQLCompiler struct {
	// Pushdown enables narrowing the scan with top-level "=" filters.
	Pushdown bool
}

// NewSQLCompiler creates a new SQLCompiler with pushdown enabled.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Pushdown: true}
}

// Compile converts a query into a triple scan of its collection.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q query.Query) (string, []any, error) {
	if q.Collection == "" {
		return "", nil, fmt.Errorf("cannot compile query without collection")
	}

	var where []string
	params := []any{q.Collection}
	where = append(where, "collection = ?")

	if c.Pushdown {
		for _, f := range q.Where {
			leaf, ok := f.(query.Leaf)
			if !ok || leaf.Op != query.OpEq {
				continue
			}
			sql, p, ok, err := c.compileEquals(q, leaf)
			if err != nil {
				return "", nil, fmt.Errorf("compile filter %s: %w", leaf, err)
			}
			if !ok {
				continue
			}
			where = append(where, sql)
			params = append(params, p...)
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM triples WHERE %s ORDER BY %s",
		scanColumns,
		strings.Join(where, " AND "),
		stableOrderKey)

	return sql, params, nil
}

// CompileEntity returns the triple scan for a single entity.
func (c *SQLCompiler) CompileEntity(collection, id string) (string, []any) {
	sql := fmt.Sprintf("SELECT %s FROM triples WHERE collection = ? AND entity_id = ? ORDER BY %s",
		scanColumns, stableOrderKey)
	return sql, []any{collection, id}
}

// compileEquals pushes down an equality filter when its value resolves to a
// non-null scalar or array. Returns ok=false when the filter must be left to
// the Go matcher.
func (c *SQLCompiler) compileEquals(q query.Query, leaf query.Leaf) (string, []any, bool, error) {
	value := leaf.Value
	if name, isVar := query.PlaceholderName(value); isVar {
		if strings.HasPrefix(name, query.ParentScope) {
			return "", nil, false, nil
		}
		bound, ok := q.Vars[name]
		if !ok {
			return "", nil, false, nil
		}
		value = bound
	}

	if leaf.Attribute == ir.IDAttribute {
		id, ok := value.(ir.IRString)
		if !ok {
			return "", nil, false, nil
		}
		return "entity_id = ?", []any{string(id)}, true, nil
	}

	param, ok, err := valueToParam(value)
	if err != nil || !ok {
		return "", nil, false, err
	}

	sql := "entity_id IN (SELECT entity_id FROM triples WHERE collection = ? AND attribute = ? AND value = ?)"
	return sql, []any{q.Collection, leaf.Attribute, param}, true, nil
}

// valueToParam encodes a value the way the store writes the value column.
// Nulls and objects are never stored as a single triple value, so they
// cannot be pushed down.
func valueToParam(v ir.IRValue) (any, bool, error) {
	switch v.(type) {
	case ir.IRNull, ir.IRObject, nil:
		return nil, false, nil
	}
	encoded, err := EncodeValue(v)
	if err != nil {
		return nil, false, err
	}
	return encoded, true, nil
}

// EncodeValue returns the value column encoding: canonical JSON.
func EncodeValue(v ir.IRValue) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(data), nil
}

// DecodeValue parses a value column back into an IRValue.
func DecodeValue(s string) (ir.IRValue, error) {
	v, err := ir.UnmarshalIRValue([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}
