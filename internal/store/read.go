package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// Fetch runs q against the current state of the store.
//
// Every filter is evaluated, including Exists sub-queries, whose
// "$parent.<path>" placeholders bind to the enclosing entity. Results are
// sorted by q.Order with the entity id as final tie-break. Entities are
// returned whole; Select is left to the caller.
func (s *Store) Fetch(ctx context.Context, q query.Query) (ir.ResultSet, error) {
	if s.closed() {
		return ir.ResultSet{}, ErrClosed
	}
	if err := query.Validate(q).Err(); err != nil {
		return ir.ResultSet{}, fmt.Errorf("fetch: %w", err)
	}

	return s.evaluate(ctx, q)
}

// evaluate is Fetch without the closed and validation checks. The
// dispatcher uses it for subscriptions already validated by Subscribe.
func (s *Store) evaluate(ctx context.Context, q query.Query) (ir.ResultSet, error) {
	candidates, sources, err := s.scan(ctx, q)
	if err != nil {
		return ir.ResultSet{}, fmt.Errorf("fetch %s: %w", q.Collection, err)
	}

	exists := s.existsFunc(ctx, q.Vars)
	rs := ir.NewResultSet()
	for _, e := range candidates {
		ok, err := query.Match(e, q.Where, q.Vars, exists)
		if err != nil {
			return ir.ResultSet{}, fmt.Errorf("fetch %s: entity %s: %w", q.Collection, e.ID, err)
		}
		if ok {
			rs.Results = append(rs.Results, e)
			rs.Triples[e.ID] = sources[e.ID]
		}
	}

	query.SortEntities(rs.Results, q.Order)
	return rs, nil
}

// Get returns one live entity.
func (s *Store) Get(ctx context.Context, collection, id string) (ir.Entity, bool, error) {
	rs, err := s.Fetch(ctx, query.Query{
		Collection: collection,
		Where: []query.Filter{
			query.Leaf{Attribute: ir.IDAttribute, Op: query.OpEq, Value: ir.IRString(id)},
		},
	})
	if err != nil {
		return ir.Entity{}, false, err
	}
	if len(rs.Results) == 0 {
		return ir.Entity{}, false, nil
	}
	return rs.Results[0], true, nil
}

// History returns every triple ever written for an entity, expired ones
// included, ordered by attribute then seq.
func (s *Store) History(ctx context.Context, collection, id string) ([]ir.Triple, error) {
	if s.closed() {
		return nil, ErrClosed
	}
	sqlText, params := s.compiler.CompileEntity(collection, id)
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	triples, err := scanTriples(rows, collection)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return triples, nil
}

// scan loads the candidate entities of q's collection. The compiled SQL may
// narrow the scan but never drops an entity that could match.
func (s *Store) scan(ctx context.Context, q query.Query) ([]ir.Entity, map[string][]ir.Triple, error) {
	sqlText, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, nil, fmt.Errorf("query triples: %w", err)
	}
	defer rows.Close()

	triples, err := scanTriples(rows, q.Collection)
	if err != nil {
		return nil, nil, err
	}

	entities, sources := reconstruct(triples)
	return entities, sources, nil
}

// existsFunc evaluates Exists sub-queries for one Fetch. Each sub-query
// collection is loaded once and reused for every enclosing entity.
func (s *Store) existsFunc(ctx context.Context, vars map[string]ir.IRValue) query.ExistsFunc {
	loaded := make(map[string][]ir.Entity)

	var exists query.ExistsFunc
	exists = func(sub query.Query, parent ir.Entity) (bool, error) {
		candidates, ok := loaded[sub.Collection]
		if !ok {
			all, _, err := s.scan(ctx, query.Query{Collection: sub.Collection})
			if err != nil {
				return false, fmt.Errorf("exists %s: %w", sub.Collection, err)
			}
			loaded[sub.Collection] = all
			candidates = all
		}

		scoped := bindParent(sub, parent, vars)
		for _, c := range candidates {
			ok, err := query.Match(c, sub.Where, scoped, exists)
			if err != nil {
				return false, fmt.Errorf("exists %s: %w", sub.Collection, err)
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return exists
}

// bindParent extends vars with the "$parent.<path>" placeholders of sub's
// own leaf filters, resolved against parent. Missing paths bind to null.
func bindParent(sub query.Query, parent ir.Entity, vars map[string]ir.IRValue) map[string]ir.IRValue {
	scoped := make(map[string]ir.IRValue, len(vars))
	for k, v := range vars {
		scoped[k] = v
	}
	for _, f := range sub.Where {
		leaf, ok := f.(query.Leaf)
		if !ok {
			continue
		}
		name, ok := query.PlaceholderName(leaf.Value)
		if !ok || !strings.HasPrefix(name, query.ParentScope) {
			continue
		}
		value, _ := parent.Get(strings.TrimPrefix(name, query.ParentScope))
		scoped[name] = value
	}
	return scoped
}
