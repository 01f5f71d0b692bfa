package viewcache

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

func TestViewQueryToID_Golden(t *testing.T) {
	views, _ := Decompose(query.Query{
		Collection: "users",
		Where: []query.Filter{
			query.Leaf{Attribute: "team", Op: query.OpEq, Value: ir.IRString("red")},
			variableLeaf("age", query.OpGte, "min"),
		},
		Vars: map[string]ir.IRValue{"min": ir.IRInt(20)},
	})

	id, err := ViewQueryToID(views[0])
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "view_id", []byte(id))
}

func TestViewQueryToID_ConstructionIndependent(t *testing.T) {
	// Built literally.
	a := query.Query{
		Collection: "users",
		Where: []query.Filter{
			query.Leaf{Attribute: "address", Op: query.OpEq, Value: ir.IRObject{
				"city": ir.IRString("paris"),
				"zip":  ir.IRInt(75),
			}},
		},
		Order: []query.OrderClause{{Attribute: "age", Direction: query.Asc}},
	}

	// Built incrementally, with map keys inserted in another order, an
	// implicit ASC direction and bindings that are not part of identity.
	addr := ir.IRObject{}
	addr["zip"] = ir.IRInt(75)
	addr["city"] = ir.IRString("paris")
	b := query.Query{Collection: "users", Vars: map[string]ir.IRValue{"x": ir.IRInt(1)}}
	b.Where = append(b.Where, query.Leaf{Attribute: "address", Op: query.OpEq, Value: addr})
	b.Order = append(b.Order, query.OrderClause{Attribute: "age"})

	idA, err := ViewQueryToID(a)
	require.NoError(t, err)
	idB, err := ViewQueryToID(b)
	require.NoError(t, err)
	assert.Equal(t, idA, idB)

	again, err := ViewQueryToID(a)
	require.NoError(t, err)
	assert.Equal(t, idA, again, "hash is deterministic")
}

func TestViewQueryToID_Distinguishes(t *testing.T) {
	base := query.Query{
		Collection: "users",
		Where:      []query.Filter{query.Leaf{Attribute: "team", Op: query.OpEq, Value: ir.IRString("red")}},
		Order: []query.OrderClause{
			{Attribute: "age", Direction: query.Asc},
			{Attribute: "name", Direction: query.Asc},
		},
	}
	baseID, err := ViewQueryToID(base)
	require.NoError(t, err)

	variants := map[string]func(q *query.Query){
		"collection": func(q *query.Query) { q.Collection = "admins" },
		"filter value": func(q *query.Query) {
			q.Where = []query.Filter{query.Leaf{Attribute: "team", Op: query.OpEq, Value: ir.IRString("blue")}}
		},
		"null value": func(q *query.Query) {
			q.Where = []query.Filter{query.Leaf{Attribute: "team", Op: query.OpEq, Value: ir.IRNull{}}}
		},
		"select": func(q *query.Query) { q.Select = []string{"name"} },
		"order sequence": func(q *query.Query) {
			q.Order = []query.OrderClause{
				{Attribute: "name", Direction: query.Asc},
				{Attribute: "age", Direction: query.Asc},
			}
		},
		"order direction": func(q *query.Query) {
			q.Order = []query.OrderClause{
				{Attribute: "age", Direction: query.Desc},
				{Attribute: "name", Direction: query.Asc},
			}
		},
	}

	seen := map[ViewID]string{baseID: "base"}
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			q := base.Clone()
			mutate(&q)
			id, err := ViewQueryToID(q)
			require.NoError(t, err)
			assert.NotEqual(t, baseID, id)
			if prev, ok := seen[id]; ok {
				t.Fatalf("%s collides with %s", name, prev)
			}
			seen[id] = name
		})
	}
}

func TestViewQueryToID_NormalizationFormsDiffer(t *testing.T) {
	composed := query.Query{
		Collection: "users",
		Where:      []query.Filter{query.Leaf{Attribute: "name", Op: query.OpEq, Value: ir.IRString("Ren\u00e9e")}},
	}
	decomposed := query.Query{
		Collection: "users",
		Where:      []query.Filter{query.Leaf{Attribute: "name", Op: query.OpEq, Value: ir.IRString("Rene\u0301e")}},
	}

	idC, err := ViewQueryToID(composed)
	require.NoError(t, err)
	idD, err := ViewQueryToID(decomposed)
	require.NoError(t, err)
	assert.NotEqual(t, idC, idD)
}
