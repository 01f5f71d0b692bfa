package query

import (
	"slices"
	"strings"

	"github.com/roach88/viewcache/internal/ir"
)

// CompareEntities orders a and b by the order clauses, breaking ties on the
// entity id (byte order). The tie-break makes the order total, which range
// search over runs of equal keys depends on.
func CompareEntities(a, b ir.Entity, order []OrderClause) int {
	for _, clause := range order {
		av, _ := a.Get(clause.Attribute)
		bv, _ := b.Get(clause.Attribute)
		c := ir.Compare(av, bv)
		if clause.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(a.ID, b.ID)
}

// SortEntities sorts entities in place by order with the id tie-break.
func SortEntities(entities []ir.Entity, order []OrderClause) {
	slices.SortFunc(entities, func(a, b ir.Entity) int {
		return CompareEntities(a, b, order)
	})
}
