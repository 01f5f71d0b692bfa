package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/viewcache/internal/ir"
)

func TestFilterSealed(t *testing.T) {
	var _ Filter = Leaf{}
	var _ Filter = Exists{}
}

func TestPlaceholderName(t *testing.T) {
	tests := []struct {
		name  string
		value ir.IRValue
		want  string
		ok    bool
	}{
		{"placeholder", ir.IRString("$minAge"), "minAge", true},
		{"parent scope", ir.IRString("$parent.id"), "parent.id", true},
		{"bare sigil", ir.IRString("$"), "", false},
		{"literal string", ir.IRString("minAge"), "", false},
		{"int", ir.IRInt(5), "", false},
		{"null", ir.IRNull{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PlaceholderName(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, ir.IRString("$x"), Placeholder("x"))
}

func TestOperatorValid(t *testing.T) {
	for _, op := range []Operator{OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpNotIn} {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, Operator("like").Valid())
}

func TestLeafString(t *testing.T) {
	assert.Equal(t, `age >= "$minAge"`, Leaf{Attribute: "age", Op: OpGte, Value: Placeholder("minAge")}.String())
	assert.Equal(t, `age = 20`, Leaf{Attribute: "age", Op: OpEq, Value: ir.IRInt(20)}.String())
}

func TestCloneIsIndependent(t *testing.T) {
	q := Query{
		Collection: "users",
		Where: []Filter{
			Leaf{Attribute: "age", Op: OpEq, Value: ir.IRInt(1)},
			Exists{Subquery: Query{Collection: "posts", Where: []Filter{Leaf{Attribute: "a", Op: OpEq, Value: ir.IRInt(1)}}}},
		},
		Select: []string{"name"},
		Order:  []OrderClause{{Attribute: "name", Direction: Asc}},
		Vars:   map[string]ir.IRValue{"x": ir.IRInt(1)},
	}

	c := q.Clone()
	c.Where[0] = Leaf{Attribute: "changed", Op: OpEq, Value: ir.IRInt(2)}
	c.Where[1].(Exists).Subquery.Where[0] = Leaf{Attribute: "changed", Op: OpEq, Value: ir.IRInt(2)}
	c.Select[0] = "changed"
	c.Order[0].Attribute = "changed"
	c.Vars["x"] = ir.IRInt(2)

	assert.Equal(t, "age", q.Where[0].(Leaf).Attribute)
	assert.Equal(t, "a", q.Where[1].(Exists).Subquery.Where[0].(Leaf).Attribute)
	assert.Equal(t, "name", q.Select[0])
	assert.Equal(t, "name", q.Order[0].Attribute)
	assert.Equal(t, ir.IRInt(1), q.Vars["x"])
}
