package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewcache/internal/ir"
)

func TestHolds(t *testing.T) {
	tests := []struct {
		name  string
		op    Operator
		attr  ir.IRValue
		bound ir.IRValue
		want  bool
	}{
		{"eq", OpEq, ir.IRInt(20), ir.IRInt(20), true},
		{"eq kind mismatch", OpEq, ir.IRString("20"), ir.IRInt(20), false},
		{"ne", OpNe, ir.IRInt(10), ir.IRInt(20), true},
		{"ne missing", OpNe, ir.IRNull{}, ir.IRInt(20), true},
		{"lt", OpLt, ir.IRInt(10), ir.IRInt(20), true},
		{"lt equal", OpLt, ir.IRInt(20), ir.IRInt(20), false},
		{"lte equal", OpLte, ir.IRInt(20), ir.IRInt(20), true},
		{"gt", OpGt, ir.IRInt(30), ir.IRInt(20), true},
		{"gte", OpGte, ir.IRInt(19), ir.IRInt(20), false},
		{"lt missing never matches", OpLt, ir.IRNull{}, ir.IRInt(20), false},
		{"gt other kind never matches", OpGt, ir.IRString("z"), ir.IRInt(20), false},
		{"string range", OpLt, ir.IRString("apple"), ir.IRString("banana"), true},
		{"in", OpIn, ir.IRString("b"), ir.IRArray{ir.IRString("a"), ir.IRString("b")}, true},
		{"nin", OpNotIn, ir.IRString("c"), ir.IRArray{ir.IRString("a"), ir.IRString("b")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Holds(tt.op, tt.attr, tt.bound)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHoldsErrors(t *testing.T) {
	_, err := Holds(OpIn, ir.IRInt(1), ir.IRInt(1))
	assert.Error(t, err)

	_, err = Holds(Operator("like"), ir.IRInt(1), ir.IRInt(1))
	assert.True(t, errors.Is(err, ErrUnknownOperator))
}

func TestMatchWithVars(t *testing.T) {
	e := ir.Entity{ID: "u1", Attributes: ir.IRObject{"age": ir.IRInt(25), "address": ir.IRObject{"city": ir.IRString("oslo")}}}
	filters := []Filter{
		Leaf{Attribute: "age", Op: OpGte, Value: Placeholder("minAge")},
		Leaf{Attribute: "address.city", Op: OpEq, Value: ir.IRString("oslo")},
	}

	ok, err := Match(e, filters, map[string]ir.IRValue{"minAge": ir.IRInt(20)}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(e, filters, map[string]ir.IRValue{"minAge": ir.IRInt(30)}, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Match(e, filters, nil, nil)
	assert.True(t, errors.Is(err, ErrUnboundVariable))
}

func TestMatchExists(t *testing.T) {
	e := ir.Entity{ID: "u1", Attributes: ir.IRObject{}}
	filters := []Filter{Exists{Subquery: Query{Collection: "posts"}}}

	var gotParent ir.Entity
	ok, err := Match(e, filters, nil, func(sub Query, parent ir.Entity) (bool, error) {
		gotParent = parent
		return sub.Collection == "posts", nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", gotParent.ID)

	_, err = Match(e, filters, nil, nil)
	assert.Error(t, err)
}

func TestSubstitute(t *testing.T) {
	q := sampleQuery()
	q.Vars = map[string]ir.IRValue{"minAge": ir.IRInt(18), "name": ir.IRString("bob")}

	sub, err := Substitute(q)
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(18), sub.Where[1].(Leaf).Value)
	assert.Equal(t, ir.IRString("bob"), sub.Where[3].(Leaf).Value)
	assert.Empty(t, VariableFilters(sub))

	// Exists sub-queries keep their parent-scope placeholders.
	assert.Equal(t, Placeholder("parent.id"), sub.Where[2].(Exists).Subquery.Where[0].(Leaf).Value)
	// The original is untouched.
	assert.Equal(t, Placeholder("minAge"), q.Where[1].(Leaf).Value)

	delete(q.Vars, "name")
	_, err = Substitute(q)
	assert.True(t, errors.Is(err, ErrUnboundVariable))
}
