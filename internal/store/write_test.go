package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewcache/internal/ir"
)

func TestInsert_AndGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.Insert(ctx, "users", "u1", ir.IRObject{
		"name": ir.IRString("alice"),
		"tags": ir.IRArray{ir.IRString("a"), ir.IRString("b")},
		"address": ir.IRObject{
			"city": ir.IRString("paris"),
			"geo":  ir.IRObject{"zone": ir.IRInt(7)},
		},
		"prefs": ir.IRObject{},
		"bio":   ir.IRNull{},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	e, ok, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{
		"name": ir.IRString("alice"),
		"tags": ir.IRArray{ir.IRString("a"), ir.IRString("b")},
		"address": ir.IRObject{
			"city": ir.IRString("paris"),
			"geo":  ir.IRObject{"zone": ir.IRInt(7)},
		},
		"prefs": ir.IRObject{},
	}, e.Attributes)

	history, err := s.History(ctx, "users", "u1")
	require.NoError(t, err)
	attrs := make([]string, len(history))
	for i, tr := range history {
		attrs[i] = tr.Attribute
		assert.Equal(t, int64(1), tr.Seq, "one write, one seq")
	}
	assert.Equal(t, []string{"address.city", "address.geo.zone", "id", "name", "prefs", "tags"}, attrs)
}

func TestInsert_GeneratesID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("gen-1")))

	id, err := s.Insert(ctx, "users", "", ir.IRObject{"name": ir.IRString("x")})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", id)

	_, ok, err := s.Get(ctx, "users", "gen-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInsert_EmptyAttributes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", nil)
	require.NoError(t, err)

	e, ok, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, e.Attributes)
}

func TestInsert_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", ir.IRObject{})
	require.NoError(t, err)

	_, err = s.Insert(ctx, "users", "u1", ir.IRObject{})
	require.Error(t, err)
	assert.True(t, IsAlreadyExists(err))

	// Same id in another collection is a different entity.
	_, err = s.Insert(ctx, "orders", "u1", ir.IRObject{})
	require.NoError(t, err)
}

func TestInsert_InvalidAttributes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	tests := []struct {
		name  string
		attrs ir.IRObject
	}{
		{"reserved id", ir.IRObject{"id": ir.IRString("x")}},
		{"dotted name", ir.IRObject{"a.b": ir.IRInt(1)}},
		{"empty name", ir.IRObject{"": ir.IRInt(1)}},
		{"nested dotted name", ir.IRObject{"a": ir.IRObject{"b.c": ir.IRInt(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Insert(ctx, "users", "u1", tt.attrs)
			require.Error(t, err)
			assert.True(t, IsInvalidAttribute(err))
		})
	}
}

func TestInsert_RejectsMissingCollection(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Insert(context.Background(), "", "u1", ir.IRObject{})
	require.Error(t, err)
}

func TestUpdate_Merge(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", ir.IRObject{
		"name":    ir.IRString("alice"),
		"age":     ir.IRInt(30),
		"address": ir.IRObject{"city": ir.IRString("paris"), "zip": ir.IRInt(75)},
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "users", "u1", ir.IRObject{
		"age":     ir.IRInt(31),
		"address": ir.IRObject{"city": ir.IRString("lyon")},
	}))

	e, ok, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{
		"name":    ir.IRString("alice"),
		"age":     ir.IRInt(31),
		"address": ir.IRObject{"city": ir.IRString("lyon"), "zip": ir.IRInt(75)},
	}, e.Attributes)
}

func TestUpdate_NullRemovesSubtree(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", ir.IRObject{
		"name":    ir.IRString("alice"),
		"address": ir.IRObject{"city": ir.IRString("paris"), "zip": ir.IRInt(75)},
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "users", "u1", ir.IRObject{"address": ir.IRNull{}}))

	e, _, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"name": ir.IRString("alice")}, e.Attributes)
}

func TestUpdate_ScalarToRecord(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", ir.IRObject{"address": ir.IRString("somewhere")})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "users", "u1", ir.IRObject{
		"address": ir.IRObject{"city": ir.IRString("paris")},
	}))

	e, _, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"address": ir.IRObject{"city": ir.IRString("paris")}}, e.Attributes)

	require.NoError(t, s.Update(ctx, "users", "u1", ir.IRObject{"address": ir.IRString("back")}))

	e, _, err = s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"address": ir.IRString("back")}, e.Attributes)
}

func TestUpdate_NoChangeSkipsWrite(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", ir.IRObject{"age": ir.IRInt(30)})
	require.NoError(t, err)
	before := s.LastSeq()

	require.NoError(t, s.Update(ctx, "users", "u1", ir.IRObject{"age": ir.IRInt(30)}))
	assert.Equal(t, before, s.LastSeq())
}

func TestUpdate_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.Update(context.Background(), "users", "missing", ir.IRObject{"age": ir.IRInt(1)})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "id=missing")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", ir.IRObject{"age": ir.IRInt(30)})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "users", "u1"))

	_, ok, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Delete(ctx, "users", "u1")
	assert.True(t, IsNotFound(err))

	history, err := s.History(ctx, "users", "u1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "age", history[0].Attribute)
	assert.False(t, history[0].Expired)
	assert.Equal(t, "age", history[1].Attribute)
	assert.True(t, history[1].Expired)
	assert.Equal(t, int64(2), history[1].Seq)
	assert.Equal(t, ir.IRNull{}, history[1].Value)
	assert.Equal(t, "id", history[3].Attribute)
	assert.True(t, history[3].Expired)
}

func TestDelete_ThenReinsert(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Insert(ctx, "users", "u1", ir.IRObject{"age": ir.IRInt(30), "name": ir.IRString("a")})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "users", "u1"))

	_, err = s.Insert(ctx, "users", "u1", ir.IRObject{"age": ir.IRInt(5)})
	require.NoError(t, err)

	e, ok, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{"age": ir.IRInt(5)}, e.Attributes)
}
