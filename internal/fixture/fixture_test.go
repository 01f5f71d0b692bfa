package fixture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewcache/internal/ir"
)

type insertCall struct {
	collection string
	id         string
	attrs      ir.IRObject
}

type recordingInserter struct {
	calls []insertCall
	err   error
}

func (r *recordingInserter) Insert(_ context.Context, collection, id string, attrs ir.IRObject) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.calls = append(r.calls, insertCall{collection, id, attrs})
	return id, nil
}

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture("testdata/users.yaml")
	require.NoError(t, err)
	require.Len(t, f.Collections["users"], 4)
	require.Len(t, f.Collections["posts"], 2)

	dst := &recordingInserter{}
	n, err := f.Apply(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	// Collections apply in name order, records in file order.
	assert.Equal(t, "posts", dst.calls[0].collection)
	assert.Equal(t, "p1", dst.calls[0].id)
	assert.Equal(t, "users", dst.calls[2].collection)
	assert.Equal(t, "u1", dst.calls[2].id)

	carol := dst.calls[4]
	assert.Equal(t, "u3", carol.id)
	assert.Equal(t, ir.IRObject{
		"name":    ir.IRString("carol"),
		"age":     ir.IRInt(20),
		"team":    ir.IRString("red"),
		"address": ir.IRObject{"city": ir.IRString("paris")},
	}, carol.attrs)
	assert.NotContains(t, carol.attrs, "id")
}

func TestRecordEntity_GeneratedID(t *testing.T) {
	id, attrs, err := Record{"name": "eve"}.Entity()
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, ir.IRObject{"name": ir.IRString("eve")}, attrs)
}

func TestParseFixture_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "collection:\n  users: []\n", "failed to parse YAML"},
		{"empty", "collections: {}\n", "no collections"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApply_Errors(t *testing.T) {
	t.Run("float attribute", func(t *testing.T) {
		f, err := ParseFixture([]byte("collections:\n  users:\n    - id: u1\n      score: 1.5\n"))
		require.NoError(t, err)
		_, err = f.Apply(context.Background(), &recordingInserter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "users[0]")
		assert.Contains(t, err.Error(), "floats are forbidden")
	})

	t.Run("non-string id", func(t *testing.T) {
		f, err := ParseFixture([]byte("collections:\n  users:\n    - id: 7\n"))
		require.NoError(t, err)
		_, err = f.Apply(context.Background(), &recordingInserter{})
		assert.ErrorContains(t, err, "id must be a string")
	})

	t.Run("insert failure", func(t *testing.T) {
		boom := errors.New("boom")
		f, err := ParseFixture([]byte("collections:\n  users:\n    - id: u1\n"))
		require.NoError(t, err)
		n, err := f.Apply(context.Background(), &recordingInserter{err: boom})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, n)
	})
}
