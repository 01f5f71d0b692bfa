package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/viewcache/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedUsers inserts a small users collection with fixed ids.
func seedUsers(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	users := []struct {
		id    string
		attrs ir.IRObject
	}{
		{"u1", ir.IRObject{"name": ir.IRString("alice"), "age": ir.IRInt(30), "team": ir.IRString("red")}},
		{"u2", ir.IRObject{"name": ir.IRString("bob"), "age": ir.IRInt(20), "team": ir.IRString("blue")}},
		{"u3", ir.IRObject{"name": ir.IRString("carol"), "age": ir.IRInt(20), "team": ir.IRString("red")}},
		{"u4", ir.IRObject{"name": ir.IRString("dave")}},
	}
	for _, u := range users {
		_, err := s.Insert(ctx, "users", u.id, u.attrs)
		require.NoError(t, err)
	}
}

// snapshotRecorder collects subscription callbacks on channels.
type snapshotRecorder struct {
	snapshots chan ir.ResultSet
	errors    chan error
}

func newSnapshotRecorder() *snapshotRecorder {
	return &snapshotRecorder{
		snapshots: make(chan ir.ResultSet, 16),
		errors:    make(chan error, 16),
	}
}

func (r *snapshotRecorder) onSnapshot(rs ir.ResultSet) { r.snapshots <- rs }
func (r *snapshotRecorder) onError(err error)          { r.errors <- err }

func (r *snapshotRecorder) next(t *testing.T) ir.ResultSet {
	t.Helper()
	select {
	case rs := <-r.snapshots:
		return rs
	case err := <-r.errors:
		t.Fatalf("unexpected subscription error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return ir.ResultSet{}
}

func (r *snapshotRecorder) none(t *testing.T) {
	t.Helper()
	select {
	case rs := <-r.snapshots:
		t.Fatalf("unexpected snapshot: %v", rs.IDs())
	case <-time.After(50 * time.Millisecond):
	}
}
