package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

func TestSubscribe_InitialSnapshot(t *testing.T) {
	s := createTestStore(t)
	seedUsers(t, s)

	rec := newSnapshotRecorder()
	unsubscribe, err := s.Subscribe(
		usersQuery(query.Leaf{Attribute: "team", Op: query.OpEq, Value: ir.IRString("red")}),
		rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	rs := rec.next(t)
	assert.Equal(t, []string{"u1", "u3"}, rs.IDs())
	assert.Equal(t, 1, s.Subscriptions())
}

func TestSubscribe_LiveUpdates(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedUsers(t, s)

	rec := newSnapshotRecorder()
	unsubscribe, err := s.Subscribe(
		usersQuery(query.Leaf{Attribute: "team", Op: query.OpEq, Value: ir.IRString("red")}),
		rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()
	rec.next(t)

	require.NoError(t, s.Update(ctx, "users", "u2", ir.IRObject{"team": ir.IRString("red")}))
	assert.Equal(t, []string{"u1", "u2", "u3"}, rec.next(t).IDs())

	require.NoError(t, s.Delete(ctx, "users", "u1"))
	assert.Equal(t, []string{"u2", "u3"}, rec.next(t).IDs())

	// Writes to other collections do not refresh.
	_, err = s.Insert(ctx, "orders", "o1", ir.IRObject{"owner": ir.IRString("u2")})
	require.NoError(t, err)
	rec.none(t)
}

func TestSubscribe_ExistsCollectionTriggersRefresh(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedUsers(t, s)

	rec := newSnapshotRecorder()
	unsubscribe, err := s.Subscribe(usersQuery(query.Exists{Subquery: query.Query{
		Collection: "orders",
		Where: []query.Filter{
			query.Leaf{Attribute: "owner", Op: query.OpEq, Value: query.Placeholder("parent.id")},
		},
	}}), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	assert.Empty(t, rec.next(t).Results)

	_, err = s.Insert(ctx, "orders", "o1", ir.IRObject{"owner": ir.IRString("u2")})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, rec.next(t).IDs())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedUsers(t, s)

	rec := newSnapshotRecorder()
	unsubscribe, err := s.Subscribe(usersQuery(), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	rec.next(t)

	unsubscribe()
	unsubscribe() // idempotent
	assert.Equal(t, 0, s.Subscriptions())

	require.NoError(t, s.Update(ctx, "users", "u1", ir.IRObject{"age": ir.IRInt(99)}))
	rec.none(t)
}

func TestSubscribe_InvalidQuery(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Subscribe(query.Query{}, func(ir.ResultSet) {}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection is required")

	_, err = s.Subscribe(usersQuery(), nil, nil)
	require.Error(t, err)
}

func TestSubscribe_RefreshErrorReported(t *testing.T) {
	s := createTestStore(t)
	seedUsers(t, s)

	rec := newSnapshotRecorder()
	unsubscribe, err := s.Subscribe(usersQuery(), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()
	rec.next(t)

	// Close the database underneath the dispatcher to force a refresh error.
	require.NoError(t, s.db.Close())
	s.notify("users")

	select {
	case err := <-rec.errors:
		assert.Contains(t, err.Error(), "database is closed")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscription error")
	}
	assert.Equal(t, 1, s.Subscriptions(), "errors keep the subscription")
}

func TestSubscribe_CallbacksSerialized(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedUsers(t, s)

	var inFlight, overlaps atomic.Int32
	done := make(chan struct{}, 64)
	unsubscribe, err := s.Subscribe(usersQuery(), func(ir.ResultSet) {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		done <- struct{}{}
	}, nil)
	require.NoError(t, err)
	defer unsubscribe()
	<-done

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Update(ctx, "users", "u1", ir.IRObject{"age": ir.IRInt(int64(100 + i))}))
	}

	// At least one refresh follows the burst; batches may coalesce.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}
	assert.Equal(t, int32(0), overlaps.Load())
}

func TestSubscribe_CloseStopsDispatcher(t *testing.T) {
	s := createTestStore(t)

	rec := newSnapshotRecorder()
	_, err := s.Subscribe(usersQuery(), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	rec.next(t)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Subscriptions())

	_, err = s.Subscribe(usersQuery(), rec.onSnapshot, rec.onError)
	assert.True(t, errors.Is(err, ErrClosed))
}
