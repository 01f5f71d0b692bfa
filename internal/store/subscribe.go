package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// subscription is one live query.
type subscription struct {
	id          int64
	query       query.Query
	collections map[string]bool
	onSnapshot  func(ir.ResultSet)
	onError     func(error)
	active      atomic.Bool
}

// subscriptions is the registry of live queries.
type subscriptions struct {
	mu   sync.Mutex
	next int64
	byID map[int64]*subscription
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byID: make(map[int64]*subscription)}
}

func (r *subscriptions) add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	sub.id = r.next
	sub.active.Store(true)
	r.byID[sub.id] = sub
}

func (r *subscriptions) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.byID[id]; ok {
		sub.active.Store(false)
		delete(r.byID, id)
	}
}

func (r *subscriptions) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sub := range r.byID {
		sub.active.Store(false)
		delete(r.byID, id)
	}
}

func (r *subscriptions) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// targets resolves a batch of changes to the subscriptions that must be
// refreshed, each at most once, in subscription order.
func (r *subscriptions) targets(batch []change) []*subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	selected := make(map[int64]*subscription)
	for _, c := range batch {
		if c.subscription != 0 {
			if sub, ok := r.byID[c.subscription]; ok {
				selected[sub.id] = sub
			}
			continue
		}
		for id, sub := range r.byID {
			if sub.collections[c.collection] {
				selected[id] = sub
			}
		}
	}

	out := make([]*subscription, 0, len(selected))
	for _, sub := range selected {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Subscribe registers a live query. onSnapshot receives the full result set
// of q once right away and again after every write to a collection q reads,
// Exists sub-query collections included. onError, when non-nil, receives
// evaluation failures; the subscription stays registered.
//
// Callbacks run on the store's dispatcher goroutine and must not block on
// the store's own writes. The returned func unsubscribes and is idempotent;
// a callback already in flight may still complete.
func (s *Store) Subscribe(q query.Query, onSnapshot func(ir.ResultSet), onError func(error)) (func(), error) {
	if onSnapshot == nil {
		return nil, errors.New("subscribe: onSnapshot is required")
	}
	if s.closed() {
		return nil, ErrClosed
	}
	if err := query.Validate(q).Err(); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	collections := make(map[string]bool)
	for _, c := range query.Collections(q) {
		collections[c] = true
	}

	sub := &subscription{
		query:       q.Clone(),
		collections: collections,
		onSnapshot:  onSnapshot,
		onError:     onError,
	}
	s.subs.add(sub)

	if !s.changes.Enqueue(change{subscription: sub.id}) {
		s.subs.remove(sub.id)
		return nil, ErrClosed
	}

	s.logger.Debug("subscription added",
		"subscription", sub.id,
		"collection", q.Collection)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subs.remove(sub.id)
			s.logger.Debug("subscription removed", "subscription", sub.id)
		})
	}, nil
}

// Subscriptions returns the number of live subscriptions.
func (s *Store) Subscriptions() int {
	return s.subs.len()
}

// notify queues a refresh of every subscription reading collection.
func (s *Store) notify(collection string) {
	s.changes.Enqueue(change{collection: collection})
}

func (s *Store) closed() bool {
	return s.changes.Closed()
}

// dispatch is the single-writer loop that delivers snapshots.
func (s *Store) dispatch(ctx context.Context) {
	defer close(s.done)

	for {
		if batch := s.changes.Drain(); len(batch) > 0 {
			s.deliver(ctx, batch)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.changes.Wait():
			if !ok {
				return
			}
		}
	}
}

func (s *Store) deliver(ctx context.Context, batch []change) {
	for _, sub := range s.subs.targets(batch) {
		if !sub.active.Load() {
			continue
		}

		rs, err := s.evaluate(ctx, sub.query)
		if ctx.Err() != nil {
			return
		}
		if !sub.active.Load() {
			continue
		}

		if err != nil {
			s.logger.Warn("subscription refresh failed",
				"subscription", sub.id,
				"collection", sub.query.Collection,
				"error", err)
			if sub.onError != nil {
				sub.onError(err)
			}
			continue
		}

		s.logger.Debug("snapshot delivered",
			"subscription", sub.id,
			"collection", sub.query.Collection,
			"results", len(rs.Results))
		sub.onSnapshot(rs)
	}
}
