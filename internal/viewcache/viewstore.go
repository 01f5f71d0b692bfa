package viewcache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// Subscriber is the live query source views are materialized from.
//
// Subscribe must deliver a full, sorted snapshot of q soon after it returns
// and again whenever the result may have changed. Callbacks for one
// subscription must not run concurrently. The returned func ends the
// subscription. *store.Store implements Subscriber.
type Subscriber interface {
	Subscribe(q query.Query, onSnapshot func(ir.ResultSet), onError func(error)) (func(), error)
}

// View is an immutable snapshot of a materialized view query.
//
// Results are ordered by Query.Order with the entity id as final tie-break.
// Version counts the snapshots applied to the entry; a View held by a caller
// goes stale once a later snapshot arrives. Views handed out by ViewStore are
// copies the caller owns.
type View struct {
	ID    ViewID
	Query query.Query
	ir.ResultSet
	Version uint64
}

// Clone returns a deep copy of v.
func (v View) Clone() View {
	return View{
		ID:        v.ID,
		Query:     v.Query.Clone(),
		ResultSet: v.ResultSet.Clone(),
		Version:   v.Version,
	}
}

// entry is one cache slot. It is written only by its subscription callbacks
// and by Close, always under the ViewStore mutex.
type entry struct {
	id    ViewID
	query query.Query

	// ready is closed exactly once: on the first snapshot, or on failure
	// before it. Later snapshots never signal it.
	ready chan struct{}

	materialized bool
	view         View
	err          error
	unsubscribe  func()
}

// ViewStore owns the cache of materialized views, keyed by ViewID.
//
// Each entry is created on first use, materialized by a subscription that
// stays open, and overwritten in place by every later snapshot. Entries live
// until Close; there is no per-entry eviction. Safe for concurrent use.
type ViewStore struct {
	sub     Subscriber
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	entries map[ViewID]*entry
	closed  bool
}

// Option configures a ViewStore.
type Option func(*ViewStore)

// WithLogger sets the logger for view lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(vs *ViewStore) {
		if logger != nil {
			vs.logger = logger
		}
	}
}

// WithMetrics sets the collectors updated by the store and its resolvers.
func WithMetrics(m *Metrics) Option {
	return func(vs *ViewStore) {
		if m != nil {
			vs.metrics = m
		}
	}
}

// NewViewStore creates an empty cache backed by sub.
func NewViewStore(sub Subscriber, opts ...Option) *ViewStore {
	vs := &ViewStore{
		sub:     sub,
		logger:  slog.Default(),
		metrics: NewMetrics(nil),
		entries: make(map[ViewID]*entry),
	}
	for _, opt := range opts {
		opt(vs)
	}
	return vs
}

// ResolveView returns the materialized view of vq.
//
// A materialized entry is returned without blocking. Otherwise the first
// caller subscribes and every caller waits for the first snapshot. A
// subscription error before that snapshot fails all waiters with the error
// unchanged and drops the entry, so a later call subscribes again.
//
// Cancelling ctx abandons the wait only: the subscription stays open and
// the entry still materializes.
func (vs *ViewStore) ResolveView(ctx context.Context, vq query.Query) (View, error) {
	view, err := vs.resolveView(ctx, vq)
	if err != nil {
		return View{}, err
	}
	return view.Clone(), nil
}

// resolveView is ResolveView without the copy. The returned view shares the
// cached snapshot and must not be modified.
func (vs *ViewStore) resolveView(ctx context.Context, vq query.Query) (View, error) {
	id, err := ViewQueryToID(vq)
	if err != nil {
		return View{}, err
	}

	vs.mu.Lock()
	if vs.closed {
		vs.mu.Unlock()
		return View{}, fmt.Errorf("view %s: %w", id, ErrClosed)
	}
	e, ok := vs.entries[id]
	if ok && e.materialized {
		view := e.view
		vs.mu.Unlock()
		vs.metrics.ViewRequests.WithLabelValues("hit").Inc()
		return view, nil
	}
	created := !ok
	if created {
		e = newEntry(id, vq)
		vs.entries[id] = e
	}
	vs.mu.Unlock()

	if created {
		vs.metrics.ViewRequests.WithLabelValues("miss").Inc()
		vs.open(e)
	} else {
		vs.metrics.ViewRequests.WithLabelValues("wait").Inc()
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	if e.err != nil {
		return View{}, e.err
	}
	return e.view, nil
}

// CreateView ensures vq is materialized in the cache, waiting for its first
// snapshot.
func (vs *ViewStore) CreateView(ctx context.Context, vq query.Query) error {
	_, err := vs.resolveView(ctx, vq)
	return err
}

// Lookup returns the current snapshot of a materialized view.
func (vs *ViewStore) Lookup(id ViewID) (View, bool) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	e, ok := vs.entries[id]
	if !ok || !e.materialized {
		return View{}, false
	}
	return e.view.Clone(), true
}

// Len returns the number of materialized views.
func (vs *ViewStore) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.materializedLocked()
}

// Close ends every subscription and empties the cache. Pending ResolveView
// calls fail with ErrClosed. Safe to call more than once.
func (vs *ViewStore) Close() {
	vs.mu.Lock()
	if vs.closed {
		vs.mu.Unlock()
		return
	}
	vs.closed = true

	var unsubscribes []func()
	for id, e := range vs.entries {
		if e.unsubscribe != nil {
			unsubscribes = append(unsubscribes, e.unsubscribe)
		}
		if !e.materialized {
			e.err = fmt.Errorf("view %s: %w", id, ErrClosed)
			close(e.ready)
		}
		delete(vs.entries, id)
	}
	vs.metrics.Views.Set(0)
	vs.mu.Unlock()

	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
	vs.logger.Debug("view store closed", "views", len(unsubscribes))
}

func newEntry(id ViewID, vq query.Query) *entry {
	e := &entry{
		id:    id,
		query: vq.Clone(),
		ready: make(chan struct{}),
	}
	e.query.Vars = nil
	return e
}

// open subscribes an entry. Snapshots may arrive before Subscribe returns.
func (vs *ViewStore) open(e *entry) {
	vs.logger.Debug("creating view",
		"view", e.id,
		"collection", e.query.Collection)

	unsubscribe, err := vs.sub.Subscribe(e.query,
		func(rs ir.ResultSet) { vs.applySnapshot(e, rs) },
		func(err error) { vs.fail(e, err) })
	if err != nil {
		vs.fail(e, err)
		return
	}

	vs.mu.Lock()
	if vs.entries[e.id] == e {
		e.unsubscribe = unsubscribe
		unsubscribe = nil
	}
	vs.mu.Unlock()

	// The entry failed or the store closed while subscribing.
	if unsubscribe != nil {
		unsubscribe()
	}
}

// applySnapshot overwrites the entry with a new snapshot. The first snapshot
// releases waiters.
func (vs *ViewStore) applySnapshot(e *entry, rs ir.ResultSet) {
	rs = sortedSnapshot(rs, e.query.Order, vs.logger)

	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.entries[e.id] != e {
		return
	}

	e.view = View{
		ID:        e.id,
		Query:     e.query,
		ResultSet: rs,
		Version:   e.view.Version + 1,
	}
	vs.metrics.Snapshots.Inc()

	if !e.materialized {
		e.materialized = true
		close(e.ready)
		vs.metrics.Views.Set(float64(vs.materializedLocked()))
		vs.logger.Info("view materialized",
			"view", e.id,
			"collection", e.query.Collection,
			"results", len(rs.Results))
		return
	}

	vs.logger.Debug("view refreshed",
		"view", e.id,
		"version", e.view.Version,
		"results", len(rs.Results))
}

// fail handles a subscription error. Before the first snapshot the entry is
// dropped and waiters receive err unchanged. Afterwards the last good
// snapshot keeps serving.
func (vs *ViewStore) fail(e *entry, err error) {
	vs.metrics.SubscriptionErrors.Inc()

	vs.mu.Lock()
	if vs.entries[e.id] != e {
		vs.mu.Unlock()
		return
	}
	if e.materialized {
		vs.mu.Unlock()
		vs.logger.Warn("view refresh failed, serving last snapshot",
			"view", e.id,
			"version", e.view.Version,
			"error", err)
		return
	}

	e.err = err
	delete(vs.entries, e.id)
	close(e.ready)
	unsubscribe := e.unsubscribe
	vs.mu.Unlock()

	vs.logger.Warn("view creation failed",
		"view", e.id,
		"collection", e.query.Collection,
		"error", err)

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (vs *ViewStore) materializedLocked() int {
	n := 0
	for _, e := range vs.entries {
		if e.materialized {
			n++
		}
	}
	return n
}

// sortedSnapshot returns rs with Results in view order. Subscribers already
// deliver sorted snapshots; an unsorted one is sorted on a copy.
func sortedSnapshot(rs ir.ResultSet, order []query.OrderClause, logger *slog.Logger) ir.ResultSet {
	cmp := func(a, b ir.Entity) int { return query.CompareEntities(a, b, order) }
	if slices.IsSortedFunc(rs.Results, cmp) {
		return rs
	}

	logger.Warn("unsorted snapshot, sorting", "results", len(rs.Results))
	sorted := slices.Clone(rs.Results)
	slices.SortFunc(sorted, cmp)
	return ir.ResultSet{Results: sorted, Triples: rs.Triples}
}
