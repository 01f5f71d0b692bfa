package viewcache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// fakeSubscription is one recorded Subscribe call.
type fakeSubscription struct {
	query        query.Query
	onSnapshot   func(ir.ResultSet)
	onError      func(error)
	unsubscribed atomic.Bool
}

// fakeSubscriber records subscriptions and lets tests push snapshots.
// When source is set, each new subscription receives a sorted snapshot of
// the matching source entities before Subscribe returns.
type fakeSubscriber struct {
	mu           sync.Mutex
	subs         []*fakeSubscription
	subscribeErr error
	source       []ir.Entity
}

func (f *fakeSubscriber) Subscribe(q query.Query, onSnapshot func(ir.ResultSet), onError func(error)) (func(), error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}

	sub := &fakeSubscription{query: q, onSnapshot: onSnapshot, onError: onError}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	source := f.source
	f.mu.Unlock()

	if source != nil {
		onSnapshot(evaluate(q, source))
	}
	return func() { sub.unsubscribed.Store(true) }, nil
}

func (f *fakeSubscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeSubscriber) last() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

// evaluate filters and sorts entities the way the store does.
func evaluate(q query.Query, entities []ir.Entity) ir.ResultSet {
	rs := ir.NewResultSet()
	for _, e := range entities {
		ok, err := query.Match(e, q.Where, q.Vars, nil)
		if err != nil {
			panic(err)
		}
		if ok {
			rs.Results = append(rs.Results, e)
			rs.Triples[e.ID] = triplesFor(e)
		}
	}
	query.SortEntities(rs.Results, q.Order)
	return rs
}

func triplesFor(e ir.Entity) []ir.Triple {
	triples := []ir.Triple{{EntityID: e.ID, Attribute: ir.IDAttribute, Value: ir.IRString(e.ID), Seq: 1}}
	for _, k := range e.Attributes.SortedKeys() {
		triples = append(triples, ir.Triple{EntityID: e.ID, Attribute: k, Value: e.Attributes[k], Seq: 1})
	}
	return triples
}

// ageEntities builds entities u0..un with the given ages, already sorted
// when ages are ascending.
func ageEntities(ages ...int64) []ir.Entity {
	out := make([]ir.Entity, len(ages))
	for i, age := range ages {
		out[i] = ir.Entity{
			ID:         fmt.Sprintf("u%d", i),
			Attributes: ir.IRObject{"age": ir.IRInt(age)},
		}
	}
	return out
}

func ids(rs ir.ResultSet) []string {
	if len(rs.Results) == 0 {
		return nil
	}
	return rs.IDs()
}
