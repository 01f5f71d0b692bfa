package viewcache

import (
	"context"
	"log/slog"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// Span is a half-open index range [Start, End) of a view's results.
type Span struct {
	Start int
	End   int
}

// Len returns the number of indices in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Resolver answers eligible queries from the views of a ViewStore.
type Resolver struct {
	views  *ViewStore
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the resolver's logger. Defaults to the view
// store's logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver over views.
func NewResolver(views *ViewStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{views: views, logger: views.logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveFromCache answers q from its materialized view.
//
// q is decomposed, its view resolved (materialized on first use) and the
// first variable filter located by binary search over the view's order.
// Further variable filters are applied to the located entities. Results keep
// view order, are projected to q.Select, and carry each entity's source
// triples from the view. The result set is a copy the caller owns.
//
// q must satisfy CanCacheQuery; this is not re-checked. Subscription errors
// from the view store are returned unchanged.
func (r *Resolver) ResolveFromCache(ctx context.Context, q query.Query) (ir.ResultSet, error) {
	views, variables := Decompose(q)
	if len(variables) == 0 {
		return ir.ResultSet{}, &RangeError{Err: ErrNoVariableFilter}
	}

	indexed := variables[0]
	bound, err := bindVariable(indexed, q.Vars)
	if err != nil {
		r.record(indexed.Op, "error")
		return ir.ResultSet{}, err
	}
	compare, err := rangeComparator(indexed.Op, bound)
	if err != nil {
		r.record(indexed.Op, "error")
		return ir.ResultSet{}, &RangeError{Attribute: indexed.Attribute, Operator: indexed.Op, Err: err}
	}

	residual := make([]query.Leaf, 0, len(variables)-1)
	residualBounds := make([]ir.IRValue, 0, len(variables)-1)
	for _, leaf := range variables[1:] {
		v, err := bindVariable(leaf, q.Vars)
		if err != nil {
			r.record(indexed.Op, "error")
			return ir.ResultSet{}, err
		}
		residual = append(residual, leaf)
		residualBounds = append(residualBounds, v)
	}

	view, err := r.views.resolveView(ctx, views[0])
	if err != nil {
		r.record(indexed.Op, "error")
		return ir.ResultSet{}, err
	}

	spans := searchSpans(view.Results, indexed.Attribute, indexed.Op, compare)

	rs := ir.NewResultSet()
	for _, span := range spans {
		for _, e := range view.Results[span.Start:span.End] {
			ok, err := holdsAll(e, residual, residualBounds)
			if err != nil {
				r.record(indexed.Op, "error")
				return ir.ResultSet{}, err
			}
			if !ok {
				continue
			}
			rs.Results = append(rs.Results, e.Project(q.Select).Clone())
			if triples, ok := view.Triples[e.ID]; ok {
				rs.Triples[e.ID] = ir.CloneTriples(triples)
			}
		}
	}

	r.record(indexed.Op, "ok")
	r.logger.Debug("resolved from cache",
		"view", view.ID,
		"filter", indexed.String(),
		"view_results", len(view.Results),
		"results", len(rs.Results))

	return rs, nil
}

// Spans returns the spans of entities (sorted ascending by attribute) for
// which "attribute op bound" holds. Every operator but "!=" yields at most
// one span; "!=" yields the complement of the equal run, up to two spans.
func Spans(entities []ir.Entity, attribute string, op query.Operator, bound ir.IRValue) ([]Span, error) {
	compare, err := rangeComparator(op, bound)
	if err != nil {
		return nil, &RangeError{Attribute: attribute, Operator: op, Err: err}
	}
	return searchSpans(entities, attribute, op, compare), nil
}

func searchSpans(entities []ir.Entity, attribute string, op query.Operator, compare func(ir.IRValue) int) []Span {
	n := len(entities)
	cmp := func(i int) int {
		v, _ := entities[i].Get(attribute)
		return compare(v)
	}

	start, found := Search(n, cmp, SearchStart)
	if !found {
		if op == query.OpNe && n > 0 {
			return []Span{{Start: 0, End: n}}
		}
		return nil
	}
	end, _ := Search(n, cmp, SearchEnd)

	if op != query.OpNe {
		return []Span{{Start: start, End: end + 1}}
	}

	var spans []Span
	if start > 0 {
		spans = append(spans, Span{Start: 0, End: start})
	}
	if end+1 < n {
		spans = append(spans, Span{Start: end + 1, End: n})
	}
	return spans
}

// rangeComparator returns a three-way comparator locating the entities that
// satisfy "value op bound" in an ascending sequence: negative before the
// run, zero inside, positive after.
//
// Ordering operators only relate values of the same kind, matching
// query.Holds. Values of another kind sort wholly before or after the bound's
// kind, so they compare by kind rank and never land in the run.
//
// "=" and "!=" both compare strictly; "!=" takes the complement of the run.
func rangeComparator(op query.Operator, bound ir.IRValue) (func(ir.IRValue) int, error) {
	strict := func(v ir.IRValue) int { return ir.Compare(v, bound) }

	// holds maps a same-kind comparison to 0 when the relation holds, or to
	// the side of the run the value lies on.
	var holds func(c int) int
	switch op {
	case query.OpEq, query.OpNe:
		return strict, nil
	case query.OpLt:
		holds = func(c int) int { return ifElse(c < 0, 0, 1) }
	case query.OpLte:
		holds = func(c int) int { return ifElse(c <= 0, 0, 1) }
	case query.OpGt:
		holds = func(c int) int { return ifElse(c > 0, 0, -1) }
	case query.OpGte:
		holds = func(c int) int { return ifElse(c >= 0, 0, -1) }
	default:
		return nil, ErrUnsupportedOperatorRange
	}

	boundRank := ir.Rank(bound)
	return func(v ir.IRValue) int {
		if rank := ir.Rank(v); rank != boundRank {
			return ifElse(rank < boundRank, -1, 1)
		}
		return holds(ir.Compare(v, bound))
	}, nil
}

// bindVariable resolves a variable leaf's placeholder from vars.
func bindVariable(leaf query.Leaf, vars map[string]ir.IRValue) (ir.IRValue, error) {
	name, _ := query.PlaceholderName(leaf.Value)
	bound, ok := vars[name]
	if !ok {
		return nil, &RangeError{
			Attribute: leaf.Attribute,
			Operator:  leaf.Op,
			Variable:  name,
			Err:       ErrUnboundVariable,
		}
	}
	if bound == nil {
		return ir.IRNull{}, nil
	}
	return bound, nil
}

func holdsAll(e ir.Entity, leaves []query.Leaf, bounds []ir.IRValue) (bool, error) {
	for i, leaf := range leaves {
		v, _ := e.Get(leaf.Attribute)
		ok, err := query.Holds(leaf.Op, v, bounds[i])
		if err != nil {
			return false, &RangeError{Attribute: leaf.Attribute, Operator: leaf.Op, Err: err}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Resolver) record(op query.Operator, status string) {
	r.views.metrics.Resolutions.WithLabelValues(string(op), status).Inc()
}

func ifElse(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
