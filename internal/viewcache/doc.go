// Package viewcache answers parameterized queries from materialized,
// sorted views instead of re-scanning the store.
//
// A query with exactly one variable filter ("age >= $min") is decomposed into
// a variable-free view query ordered by the variable attribute, plus the
// removed filter. The view query is materialized once through a live
// subscription and kept fresh by later snapshots. Each call then binary
// searches the view for the run of entities satisfying the filter with the
// current binding.
//
// Resolution path:
//
//	CanCacheQuery → Decompose → ViewStore.ResolveView → Resolver.ResolveFromCache
//
// Callers must check CanCacheQuery before using the cache path and fall back
// to a full scan otherwise. The Resolver does not re-check eligibility.
package viewcache
