package viewcache

import (
	"fmt"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// ViewID is the content hash of a view query: hex SHA-256 over the query's
// canonical form, domain-separated from other hashes.
type ViewID string

// ViewQueryToID computes the cache key of a view query.
//
// Structurally equal queries hash identically regardless of how they were
// built: the hash covers collection, filters, select and order through
// canonical JSON, so map key order and construction path do not matter.
// Vars are not part of the identity.
func ViewQueryToID(vq query.Query) (ViewID, error) {
	hash, err := ir.ContentHash(ir.DomainView, query.CanonicalForm(vq))
	if err != nil {
		return "", fmt.Errorf("view id: %w", err)
	}
	return ViewID(hash), nil
}
