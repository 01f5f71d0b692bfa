package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/querysql"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// flattenAttributes converts a nested attribute object into dotted leaf
// paths. Non-empty objects are descended; every other value, including
// arrays and empty objects, is a single leaf. Null leaves are kept so
// Update can expire them.
func flattenAttributes(collection, id string, attrs ir.IRObject) (map[string]ir.IRValue, error) {
	leaves := make(map[string]ir.IRValue)
	if err := flattenInto(collection, id, "", attrs, leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

func flattenInto(collection, id, prefix string, obj ir.IRObject, out map[string]ir.IRValue) error {
	for _, key := range obj.SortedKeys() {
		if key == "" || strings.Contains(key, ".") {
			return &StoreError{
				Code:       ErrCodeInvalidAttribute,
				Collection: collection,
				EntityID:   id,
				Message:    fmt.Sprintf("attribute name %q must be non-empty and contain no dots", prefix+key),
			}
		}
		if prefix == "" && key == ir.IDAttribute {
			return &StoreError{
				Code:       ErrCodeInvalidAttribute,
				Collection: collection,
				EntityID:   id,
				Message:    "attribute \"id\" is reserved",
			}
		}

		path := prefix + key
		value := obj[key]
		if value == nil {
			value = ir.IRNull{}
		}
		if nested, ok := value.(ir.IRObject); ok && len(nested) > 0 {
			if err := flattenInto(collection, id, path+".", nested, out); err != nil {
				return err
			}
			continue
		}
		out[path] = value
	}
	return nil
}

// scanTriples reads rows produced by a querysql scan.
func scanTriples(rows *sql.Rows, collection string) ([]ir.Triple, error) {
	var triples []ir.Triple
	for rows.Next() {
		var (
			t       ir.Triple
			encoded string
			expired int
		)
		if err := rows.Scan(&t.EntityID, &t.Attribute, &encoded, &t.Seq, &expired); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		value, err := querysql.DecodeValue(encoded)
		if err != nil {
			return nil, fmt.Errorf("triple %s/%s: %w", t.EntityID, t.Attribute, err)
		}
		t.Collection = collection
		t.Value = value
		t.Expired = expired != 0
		triples = append(triples, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triples: %w", err)
	}
	return triples, nil
}

// latestTriples keeps the last triple of each (entity, attribute) run.
// Input must be ordered by entity_id, attribute, seq.
func latestTriples(triples []ir.Triple) []ir.Triple {
	var out []ir.Triple
	for i, t := range triples {
		if i+1 < len(triples) {
			next := triples[i+1]
			if next.EntityID == t.EntityID && next.Attribute == t.Attribute {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// reconstruct rebuilds live entities from ordered triples. An entity is live
// when its latest "id" triple is not expired. Returns entities in id order
// and the live triples of each entity.
func reconstruct(triples []ir.Triple) ([]ir.Entity, map[string][]ir.Triple) {
	var entities []ir.Entity
	sources := make(map[string][]ir.Triple)

	latest := latestTriples(triples)
	for start := 0; start < len(latest); {
		end := start
		for end < len(latest) && latest[end].EntityID == latest[start].EntityID {
			end++
		}

		group := latest[start:end]
		start = end

		var live []ir.Triple
		alive := false
		for _, t := range group {
			if t.Expired {
				continue
			}
			if t.Attribute == ir.IDAttribute {
				alive = true
			}
			live = append(live, t)
		}
		if !alive {
			continue
		}

		e := ir.Entity{ID: group[0].EntityID, Attributes: ir.IRObject{}}
		for _, t := range live {
			if t.Attribute == ir.IDAttribute {
				continue
			}
			e.Attributes.SetPath(t.Attribute, t.Value)
		}
		entities = append(entities, e)
		sources[e.ID] = live
	}

	return entities, sources
}

// liveAttributes returns the current value of every live attribute of one
// entity, including the reserved "id" attribute when the entity exists.
func (s *Store) liveAttributes(ctx context.Context, q querier, collection, id string) (map[string]ir.IRValue, error) {
	sqlText, params := s.compiler.CompileEntity(collection, id)
	rows, err := q.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("read entity: %w", err)
	}
	defer rows.Close()

	triples, err := scanTriples(rows, collection)
	if err != nil {
		return nil, err
	}

	live := make(map[string]ir.IRValue)
	for _, t := range latestTriples(triples) {
		if !t.Expired {
			live[t.Attribute] = t.Value
		}
	}
	return live, nil
}

// sortedPaths returns map keys in byte order.
func sortedPaths[V any](m map[string]V) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// overlaps reports whether one dotted path is a strict ancestor of the other.
func overlaps(a, b string) bool {
	return strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}
