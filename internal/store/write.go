package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/querysql"
)

// tripleWrite is one row a write will append.
type tripleWrite struct {
	attribute string
	value     ir.IRValue
	expired   bool
}

// Insert creates an entity and returns its id. When id is empty a new id is
// taken from the store's IDGenerator (UUIDv7 by default).
//
// Nested records are flattened to dotted attributes. Null attributes are
// not stored. Inserting a live id fails with ALREADY_EXISTS; a deleted id may
// be inserted again.
func (s *Store) Insert(ctx context.Context, collection, id string, attrs ir.IRObject) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("insert: collection is required")
	}
	if id == "" {
		id = s.ids.Generate()
	}

	leaves, err := flattenAttributes(collection, id, attrs)
	if err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}

	err = s.write(ctx, collection, id, func(live map[string]ir.IRValue) ([]tripleWrite, error) {
		if _, ok := live[ir.IDAttribute]; ok {
			return nil, &StoreError{
				Code:       ErrCodeAlreadyExists,
				Collection: collection,
				EntityID:   id,
				Message:    "entity already exists",
			}
		}

		writes := []tripleWrite{{attribute: ir.IDAttribute, value: ir.IRString(id)}}
		for _, path := range sortedPaths(leaves) {
			if _, isNull := leaves[path].(ir.IRNull); isNull {
				continue
			}
			writes = append(writes, tripleWrite{attribute: path, value: leaves[path]})
		}
		return writes, nil
	})
	if err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}
	return id, nil
}

// Update merges attrs into a live entity at leaf granularity. A null value
// removes the attribute and everything nested under it. Writing a path
// replaces any live ancestor or descendant path, so "address" and
// "address.city" are never live together.
func (s *Store) Update(ctx context.Context, collection, id string, attrs ir.IRObject) error {
	leaves, err := flattenAttributes(collection, id, attrs)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	err = s.write(ctx, collection, id, func(live map[string]ir.IRValue) ([]tripleWrite, error) {
		if _, ok := live[ir.IDAttribute]; !ok {
			return nil, notFound(collection, id)
		}

		var writes []tripleWrite
		expired := make(map[string]bool)
		expire := func(path string) {
			if _, ok := live[path]; ok && !expired[path] {
				expired[path] = true
				writes = append(writes, tripleWrite{attribute: path, expired: true})
			}
		}

		for _, path := range sortedPaths(leaves) {
			value := leaves[path]
			for _, existing := range sortedPaths(live) {
				if existing != ir.IDAttribute && overlaps(existing, path) {
					expire(existing)
				}
			}

			if _, isNull := value.(ir.IRNull); isNull {
				expire(path)
				continue
			}
			if current, ok := live[path]; ok && ir.Equal(current, value) {
				continue
			}
			writes = append(writes, tripleWrite{attribute: path, value: value})
		}
		return writes, nil
	})
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// Delete expires every live attribute of an entity, including its id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := s.write(ctx, collection, id, func(live map[string]ir.IRValue) ([]tripleWrite, error) {
		if _, ok := live[ir.IDAttribute]; !ok {
			return nil, notFound(collection, id)
		}

		writes := make([]tripleWrite, 0, len(live))
		for _, path := range sortedPaths(live) {
			writes = append(writes, tripleWrite{attribute: path, expired: true})
		}
		return writes, nil
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// write runs plan against the entity's live attributes inside a transaction,
// stamps the resulting rows with one seq and notifies subscribers after
// commit. An empty plan writes nothing and notifies no one.
func (s *Store) write(ctx context.Context, collection, id string, plan func(live map[string]ir.IRValue) ([]tripleWrite, error)) error {
	if s.closed() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	live, err := s.liveAttributes(ctx, tx, collection, id)
	if err != nil {
		return err
	}

	writes, err := plan(live)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	seq := s.clock.Next()
	for _, w := range writes {
		if err := insertTriple(ctx, tx, collection, id, w, seq); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("triples written",
		"collection", collection,
		"entity_id", id,
		"count", len(writes),
		"seq", seq)

	s.notify(collection)
	return nil
}

func insertTriple(ctx context.Context, tx *sql.Tx, collection, id string, w tripleWrite, seq int64) error {
	encoded := "null"
	if !w.expired {
		var err error
		encoded, err = querysql.EncodeValue(w.value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", w.attribute, err)
		}
	}

	expired := 0
	if w.expired {
		expired = 1
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO triples (collection, entity_id, attribute, value, seq, expired)
		VALUES (?, ?, ?, ?, ?, ?)
	`, collection, id, w.attribute, encoded, seq, expired)
	if err != nil {
		return fmt.Errorf("write triple %q: %w", w.attribute, err)
	}
	return nil
}

func notFound(collection, id string) error {
	return &StoreError{
		Code:       ErrCodeNotFound,
		Collection: collection,
		EntityID:   id,
		Message:    "entity not found",
	}
}
