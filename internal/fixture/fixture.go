package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/viewcache/internal/ir"
)

// Fixture is a set of records to load into a store.
type Fixture struct {
	Collections map[string][]Record `yaml:"collections"`
}

// Record is one entity. The "id" key is optional; a store generates one
// when it is absent.
type Record map[string]any

// Inserter is the write side of a store.
type Inserter interface {
	Insert(ctx context.Context, collection, id string, attrs ir.IRObject) (string, error)
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Collections) == 0 {
		return nil, errors.New("invalid fixture: no collections")
	}
	return &f, nil
}

// Entity converts a record into an id and its attributes.
func (r Record) Entity() (string, ir.IRObject, error) {
	var id string
	attrs := make(map[string]any, len(r))
	for k, v := range r {
		if k != ir.IDAttribute {
			attrs[k] = v
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", nil, fmt.Errorf("id must be a string, got %T", v)
		}
		id = s
	}

	value, err := ir.FromGo(attrs)
	if err != nil {
		return "", nil, err
	}
	return id, value.(ir.IRObject), nil
}

// Apply inserts every record, collections in name order and records in
// file order. It returns the number of entities inserted.
func (f *Fixture) Apply(ctx context.Context, dst Inserter) (int, error) {
	names := make([]string, 0, len(f.Collections))
	for name := range f.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		for i, rec := range f.Collections[name] {
			id, attrs, err := rec.Entity()
			if err != nil {
				return n, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			if _, err := dst.Insert(ctx, name, id, attrs); err != nil {
				return n, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			n++
		}
	}
	return n, nil
}
