package schema

import (
	"sort"
	"strings"

	"github.com/roach88/viewcache/internal/ir"
)

// Kind is the value kind of an attribute.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
	KindSet    Kind = "set"
	KindRecord Kind = "record"
)

// AttributeType describes one attribute of a collection.
type AttributeType struct {
	Kind Kind

	// Elem is the element type of a set.
	Elem *AttributeType

	// Fields are the nested attributes of a record.
	Fields map[string]AttributeType

	// Optional marks attributes declared with "?" in CUE.
	Optional bool
}

// IsSet reports whether the attribute is multi-valued.
func (t AttributeType) IsSet() bool {
	return t.Kind == KindSet
}

// Collection is a named set of attribute types.
type Collection struct {
	Name       string
	Attributes map[string]AttributeType
}

// Model is a compiled schema: the collections a store may hold.
type Model struct {
	Collections map[string]Collection
}

// CollectionNames returns the model's collection names sorted.
func (m *Model) CollectionNames() []string {
	names := make([]string, 0, len(m.Collections))
	for name := range m.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveAttributeType walks a dotted attribute path through the collection's
// attribute types. The reserved "id" attribute is always a string.
//
// Returns false when the collection or any path segment is unknown, or when
// the path tries to descend into a non-record attribute.
func (m *Model) ResolveAttributeType(collection, path string) (AttributeType, bool) {
	if m == nil {
		return AttributeType{}, false
	}
	coll, ok := m.Collections[collection]
	if !ok {
		return AttributeType{}, false
	}
	if path == ir.IDAttribute {
		return AttributeType{Kind: KindString}, true
	}

	fields := coll.Attributes
	var current AttributeType
	for i, part := range strings.Split(path, ".") {
		if i > 0 {
			if current.Kind != KindRecord {
				return AttributeType{}, false
			}
			fields = current.Fields
		}
		next, ok := fields[part]
		if !ok {
			return AttributeType{}, false
		}
		current = next
	}
	return current, true
}
