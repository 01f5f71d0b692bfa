package ir

import "strings"

// IDAttribute is the reserved attribute name that resolves to the entity id.
const IDAttribute = "id"

// Entity is one reconstructed record of a collection.
type Entity struct {
	ID         string   `json:"id"`
	Attributes IRObject `json:"attributes"`
}

// Get resolves a dotted attribute path ("address.city") against the entity.
// The reserved path "id" yields the entity id. Missing paths yield
// (IRNull{}, false).
func (e Entity) Get(path string) (IRValue, bool) {
	if path == IDAttribute {
		return IRString(e.ID), true
	}
	var cur IRValue = e.Attributes
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(IRObject)
		if !ok {
			return IRNull{}, false
		}
		next, ok := obj[part]
		if !ok {
			return IRNull{}, false
		}
		cur = next
	}
	if cur == nil {
		return IRNull{}, false
	}
	return cur, true
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	out := Entity{ID: e.ID}
	if e.Attributes != nil {
		out.Attributes = CloneValue(e.Attributes).(IRObject)
	}
	return out
}

// Project returns a copy of the entity keeping only the given attribute
// paths. An empty path list keeps everything. Attribute values are shared
// with e; Clone first when the result may be mutated.
func (e Entity) Project(paths []string) Entity {
	if len(paths) == 0 {
		return Entity{ID: e.ID, Attributes: e.Attributes}
	}
	out := Entity{ID: e.ID, Attributes: IRObject{}}
	for _, path := range paths {
		if path == IDAttribute {
			continue
		}
		v, ok := e.Get(path)
		if !ok {
			continue
		}
		out.Attributes.SetPath(path, v)
	}
	return out
}

// SetPath assigns v at a dotted path, creating intermediate objects and
// replacing any non-object value found along the way.
func (obj IRObject) SetPath(path string, v IRValue) {
	setPath(obj, strings.Split(path, "."), v)
}

func setPath(obj IRObject, parts []string, v IRValue) {
	if len(parts) == 1 {
		obj[parts[0]] = v
		return
	}
	child, ok := obj[parts[0]].(IRObject)
	if !ok {
		child = IRObject{}
		obj[parts[0]] = child
	}
	setPath(child, parts[1:], v)
}

// Triple is the fact-level source record an entity is reconstructed from.
// Attribute is a dotted leaf path; Seq is the store's logical clock value.
type Triple struct {
	EntityID   string  `json:"entity_id"`
	Collection string  `json:"collection"`
	Attribute  string  `json:"attribute"`
	Value      IRValue `json:"value"`
	Seq        int64   `json:"seq"`
	Expired    bool    `json:"expired,omitempty"`
}

// ResultSet is an ordered mapping of entity id to entity plus the source
// records of each entity.
//
// Results carries the order; Triples is keyed by entity id.
type ResultSet struct {
	Results []Entity            `json:"results"`
	Triples map[string][]Triple `json:"triples"`
}

// NewResultSet returns an empty, non-nil result set.
func NewResultSet() ResultSet {
	return ResultSet{
		Results: []Entity{},
		Triples: map[string][]Triple{},
	}
}

// Clone returns a deep copy of rs: entities, triple slices and their values
// are all fresh.
func (rs ResultSet) Clone() ResultSet {
	out := ResultSet{}
	if rs.Results != nil {
		out.Results = make([]Entity, len(rs.Results))
		for i, e := range rs.Results {
			out.Results[i] = e.Clone()
		}
	}
	if rs.Triples != nil {
		out.Triples = make(map[string][]Triple, len(rs.Triples))
		for id, triples := range rs.Triples {
			out.Triples[id] = CloneTriples(triples)
		}
	}
	return out
}

// CloneTriples returns a deep copy of triples.
func CloneTriples(triples []Triple) []Triple {
	if triples == nil {
		return nil
	}
	out := make([]Triple, len(triples))
	for i, t := range triples {
		t.Value = CloneValue(t.Value)
		out[i] = t
	}
	return out
}

// IDs returns the entity ids in result order.
func (rs ResultSet) IDs() []string {
	ids := make([]string, len(rs.Results))
	for i, e := range rs.Results {
		ids[i] = e.ID
	}
	return ids
}

// Index returns a lookup from entity id to its position in Results.
func (rs ResultSet) Index() map[string]int {
	idx := make(map[string]int, len(rs.Results))
	for i, e := range rs.Results {
		idx[e.ID] = i
	}
	return idx
}
