package fixture

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
)

// QueryDoc is the YAML form of a query.
type QueryDoc struct {
	Collection string         `yaml:"collection"`
	Where      []FilterDoc    `yaml:"where,omitempty"`
	Select     []string       `yaml:"select,omitempty"`
	Order      []OrderDoc     `yaml:"order,omitempty"`
	Vars       map[string]any `yaml:"vars,omitempty"`
}

// FilterDoc is a where entry: a leaf triple or an exists block.
type FilterDoc struct {
	Leaf   *query.Leaf
	Exists *QueryDoc
}

// OrderDoc is an order entry: [attribute] or [attribute, asc|desc].
type OrderDoc query.OrderClause

// LoadQuery reads and parses a query document.
func LoadQuery(path string) (query.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return query.Query{}, fmt.Errorf("failed to read query file: %w", err)
	}
	return ParseQuery(data)
}

// ParseQuery parses a query document and validates the result.
func ParseQuery(data []byte) (query.Query, error) {
	doc, err := DecodeQueryDoc(data)
	if err != nil {
		return query.Query{}, err
	}
	q, err := doc.Query()
	if err != nil {
		return query.Query{}, err
	}
	if err := query.Validate(q).Err(); err != nil {
		return query.Query{}, fmt.Errorf("invalid query: %w", err)
	}
	return q, nil
}

// DecodeQueryDoc decodes a query document without validating it, for
// callers that bind variables before validation.
func DecodeQueryDoc(data []byte) (QueryDoc, error) {
	var doc QueryDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return QueryDoc{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc, nil
}

// Query converts the document into a query.Query.
func (d QueryDoc) Query() (query.Query, error) {
	q := query.Query{
		Collection: d.Collection,
		Select:     d.Select,
	}

	for _, f := range d.Where {
		switch {
		case f.Leaf != nil:
			q.Where = append(q.Where, *f.Leaf)
		case f.Exists != nil:
			sub, err := f.Exists.Query()
			if err != nil {
				return query.Query{}, fmt.Errorf("exists %q: %w", f.Exists.Collection, err)
			}
			q.Where = append(q.Where, query.Exists{Subquery: sub})
		}
	}

	for _, o := range d.Order {
		q.Order = append(q.Order, query.OrderClause(o))
	}

	if len(d.Vars) > 0 {
		q.Vars = make(map[string]ir.IRValue, len(d.Vars))
		for name, v := range d.Vars {
			value, err := ir.FromGo(v)
			if err != nil {
				return query.Query{}, fmt.Errorf("var %q: %w", name, err)
			}
			q.Vars[name] = value
		}
	}
	return q, nil
}

// UnmarshalYAML decodes a leaf sequence or an exists mapping.
func (f *FilterDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) != 3 {
			return fmt.Errorf("line %d: leaf filter needs [attribute, operator, value], got %d elements", node.Line, len(node.Content))
		}
		var attr, op string
		if err := node.Content[0].Decode(&attr); err != nil {
			return err
		}
		if err := node.Content[1].Decode(&op); err != nil {
			return err
		}
		var raw any
		if err := node.Content[2].Decode(&raw); err != nil {
			return err
		}
		value, err := ir.FromGo(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		f.Leaf = &query.Leaf{Attribute: attr, Op: query.Operator(op), Value: value}
		return nil

	case yaml.MappingNode:
		var block struct {
			Exists *QueryDoc `yaml:"exists"`
		}
		if err := node.Decode(&block); err != nil {
			return err
		}
		if block.Exists == nil {
			return fmt.Errorf("line %d: filter mapping needs an exists key", node.Line)
		}
		f.Exists = block.Exists
		return nil

	default:
		return fmt.Errorf("line %d: filter must be a sequence or an exists mapping", node.Line)
	}
}

// UnmarshalYAML decodes [attribute] or [attribute, direction].
func (o *OrderDoc) UnmarshalYAML(node *yaml.Node) error {
	var parts []string
	if err := node.Decode(&parts); err != nil {
		return fmt.Errorf("line %d: order entry must be [attribute, asc|desc]", node.Line)
	}
	if len(parts) < 1 || len(parts) > 2 {
		return fmt.Errorf("line %d: order entry must be [attribute, asc|desc]", node.Line)
	}

	o.Attribute = parts[0]
	o.Direction = query.Asc
	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc":
		case "desc":
			o.Direction = query.Desc
		default:
			return fmt.Errorf("line %d: unknown direction %q", node.Line, parts[1])
		}
	}
	return nil
}

// NewQueryDoc converts q back into its document form.
func NewQueryDoc(q query.Query) QueryDoc {
	doc := QueryDoc{
		Collection: q.Collection,
		Select:     q.Select,
	}
	for _, f := range q.Where {
		switch filter := f.(type) {
		case query.Leaf:
			leaf := filter
			doc.Where = append(doc.Where, FilterDoc{Leaf: &leaf})
		case query.Exists:
			sub := NewQueryDoc(filter.Subquery)
			doc.Where = append(doc.Where, FilterDoc{Exists: &sub})
		}
	}
	for _, o := range q.Order {
		doc.Order = append(doc.Order, OrderDoc(o))
	}
	if len(q.Vars) > 0 {
		doc.Vars = make(map[string]any, len(q.Vars))
		for name, v := range q.Vars {
			doc.Vars[name] = ir.ToGo(v)
		}
	}
	return doc
}

// MarshalYAML encodes a filter in its compact form.
func (f FilterDoc) MarshalYAML() (any, error) {
	if f.Exists != nil {
		return map[string]any{"exists": f.Exists}, nil
	}
	if f.Leaf == nil {
		return nil, fmt.Errorf("empty filter")
	}
	return flowSequence(f.Leaf.Attribute, string(f.Leaf.Op), ir.ToGo(f.Leaf.Value))
}

// MarshalYAML encodes an order entry as [attribute, direction].
func (o OrderDoc) MarshalYAML() (any, error) {
	return flowSequence(o.Attribute, strings.ToLower(string(o.Direction)))
}

func flowSequence(items ...any) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, item := range items {
		var n yaml.Node
		if err := n.Encode(item); err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, &n)
	}
	return seq, nil
}

// ParseVar parses a "name=value" binding. The value is read as a YAML
// scalar or flow collection, so "21" is an int and "[1, 2]" an array.
func ParseVar(s string) (string, ir.IRValue, error) {
	name, raw, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid binding %q: want name=value", s)
	}
	name = strings.TrimPrefix(name, query.PlaceholderSigil)

	var decoded any
	if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
		return "", nil, fmt.Errorf("binding %q: %w", name, err)
	}
	value, err := ir.FromGo(decoded)
	if err != nil {
		return "", nil, fmt.Errorf("binding %q: %w", name, err)
	}
	return name, value, nil
}
