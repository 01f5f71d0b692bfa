package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// Compile builds a Model from a CUE value holding a "collections" struct.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
func Compile(v cue.Value) (*Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	collsVal := v.LookupPath(cue.ParsePath("collections"))
	if !collsVal.Exists() {
		return nil, &CompileError{
			Field:   "collections",
			Message: "collections is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := collsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	model := &Model{Collections: make(map[string]Collection)}
	for iter.Next() {
		name := iter.Label()
		attrs, err := parseFields(iter.Value(), "collections."+name)
		if err != nil {
			return nil, err
		}
		model.Collections[name] = Collection{Name: name, Attributes: attrs}
	}

	return model, nil
}

// CompileString compiles CUE source text into a Model.
func CompileString(src string) (*Model, error) {
	ctx := cuecontext.New()
	return Compile(ctx.CompileString(src))
}

// Load compiles a model from a .cue file or from a directory holding a CUE
// package.
func Load(path string) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		return Compile(ctx.CompileBytes(data, cue.Filename(path)))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load schema: no CUE instances in %s", path)
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, fmt.Errorf("load schema: %w", formatCUEError(inst.Err))
	}
	return Compile(ctx.BuildInstance(instances[0]))
}

// parseFields extracts attribute types from a struct, including optional fields.
func parseFields(v cue.Value, at string) (map[string]AttributeType, error) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	fields := make(map[string]AttributeType)
	for iter.Next() {
		name := iter.Label()
		attr, err := extractType(iter.Value(), at+"."+name)
		if err != nil {
			return nil, err
		}
		attr.Optional = iter.IsOptional()
		fields[name] = attr
	}
	return fields, nil
}

// extractType converts a CUE value's kind into an AttributeType.
// Floats are forbidden.
func extractType(v cue.Value, at string) (AttributeType, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return AttributeType{Kind: KindString}, nil
	case cue.IntKind:
		return AttributeType{Kind: KindInt}, nil
	case cue.BoolKind:
		return AttributeType{Kind: KindBool}, nil
	case cue.ListKind:
		elem, err := extractType(v.LookupPath(cue.MakePath(cue.AnyIndex)), at+"[]")
		if err != nil {
			return AttributeType{}, err
		}
		return AttributeType{Kind: KindSet, Elem: &elem}, nil
	case cue.StructKind:
		fields, err := parseFields(v, at)
		if err != nil {
			return AttributeType{}, err
		}
		return AttributeType{Kind: KindRecord, Fields: fields}, nil
	case cue.FloatKind, cue.NumberKind:
		return AttributeType{}, &CompileError{
			Field:   at,
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return AttributeType{}, &CompileError{
			Field:   at,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
