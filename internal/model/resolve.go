package model

import (
	"github.com/crossbind/crossbind/internal/udl"
)

// category records what kind of declaration a top-level name refers to.
type category int

const (
	catEnum category = iota
	catError
	catRecord
	catObject
	catCallback
	catTypedef
)

// primitives maps UDL primitive type names to scalar kinds. `float` and
// `double` are accepted as aliases for f32 and f64.
var primitives = map[string]Kind{
	"boolean":   KindBoolean,
	"i8":        KindInt8,
	"i16":       KindInt16,
	"i32":       KindInt32,
	"i64":       KindInt64,
	"u8":        KindUInt8,
	"u16":       KindUInt16,
	"u32":       KindUInt32,
	"u64":       KindUInt64,
	"f32":       KindFloat32,
	"f64":       KindFloat64,
	"float":     KindFloat32,
	"double":    KindFloat64,
	"string":    KindString,
	"bytes":     KindBytes,
	"timestamp": KindTimestamp,
	"duration":  KindDuration,
}

// resolver substitutes syntactic type references with resolved Types using
// a two-pass scheme: newResolver declares every top-level name up front, so
// forward references and mutual recursion need no special handling.
type resolver struct {
	symbols  map[string]category
	typedefs map[string]udl.TypeExpr

	// inlining tracks typedefs currently being expanded, for cycle detection.
	inlining map[string]bool
}

func newResolver(doc *udl.Document) (*resolver, error) {
	r := &resolver{
		symbols:  make(map[string]category),
		typedefs: make(map[string]udl.TypeExpr),
		inlining: make(map[string]bool),
	}

	declare := func(name string, cat category) error {
		if _, exists := r.symbols[name]; exists {
			return &DuplicateDefinitionError{Name: name}
		}
		r.symbols[name] = cat
		return nil
	}

	for _, e := range doc.Enums {
		cat := catEnum
		if e.IsError {
			cat = catError
		}
		if err := declare(e.Name, cat); err != nil {
			return nil, err
		}
	}
	for _, rec := range doc.Records {
		if err := declare(rec.Name, catRecord); err != nil {
			return nil, err
		}
	}
	for _, obj := range doc.Objects {
		if err := declare(obj.Name, catObject); err != nil {
			return nil, err
		}
	}
	for _, cb := range doc.Callbacks {
		if err := declare(cb.Name, catCallback); err != nil {
			return nil, err
		}
	}
	for _, td := range doc.Typedefs {
		if err := declare(td.Name, catTypedef); err != nil {
			return nil, err
		}
		r.typedefs[td.Name] = td.Type
	}
	return r, nil
}

// resolveType turns a syntactic type expression into a resolved Type.
func (r *resolver) resolveType(expr udl.TypeExpr) (Type, error) {
	inner, err := r.resolveBase(expr)
	if err != nil {
		return Type{}, err
	}
	if expr.Nullable {
		return OptionalOf(inner), nil
	}
	return inner, nil
}

func (r *resolver) resolveBase(expr udl.TypeExpr) (Type, error) {
	switch expr.Name {
	case "sequence":
		if len(expr.Args) != 1 {
			return Type{}, &udl.SyntaxError{Pos: expr.Pos, Message: "sequence<> takes exactly one type parameter"}
		}
		elem, err := r.resolveType(expr.Args[0])
		if err != nil {
			return Type{}, err
		}
		return SequenceOf(elem), nil
	case "record":
		if len(expr.Args) != 2 {
			return Type{}, &udl.SyntaxError{Pos: expr.Pos, Message: "record<> takes exactly two type parameters"}
		}
		key, err := r.resolveType(expr.Args[0])
		if err != nil {
			return Type{}, err
		}
		if !key.ValidMapKey() {
			return Type{}, &udl.SyntaxError{Pos: expr.Args[0].Pos, Message: "record<> keys must be strings or scalars"}
		}
		value, err := r.resolveType(expr.Args[1])
		if err != nil {
			return Type{}, err
		}
		return MapOf(key, value), nil
	}

	if len(expr.Args) != 0 {
		return Type{}, &udl.SyntaxError{Pos: expr.Pos, Message: "type '" + expr.Name + "' takes no type parameters"}
	}

	if kind, ok := primitives[expr.Name]; ok {
		return Scalar(kind), nil
	}

	cat, ok := r.symbols[expr.Name]
	if !ok {
		return Type{}, &UnknownTypeError{Name: expr.Name, Pos: expr.Pos}
	}
	switch cat {
	case catEnum:
		return EnumRef(expr.Name), nil
	case catError:
		return ErrorRef(expr.Name), nil
	case catRecord:
		return RecordRef(expr.Name), nil
	case catObject:
		return ObjectRef(expr.Name), nil
	case catCallback:
		return CallbackRef(expr.Name), nil
	case catTypedef:
		return r.inlineTypedef(expr.Name)
	}
	return Type{}, &UnknownTypeError{Name: expr.Name, Pos: expr.Pos}
}

// inlineTypedef expands an alias transparently; the resolved kind replaces
// the alias everywhere it is referenced.
func (r *resolver) inlineTypedef(name string) (Type, error) {
	if r.inlining[name] {
		return Type{}, &CyclicTypeError{Name: name}
	}
	r.inlining[name] = true
	defer delete(r.inlining, name)
	return r.resolveType(r.typedefs[name])
}

// resolveValueField resolves a record or enum-variant field type and
// enforces the reference-only rule for objects.
func (r *resolver) resolveValueField(container, field string, expr udl.TypeExpr) (Type, error) {
	t, err := r.resolveType(expr)
	if err != nil {
		return Type{}, err
	}
	if t.ContainsObject() {
		return Type{}, &InvalidNestingError{Container: container, Field: field, Type: t.String()}
	}
	return t, nil
}
