package model

import (
	"fmt"
	"math"

	"github.com/crossbind/crossbind/internal/udl"
)

// BuildComponentInterface consumes a raw declaration tree and produces the
// validated ComponentInterface. Validation is whole-interface: name
// uniqueness across every category, default-literal representability,
// throws-type checks, object nesting rules and value-type acyclicity. The
// first violation aborts the build; no partial interface is ever returned.
func BuildComponentInterface(doc *udl.Document) (*ComponentInterface, error) {
	r, err := newResolver(doc)
	if err != nil {
		return nil, err
	}

	b := &builder{resolver: r, ci: &ComponentInterface{Namespace: doc.Namespace.Name}}

	for i := range doc.Enums {
		if err := b.addEnum(&doc.Enums[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Records {
		if err := b.addRecord(&doc.Records[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Objects {
		if err := b.addObject(&doc.Objects[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Callbacks {
		if err := b.addCallback(&doc.Callbacks[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Namespace.Functions {
		fn, err := b.buildMethod(doc.Namespace.Name, &doc.Namespace.Functions[i])
		if err != nil {
			return nil, err
		}
		b.ci.Functions = append(b.ci.Functions, *fn)
	}

	if err := b.checkValueCycles(); err != nil {
		return nil, err
	}
	return b.ci, nil
}

type builder struct {
	resolver *resolver
	ci       *ComponentInterface
}

func (b *builder) addEnum(decl *udl.EnumDecl) error {
	enum := Enum{Name: decl.Name, IsError: decl.IsError, Doc: decl.Doc}
	seen := make(map[string]bool)
	for _, v := range decl.Variants {
		if seen[v.Name] {
			return &DuplicateDefinitionError{Name: decl.Name + "." + v.Name}
		}
		seen[v.Name] = true

		variant := Variant{Name: v.Name}
		fields, err := b.buildFields(decl.Name+"."+v.Name, v.Fields)
		if err != nil {
			return err
		}
		variant.Fields = fields
		enum.Variants = append(enum.Variants, variant)
	}
	b.ci.Enums = append(b.ci.Enums, enum)
	return nil
}

func (b *builder) addRecord(decl *udl.DictionaryDecl) error {
	fields, err := b.buildFields(decl.Name, decl.Fields)
	if err != nil {
		return err
	}
	b.ci.Records = append(b.ci.Records, Record{Name: decl.Name, Fields: fields, Doc: decl.Doc})
	return nil
}

// buildFields resolves value-type fields, rejecting embedded objects and
// duplicate names, and validating default literals.
func (b *builder) buildFields(container string, decls []udl.FieldDecl) ([]Field, error) {
	var fields []Field
	seen := make(map[string]bool)
	for _, f := range decls {
		if seen[f.Name] {
			return nil, &DuplicateDefinitionError{Name: container + "." + f.Name}
		}
		seen[f.Name] = true

		t, err := b.resolver.resolveValueField(container, f.Name, f.Type)
		if err != nil {
			return nil, err
		}
		field := Field{Name: f.Name, Type: t, Doc: f.Doc}
		if f.Default != nil {
			lit, err := b.validateDefault(container, f.Name, t, f.Default)
			if err != nil {
				return nil, err
			}
			field.Default = lit
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (b *builder) addObject(decl *udl.InterfaceDecl) error {
	obj := Object{Name: decl.Name, Threadsafe: decl.Threadsafe, Doc: decl.Doc}

	primaries := 0
	seen := make(map[string]bool)
	for _, c := range decl.Constructors {
		if c.Name == "" {
			primaries++
			if primaries > 1 {
				return &DuplicateDefinitionError{Name: decl.Name + ".constructor"}
			}
		} else {
			if seen[c.Name] {
				return &DuplicateDefinitionError{Name: decl.Name + "." + c.Name}
			}
			seen[c.Name] = true
		}

		ctor := Constructor{Name: c.Name, Fallible: c.HasThrows, Throws: c.Throws}
		args, err := b.buildArguments(decl.Name, c.Args)
		if err != nil {
			return err
		}
		ctor.Arguments = args
		if err := b.checkThrows(decl.Name+".constructor", c.Throws); err != nil {
			return err
		}
		obj.Constructors = append(obj.Constructors, ctor)
	}

	methodNames := make(map[string]bool)
	for i := range decl.Methods {
		m := &decl.Methods[i]
		if methodNames[m.Name] {
			return &DuplicateDefinitionError{Name: decl.Name + "." + m.Name}
		}
		methodNames[m.Name] = true

		method, err := b.buildMethod(decl.Name, m)
		if err != nil {
			return err
		}
		obj.Methods = append(obj.Methods, *method)
	}
	b.ci.Objects = append(b.ci.Objects, obj)
	return nil
}

func (b *builder) addCallback(decl *udl.CallbackDecl) error {
	cb := CallbackInterface{Name: decl.Name, Doc: decl.Doc}
	seen := make(map[string]bool)
	for i := range decl.Methods {
		m := &decl.Methods[i]
		if seen[m.Name] {
			return &DuplicateDefinitionError{Name: decl.Name + "." + m.Name}
		}
		seen[m.Name] = true

		method, err := b.buildMethod(decl.Name, m)
		if err != nil {
			return err
		}
		cb.Methods = append(cb.Methods, *method)
	}
	b.ci.Callbacks = append(b.ci.Callbacks, cb)
	return nil
}

func (b *builder) buildMethod(container string, decl *udl.MethodDecl) (*Method, error) {
	method := &Method{
		Name:     decl.Name,
		Throws:   decl.Throws,
		Fallible: decl.HasThrows,
		Doc:      decl.Doc,
	}
	args, err := b.buildArguments(container+"."+decl.Name, decl.Args)
	if err != nil {
		return nil, err
	}
	method.Arguments = args

	if decl.Return != nil {
		ret, err := b.resolver.resolveType(*decl.Return)
		if err != nil {
			return nil, err
		}
		method.Return = &ret
	}
	if err := b.checkThrows(container+"."+decl.Name, decl.Throws); err != nil {
		return nil, err
	}
	return method, nil
}

func (b *builder) buildArguments(callable string, decls []udl.ArgDecl) ([]Argument, error) {
	var args []Argument
	seen := make(map[string]bool)
	for _, a := range decls {
		if seen[a.Name] {
			return nil, &DuplicateDefinitionError{Name: callable + "(" + a.Name + ")"}
		}
		seen[a.Name] = true

		t, err := b.resolver.resolveType(a.Type)
		if err != nil {
			return nil, err
		}
		arg := Argument{Name: a.Name, Type: t}
		if a.Default != nil {
			lit, err := b.validateDefault(callable, a.Name, t, a.Default)
			if err != nil {
				return nil, err
			}
			arg.Default = lit
		}
		args = append(args, arg)
	}
	return args, nil
}

// checkThrows validates that a named throws type is an enum tagged [Error].
// An empty name is legal here; the FFI deriver rejects fallible callables
// without a declared error type.
func (b *builder) checkThrows(callable, name string) error {
	if name == "" {
		return nil
	}
	if b.resolver.symbols[name] != catError {
		return &NotAnErrorTypeError{Callable: callable, Name: name}
	}
	return nil
}

// validateDefault checks that a literal is representable in the resolved
// type and converts it into a model Literal.
func (b *builder) validateDefault(container, field string, t Type, lit *udl.LiteralExpr) (*Literal, error) {
	fail := func(format string, args ...interface{}) (*Literal, error) {
		return nil, &InvalidDefaultError{
			Container: container,
			Field:     field,
			Reason:    fmt.Sprintf(format, args...),
		}
	}

	if t.Kind == KindOptional {
		if lit.Kind == udl.LiteralNull {
			return &Literal{Kind: LitNull}, nil
		}
		return b.validateDefault(container, field, *t.Elem, lit)
	}

	switch lit.Kind {
	case udl.LiteralBool:
		if t.Kind != KindBoolean {
			return fail("boolean literal is not representable as %s", t)
		}
		return &Literal{Kind: LitBool, Bool: lit.Bool}, nil

	case udl.LiteralInt:
		if t.IsInteger() {
			if err := checkIntRange(t.Kind, lit.Int); err != nil {
				return fail("%v", err)
			}
			return &Literal{Kind: LitInt, Int: lit.Int}, nil
		}
		if t.Kind == KindFloat32 || t.Kind == KindFloat64 {
			return &Literal{Kind: LitFloat, Float: float64(lit.Int)}, nil
		}
		return fail("integer literal is not representable as %s", t)

	case udl.LiteralFloat:
		if t.Kind != KindFloat32 && t.Kind != KindFloat64 {
			return fail("float literal is not representable as %s", t)
		}
		return &Literal{Kind: LitFloat, Float: lit.Float}, nil

	case udl.LiteralString:
		if t.Kind != KindString {
			return fail("string literal is not representable as %s", t)
		}
		return &Literal{Kind: LitString, String: lit.Str}, nil

	case udl.LiteralNull:
		return fail("null is only a valid default for optional types")

	case udl.LiteralEnum:
		if t.Kind != KindEnum {
			return fail("'%s' is not a valid default for %s", lit.Str, t)
		}
		enum := b.findEnumDecl(t.Name)
		if enum == nil || enum.VariantIndex(lit.Str) < 0 {
			return fail("enum '%s' has no variant '%s'", t.Name, lit.Str)
		}
		return &Literal{Kind: LitEnumVariant, Variant: lit.Str}, nil
	}
	return fail("unsupported literal")
}

// findEnumDecl looks up an already-built enum. Enums are built before
// records and objects, so defaults referencing enum variants always see the
// finished definition.
func (b *builder) findEnumDecl(name string) *Enum {
	return b.ci.GetEnumDefinition(name)
}

func checkIntRange(kind Kind, v int64) error {
	var min, max int64
	switch kind {
	case KindInt8:
		min, max = math.MinInt8, math.MaxInt8
	case KindInt16:
		min, max = math.MinInt16, math.MaxInt16
	case KindInt32:
		min, max = math.MinInt32, math.MaxInt32
	case KindInt64:
		return nil
	case KindUInt8:
		min, max = 0, math.MaxUint8
	case KindUInt16:
		min, max = 0, math.MaxUint16
	case KindUInt32:
		min, max = 0, math.MaxUint32
	case KindUInt64:
		if v < 0 {
			return fmt.Errorf("value %d out of range for u64", v)
		}
		return nil
	default:
		return fmt.Errorf("not an integer type")
	}
	if v < min || v > max {
		return fmt.Errorf("value %d out of range for %s", v, kind)
	}
	return nil
}

// checkValueCycles rejects dependency cycles between value-type definitions
// (records and enums with fields). Objects are exempt: they are reference
// types and never embedded, so they cannot participate in a value cycle.
func (b *builder) checkValueCycles() error {
	deps := make(map[string][]string)
	addDeps := func(name string, fields []Field) {
		for _, f := range fields {
			f.Type.Walk(func(t Type) {
				if t.Kind == KindRecord || t.Kind == KindEnum || t.Kind == KindError {
					deps[name] = append(deps[name], t.Name)
				}
			})
		}
	}
	for _, r := range b.ci.Records {
		addDeps(r.Name, r.Fields)
	}
	for _, e := range b.ci.Enums {
		for _, v := range e.Variants {
			addDeps(e.Name, v.Fields)
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return &CyclicTypeError{Name: name}
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range deps[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for name := range deps {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
