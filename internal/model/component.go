package model

// ComponentInterface is the canonical, validated, language-neutral model of
// every declaration in one UDL compilation unit. It is built once by
// BuildComponentInterface and never mutated afterwards; the FFI signature
// deriver and every binding generator consume the same instance.
//
// All slices preserve source declaration order. That order is load-bearing:
// enum variant discriminants and record field ordinals on the wire are
// assigned from it, so reordering declarations changes the wire encoding.
type ComponentInterface struct {
	Namespace string              `json:"namespace"`
	Enums     []Enum              `json:"enums"`
	Records   []Record            `json:"records"`
	Objects   []Object            `json:"objects"`
	Callbacks []CallbackInterface `json:"callbacks"`
	Functions []Function          `json:"functions"`
}

// Enum is an ordered set of uniquely named variants. Variants may carry
// named, typed fields, making the enum a tagged union; error types are
// modeled uniformly as enums with IsError set.
type Enum struct {
	Name     string    `json:"name"`
	Variants []Variant `json:"variants"`
	IsError  bool      `json:"isError,omitempty"`
	Doc      string    `json:"doc,omitempty"`
}

// HasAssociatedData reports whether any variant carries fields.
func (e *Enum) HasAssociatedData() bool {
	for i := range e.Variants {
		if len(e.Variants[i].Fields) > 0 {
			return true
		}
	}
	return false
}

// VariantIndex returns the source-order index of the named variant, which is
// also its wire discriminant, or -1 if the variant does not exist.
func (e *Enum) VariantIndex(name string) int {
	for i := range e.Variants {
		if e.Variants[i].Name == name {
			return i
		}
	}
	return -1
}

// Variant is one enum alternative with optional associated fields.
type Variant struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
}

// Record is an ordered sequence of named, typed fields, passed across the
// FFI by value through the buffer encoding.
type Record struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
	Doc    string  `json:"doc,omitempty"`
}

// Field is a named, typed member of a record or enum variant, optionally
// carrying a default literal.
type Field struct {
	Name    string   `json:"name"`
	Type    Type     `json:"type"`
	Default *Literal `json:"default,omitempty"`
	Doc     string   `json:"doc,omitempty"`
}

// Object is an opaque reference type. Instances live on the native side and
// cross the boundary only as handles; the binding wrapper releases its
// handle through the object's derived free function.
type Object struct {
	Name         string        `json:"name"`
	Constructors []Constructor `json:"constructors"`
	Methods      []Method      `json:"methods"`
	Threadsafe   bool          `json:"threadsafe,omitempty"`
	Doc          string        `json:"doc,omitempty"`
}

// PrimaryConstructor returns the unnamed constructor, or nil if the object
// declares only named constructors.
func (o *Object) PrimaryConstructor() *Constructor {
	for i := range o.Constructors {
		if o.Constructors[i].Name == "" {
			return &o.Constructors[i]
		}
	}
	return nil
}

// Constructor produces a new native instance and returns its handle.
type Constructor struct {
	Name      string     `json:"name,omitempty"`
	Arguments []Argument `json:"arguments"`
	Throws    string     `json:"throws,omitempty"`
	Fallible  bool       `json:"fallible,omitempty"`
}

// CallbackInterface is a set of method signatures the foreign side
// implements; the native side invokes them through a registered trampoline.
type CallbackInterface struct {
	Name    string   `json:"name"`
	Methods []Method `json:"methods"`
	Doc     string   `json:"doc,omitempty"`
}

// Method is a callable taking self plus typed arguments. Fallible is true
// when a [Throws] attribute was present; Throws names the declared error
// enum and may be empty for a bare [Throws], which the FFI deriver rejects.
type Method struct {
	Name      string     `json:"name"`
	Arguments []Argument `json:"arguments"`
	Return    *Type      `json:"return,omitempty"`
	Throws    string     `json:"throws,omitempty"`
	Fallible  bool       `json:"fallible,omitempty"`
	Doc       string     `json:"doc,omitempty"`
}

// Function is a free function declared in the namespace block.
type Function = Method

// Argument is a named, typed parameter with an optional default literal.
type Argument struct {
	Name    string   `json:"name"`
	Type    Type     `json:"type"`
	Default *Literal `json:"default,omitempty"`
}

// LiteralKind identifies the class of a validated default literal.
type LiteralKind int

const (
	LitBool LiteralKind = iota
	LitInt
	LitFloat
	LitString
	LitNull
	LitEnumVariant
)

// Literal is a validated default value, already checked against the type of
// the field or argument it belongs to.
type Literal struct {
	Kind    LiteralKind `json:"kind"`
	Bool    bool        `json:"bool,omitempty"`
	Int     int64       `json:"int,omitempty"`
	Float   float64     `json:"float,omitempty"`
	String  string      `json:"string,omitempty"`
	Variant string      `json:"variant,omitempty"`
}

// GetEnumDefinition returns the enum with the given name, or nil.
func (ci *ComponentInterface) GetEnumDefinition(name string) *Enum {
	for i := range ci.Enums {
		if ci.Enums[i].Name == name {
			return &ci.Enums[i]
		}
	}
	return nil
}

// GetRecordDefinition returns the record with the given name, or nil.
func (ci *ComponentInterface) GetRecordDefinition(name string) *Record {
	for i := range ci.Records {
		if ci.Records[i].Name == name {
			return &ci.Records[i]
		}
	}
	return nil
}

// GetObjectDefinition returns the object with the given name, or nil.
func (ci *ComponentInterface) GetObjectDefinition(name string) *Object {
	for i := range ci.Objects {
		if ci.Objects[i].Name == name {
			return &ci.Objects[i]
		}
	}
	return nil
}

// GetCallbackDefinition returns the callback interface with the given
// name, or nil.
func (ci *ComponentInterface) GetCallbackDefinition(name string) *CallbackInterface {
	for i := range ci.Callbacks {
		if ci.Callbacks[i].Name == name {
			return &ci.Callbacks[i]
		}
	}
	return nil
}

// IterTypes calls fn for every type mentioned anywhere in the interface,
// including types nested inside compounds. Generators use this to decide
// which conversion helpers a binding actually needs; no helper is assumed
// present unless some declaration reaches it.
func (ci *ComponentInterface) IterTypes(fn func(Type)) {
	field := func(f Field) { f.Type.Walk(fn) }
	method := func(m Method) {
		for _, a := range m.Arguments {
			a.Type.Walk(fn)
		}
		if m.Return != nil {
			m.Return.Walk(fn)
		}
		if m.Throws != "" {
			ErrorRef(m.Throws).Walk(fn)
		}
	}

	for _, e := range ci.Enums {
		for _, v := range e.Variants {
			for _, f := range v.Fields {
				field(f)
			}
		}
	}
	for _, r := range ci.Records {
		for _, f := range r.Fields {
			field(f)
		}
	}
	for _, o := range ci.Objects {
		for _, c := range o.Constructors {
			for _, a := range c.Arguments {
				a.Type.Walk(fn)
			}
			if c.Throws != "" {
				ErrorRef(c.Throws).Walk(fn)
			}
		}
		for _, m := range o.Methods {
			method(m)
		}
	}
	for _, cb := range ci.Callbacks {
		for _, m := range cb.Methods {
			method(m)
		}
	}
	for _, f := range ci.Functions {
		method(f)
	}
}
