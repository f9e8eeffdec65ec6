package model

import "fmt"

// Kind discriminates the closed set of semantic type kinds. Every consumer
// (resolver, wire codec, type oracles, FFI deriver) switches exhaustively
// over these values; adding a kind means visiting every switch.
type Kind int

const (
	KindBoolean Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindTimestamp
	KindDuration
	KindOptional
	KindSequence
	KindMap
	KindEnum
	KindRecord
	KindObject
	KindCallback
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInt8:
		return "i8"
	case KindInt16:
		return "i16"
	case KindInt32:
		return "i32"
	case KindInt64:
		return "i64"
	case KindUInt8:
		return "u8"
	case KindUInt16:
		return "u16"
	case KindUInt32:
		return "u32"
	case KindUInt64:
		return "u64"
	case KindFloat32:
		return "f32"
	case KindFloat64:
		return "f64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTimestamp:
		return "timestamp"
	case KindDuration:
		return "duration"
	case KindOptional:
		return "optional"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindObject:
		return "object"
	case KindCallback:
		return "callback"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is a resolved semantic type: a Kind plus the parameters that kind
// needs. Elem is set for Optional and Sequence, Key/Value for Map, and Name
// for Enum, Record, Object and Callback references. Scalars use Kind alone.
type Type struct {
	Kind  Kind   `json:"kind"`
	Elem  *Type  `json:"elem,omitempty"`
	Key   *Type  `json:"key,omitempty"`
	Value *Type  `json:"value,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (t Type) String() string {
	switch t.Kind {
	case KindOptional:
		return t.Elem.String() + "?"
	case KindSequence:
		return "sequence<" + t.Elem.String() + ">"
	case KindMap:
		return "record<" + t.Key.String() + ", " + t.Value.String() + ">"
	case KindEnum, KindRecord, KindObject, KindCallback, KindError:
		return t.Name
	default:
		return t.Kind.String()
	}
}

// IsScalar reports whether the type passes across the FFI as a fixed-width
// value with no buffer encoding.
func (t Type) IsScalar() bool {
	switch t.Kind {
	case KindBoolean,
		KindInt8, KindInt16, KindInt32, KindInt64,
		KindUInt8, KindUInt16, KindUInt32, KindUInt64,
		KindFloat32, KindFloat64,
		KindTimestamp, KindDuration:
		return true
	}
	return false
}

// IsInteger reports whether the type is a fixed-width integer scalar.
func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return true
	}
	return false
}

// ContainsObject reports whether an Object type appears anywhere in the
// type graph. Objects are reference types and may never be embedded in a
// value type such as a record field or enum variant field.
func (t Type) ContainsObject() bool {
	switch t.Kind {
	case KindObject:
		return true
	case KindOptional, KindSequence:
		return t.Elem.ContainsObject()
	case KindMap:
		return t.Key.ContainsObject() || t.Value.ContainsObject()
	}
	return false
}

// ValidMapKey reports whether the type may be used as a map key. Keys are
// restricted to strings and scalar kinds.
func (t Type) ValidMapKey() bool {
	return t.Kind == KindString || t.IsScalar()
}

// Walk calls fn for the type and every type nested inside it.
func (t Type) Walk(fn func(Type)) {
	fn(t)
	switch t.Kind {
	case KindOptional, KindSequence:
		t.Elem.Walk(fn)
	case KindMap:
		t.Key.Walk(fn)
		t.Value.Walk(fn)
	}
}

// Constructor helpers keep call sites terse.

func Scalar(k Kind) Type        { return Type{Kind: k} }
func String() Type              { return Type{Kind: KindString} }
func Bytes() Type               { return Type{Kind: KindBytes} }
func OptionalOf(t Type) Type    { return Type{Kind: KindOptional, Elem: &t} }
func SequenceOf(t Type) Type    { return Type{Kind: KindSequence, Elem: &t} }
func MapOf(k, v Type) Type      { return Type{Kind: KindMap, Key: &k, Value: &v} }
func EnumRef(name string) Type  { return Type{Kind: KindEnum, Name: name} }
func RecordRef(name string) Type {
	return Type{Kind: KindRecord, Name: name}
}
func ObjectRef(name string) Type {
	return Type{Kind: KindObject, Name: name}
}
func CallbackRef(name string) Type {
	return Type{Kind: KindCallback, Name: name}
}
func ErrorRef(name string) Type {
	return Type{Kind: KindError, Name: name}
}
