package ffi

import "fmt"

// Type is the closed set of low-level scaffolding types. Everything that
// crosses the boundary is one of these: a fixed-width scalar, a pointer-sized
// opaque handle, an owned byte buffer, or a registered foreign callback.
type Type int

const (
	Int8 Type = iota
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Handle          // opaque pointer-sized object reference
	Buffer          // owned {ptr, len, cap} byte buffer
	ForeignCallback // integer handle into the foreign dispatch table
)

func (t Type) String() string {
	switch t {
	case Int8:
		return "int8_t"
	case Int16:
		return "int16_t"
	case Int32:
		return "int32_t"
	case Int64:
		return "int64_t"
	case UInt8:
		return "uint8_t"
	case UInt16:
		return "uint16_t"
	case UInt32:
		return "uint32_t"
	case UInt64:
		return "uint64_t"
	case Float32:
		return "float"
	case Float64:
		return "double"
	case Handle:
		return "uint64_t"
	case Buffer:
		return "ForeignBytes"
	case ForeignCallback:
		return "uint64_t"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Argument is one named argument of a scaffolding function.
type Argument struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Function is one exported scaffolding symbol. Every function additionally
// takes a trailing out-pointer to a CallStatus record; HasCallStatus is
// always true and exists so consumers can assert the contract rather than
// assume it.
type Function struct {
	Name          string     `json:"name"`
	Arguments     []Argument `json:"arguments"`
	Return        *Type      `json:"return,omitempty"`
	HasCallStatus bool       `json:"hasCallStatus"`

	// ErrorType names the declared error enum lifted from an Err status
	// buffer, or "" when only generic failures and panics are possible.
	ErrorType string `json:"errorType,omitempty"`
}

// CallStatusCode enumerates the three states of the out-of-band call status
// slot attached to every scaffolding call.
type CallStatusCode int8

const (
	// CallOk means the return value slot is populated.
	CallOk CallStatusCode = 0
	// CallError means the status buffer holds the serialized declared
	// error value; the caller handles it as a normal branch.
	CallError CallStatusCode = 1
	// CallPanic means the native implementation hit a broken invariant.
	// The status buffer holds a diagnostic string, never domain data, and
	// the condition is fatal and non-retryable for the caller.
	CallPanic CallStatusCode = 2
)

func (c CallStatusCode) String() string {
	switch c {
	case CallOk:
		return "ok"
	case CallError:
		return "error"
	case CallPanic:
		return "panic"
	default:
		return fmt.Sprintf("CallStatusCode(%d)", int8(c))
	}
}
