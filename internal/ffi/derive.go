package ffi

import (
	"fmt"

	"github.com/crossbind/crossbind/internal/model"
)

// MissingErrorTypeError reports a callable marked fallible without naming
// an error enum. It is raised at derivation time so the call status
// contract is well-typed before any code is generated.
type MissingErrorTypeError struct {
	Callable string
}

func (e *MissingErrorTypeError) Error() string {
	return fmt.Sprintf("'%s' can fail but declares no error type", e.Callable)
}

// SignatureSet is the full derived scaffolding surface for one component:
// one exported function per callable, one free function per object, one
// trampoline registration per callback interface, and a single global
// buffer alloc/free pair shared by every buffer-encoded type.
type SignatureSet struct {
	Namespace string `json:"namespace"`

	Functions []Function `json:"functions"`

	BufferAlloc Function `json:"bufferAlloc"`
	BufferFree  Function `json:"bufferFree"`

	byCallable map[string]int
}

// ForCallable returns the derived function for a callable key, or nil.
// Keys: "fn:<name>", "ctor:<Object>.<name>" (empty name for the primary),
// "method:<Object>.<name>", "free:<Object>", "cbinit:<Callback>".
func (s *SignatureSet) ForCallable(key string) *Function {
	idx, ok := s.byCallable[key]
	if !ok {
		return nil
	}
	return &s.Functions[idx]
}

// UsedTypes returns the set of FFI types appearing anywhere in the derived
// signatures. Generators consult this to emit only the conversion helpers a
// component actually needs; a schema with no integer types must not force
// integer helper machinery into the bindings.
func (s *SignatureSet) UsedTypes() map[Type]bool {
	used := make(map[Type]bool)
	visit := func(fn Function) {
		for _, a := range fn.Arguments {
			used[a.Type] = true
		}
		if fn.Return != nil {
			used[*fn.Return] = true
		}
	}
	for _, fn := range s.Functions {
		visit(fn)
	}
	return used
}

// Derive is a pure, one-shot transform from the ComponentInterface to its
// scaffolding signatures. It never mutates the interface.
func Derive(ci *model.ComponentInterface) (*SignatureSet, error) {
	d := &deriver{
		ci: ci,
		set: &SignatureSet{
			Namespace:  ci.Namespace,
			byCallable: make(map[string]int),
		},
	}

	for _, fn := range ci.Functions {
		name := fmt.Sprintf("ffi_%s_fn_%s", ci.Namespace, fn.Name)
		if err := d.addCallable("fn:"+fn.Name, name, nil, fn); err != nil {
			return nil, err
		}
	}

	for _, obj := range ci.Objects {
		for _, ctor := range obj.Constructors {
			symbol := fmt.Sprintf("ffi_%s_%s_new", ci.Namespace, obj.Name)
			if ctor.Name != "" {
				symbol = fmt.Sprintf("ffi_%s_%s_%s", ci.Namespace, obj.Name, ctor.Name)
			}
			ret := model.ObjectRef(obj.Name)
			m := model.Method{
				Name:      ctor.Name,
				Arguments: ctor.Arguments,
				Return:    &ret,
				Throws:    ctor.Throws,
				Fallible:  ctor.Fallible,
			}
			key := fmt.Sprintf("ctor:%s.%s", obj.Name, ctor.Name)
			if err := d.addCallable(key, symbol, nil, m); err != nil {
				return nil, err
			}
		}

		self := Handle
		for _, m := range obj.Methods {
			symbol := fmt.Sprintf("ffi_%s_%s_%s", ci.Namespace, obj.Name, m.Name)
			key := fmt.Sprintf("method:%s.%s", obj.Name, m.Name)
			if err := d.addCallable(key, symbol, &self, m); err != nil {
				return nil, err
			}
		}

		// Exactly one native allocation per live handle; the binding-side
		// wrapper releases it through this function when disposed.
		free := Function{
			Name:          fmt.Sprintf("ffi_%s_%s_object_free", ci.Namespace, obj.Name),
			Arguments:     []Argument{{Name: "handle", Type: Handle}},
			HasCallStatus: true,
		}
		d.add("free:"+obj.Name, free)
	}

	for _, cb := range ci.Callbacks {
		// Registered once per callback interface type; the native side
		// dispatches every method of the interface through it.
		init := Function{
			Name:          fmt.Sprintf("ffi_%s_%s_init_callback", ci.Namespace, cb.Name),
			Arguments:     []Argument{{Name: "callback_stub", Type: ForeignCallback}},
			HasCallStatus: true,
		}
		d.add("cbinit:"+cb.Name, init)
	}

	bufRet := Buffer
	d.set.BufferAlloc = Function{
		Name:          fmt.Sprintf("ffi_%s_bytebuffer_alloc", ci.Namespace),
		Arguments:     []Argument{{Name: "size", Type: Int32}},
		Return:        &bufRet,
		HasCallStatus: true,
	}
	d.set.BufferFree = Function{
		Name:          fmt.Sprintf("ffi_%s_bytebuffer_free", ci.Namespace),
		Arguments:     []Argument{{Name: "buf", Type: Buffer}},
		HasCallStatus: true,
	}

	return d.set, nil
}

type deriver struct {
	ci  *model.ComponentInterface
	set *SignatureSet
}

func (d *deriver) add(key string, fn Function) {
	d.set.Functions = append(d.set.Functions, fn)
	d.set.byCallable[key] = len(d.set.Functions) - 1
}

func (d *deriver) addCallable(key, symbol string, self *Type, m model.Method) error {
	if m.Fallible && m.Throws == "" {
		return &MissingErrorTypeError{Callable: key}
	}

	fn := Function{
		Name:          symbol,
		HasCallStatus: true,
		ErrorType:     m.Throws,
	}
	if self != nil {
		fn.Arguments = append(fn.Arguments, Argument{Name: "self", Type: *self})
	}
	for _, a := range m.Arguments {
		fn.Arguments = append(fn.Arguments, Argument{Name: a.Name, Type: d.lower(a.Type)})
	}
	if m.Return != nil {
		ret := d.lower(*m.Return)
		fn.Return = &ret
	}
	d.add(key, fn)
	return nil
}

// lower maps a semantic type to its scaffolding representation. Scalars,
// timestamps and durations pass as fixed-width values; fieldless enums pass
// as their i32 discriminant; objects and callbacks pass as handles; every
// other type serializes into an owned buffer.
func (d *deriver) lower(t model.Type) Type {
	switch t.Kind {
	case model.KindBoolean:
		return Int8
	case model.KindInt8:
		return Int8
	case model.KindInt16:
		return Int16
	case model.KindInt32:
		return Int32
	case model.KindInt64:
		return Int64
	case model.KindUInt8:
		return UInt8
	case model.KindUInt16:
		return UInt16
	case model.KindUInt32:
		return UInt32
	case model.KindUInt64:
		return UInt64
	case model.KindFloat32:
		return Float32
	case model.KindFloat64:
		return Float64
	case model.KindTimestamp, model.KindDuration:
		// Epoch/interval nanoseconds as a signed 64-bit value.
		return Int64
	case model.KindString, model.KindBytes:
		return Buffer
	case model.KindOptional, model.KindSequence, model.KindMap, model.KindRecord, model.KindError:
		return Buffer
	case model.KindEnum:
		if e := d.ci.GetEnumDefinition(t.Name); e != nil && e.HasAssociatedData() {
			return Buffer
		}
		return Int32
	case model.KindObject:
		return Handle
	case model.KindCallback:
		return ForeignCallback
	default:
		return Buffer
	}
}
