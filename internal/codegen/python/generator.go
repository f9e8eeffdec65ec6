// Package python generates a Python binding module from a component
// interface. All type spelling comes from the python oracle; the generator
// itself only walks the model and the derived signatures.
package python

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crossbind/crossbind/internal/codegen/writer"
	"github.com/crossbind/crossbind/internal/ffi"
	"github.com/crossbind/crossbind/internal/model"
	"github.com/crossbind/crossbind/internal/oracle"
)

// Generator generates Python bindings.
type Generator struct {
	moduleName string
	oracle     *oracle.Oracle

	ci   *model.ComponentInterface
	sigs *ffi.SignatureSet

	// used holds every semantic type the component mentions, in first
	// appearance order, deduplicated by tag. Conversion helpers are
	// emitted for these and only these: a schema that never mentions an
	// integer type gets no integer helper machinery.
	used    []model.Type
	hasTags map[string]bool
}

// NewGenerator creates a Python binding generator.
func NewGenerator(moduleName string) *Generator {
	o, _ := oracle.ForLanguage("python")
	return &Generator{moduleName: moduleName, oracle: o}
}

// Language returns the target language name.
func (g *Generator) Language() string {
	return "python"
}

// FileExtension returns the extension for generated files.
func (g *Generator) FileExtension() string {
	return ".py"
}

// Generate produces the binding module source.
func (g *Generator) Generate(ci *model.ComponentInterface, sigs *ffi.SignatureSet) ([]byte, error) {
	g.ci = ci
	g.sigs = sigs
	g.collectUsedTypes()

	w := writer.NewWriter("    ")
	if err := g.writePreamble(w); err != nil {
		return nil, err
	}
	if err := g.writeHelpers(w); err != nil {
		return nil, err
	}
	for i := range ci.Enums {
		if err := g.writeEnum(w, &ci.Enums[i]); err != nil {
			return nil, err
		}
	}
	for i := range ci.Records {
		if err := g.writeRecord(w, &ci.Records[i]); err != nil {
			return nil, err
		}
	}
	for i := range ci.Objects {
		if err := g.writeObject(w, &ci.Objects[i]); err != nil {
			return nil, err
		}
	}
	for i := range ci.Callbacks {
		g.writeCallback(w, &ci.Callbacks[i])
	}
	for i := range ci.Functions {
		if err := g.writeFunction(w, &ci.Functions[i]); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func (g *Generator) collectUsedTypes() {
	g.hasTags = make(map[string]bool)
	g.used = nil
	g.ci.IterTypes(func(t model.Type) {
		tag := oracle.Tag(t)
		if !g.hasTags[tag] {
			g.hasTags[tag] = true
			g.used = append(g.used, t)
		}
	})
}

// passesByBuffer mirrors the FFI deriver's lowering rule.
func (g *Generator) passesByBuffer(t model.Type) bool {
	switch t.Kind {
	case model.KindString, model.KindBytes, model.KindOptional,
		model.KindSequence, model.KindMap, model.KindRecord, model.KindError:
		return true
	case model.KindEnum:
		e := g.ci.GetEnumDefinition(t.Name)
		return e != nil && e.HasAssociatedData()
	}
	return false
}

func (g *Generator) needsStream() bool {
	for _, t := range g.used {
		if g.passesByBuffer(t) {
			return true
		}
	}
	// Callback arguments and returns always travel serialized, whatever
	// their kind, so dispatch needs the stream machinery too.
	for i := range g.ci.Callbacks {
		for _, m := range g.ci.Callbacks[i].Methods {
			if len(m.Arguments) > 0 || m.Return != nil {
				return true
			}
		}
	}
	return false
}

func (g *Generator) usesKind(kinds ...model.Kind) bool {
	for _, t := range g.used {
		for _, k := range kinds {
			if t.Kind == k {
				return true
			}
		}
	}
	return false
}

func (g *Generator) writePreamble(w *writer.Writer) error {
	w.WriteLinef(`"""Python bindings for the %s component. Generated by crossbind; do not edit."""`, g.ci.Namespace)
	w.BlankLine()
	w.WriteLine("import ctypes")
	w.WriteLine("import ctypes.util")
	if len(g.ci.Enums) > 0 {
		w.WriteLine("import enum")
	}
	if g.needsStream() {
		w.WriteLine("import struct")
	}
	if g.usesKind(model.KindTimestamp) {
		w.WriteLine("import calendar")
	}
	if g.usesKind(model.KindTimestamp, model.KindDuration) {
		w.WriteLine("import datetime")
	}
	w.BlankLine()
	w.WriteLinef(`_lib = ctypes.CDLL(ctypes.util.find_library("%s_%s") or "lib%s_%s.so")`,
		g.moduleName, g.ci.Namespace, g.moduleName, g.ci.Namespace)
	w.BlankLine()

	// Call status plumbing shared by every exported symbol.
	w.WriteLine("class _ForeignBytes(ctypes.Structure):")
	w.Indent()
	w.WriteLine(`_fields_ = [("ptr", ctypes.POINTER(ctypes.c_uint8)), ("len", ctypes.c_int32), ("cap", ctypes.c_int32)]`)
	w.Dedent()
	w.BlankLine()
	w.WriteLine("class _CallStatus(ctypes.Structure):")
	w.Indent()
	w.WriteLine(`_fields_ = [("code", ctypes.c_int8), ("payload", _ForeignBytes)]`)
	w.Dedent()
	w.BlankLine()
	g.writePrototypes(w)
	w.WriteLine("class InternalError(Exception):")
	w.Indent()
	w.WriteLine(`"""The native implementation panicked. Fatal and non-retryable;`)
	w.WriteLine(`the message is diagnostic text, never domain data."""`)
	w.Dedent()
	w.BlankLine()
	w.WriteLine("def _consume_buffer(buf):")
	w.Indent()
	w.WriteLine("# Ownership handoff: copy out, then free through the exported")
	w.WriteLine("# entry point, exactly once.")
	w.WriteLine("data = bytes(ctypes.cast(buf.ptr, ctypes.POINTER(ctypes.c_uint8 * buf.len)).contents) if buf.len else b\"\"")
	w.WriteLinef("_lib.%s(buf, ctypes.byref(_CallStatus()))", g.sigs.BufferFree.Name)
	w.WriteLine("return data")
	w.Dedent()
	w.BlankLine()
	w.WriteLine("def _invoke(fn, lift_error, *args):")
	w.Indent()
	w.WriteLine("status = _CallStatus()")
	w.WriteLine("result = fn(*args, ctypes.byref(status))")
	w.WriteLine("if status.code == 0:")
	w.Indent()
	w.WriteLine("return result")
	w.Dedent()
	w.WriteLine("if status.code == 1 and lift_error is not None:")
	w.Indent()
	w.WriteLine("raise lift_error(_consume_buffer(status.payload))")
	w.Dedent()
	w.WriteLine(`raise InternalError(_consume_buffer(status.payload).decode("utf-8", errors="replace"))`)
	w.Dedent()
	w.BlankLine()
	if g.needsStream() {
		w.WriteLine("def _new_buffer(data):")
		w.Indent()
		w.WriteLine("# Buffers handed to the native side come from its own allocator,")
		w.WriteLine("# so either side can free them through the exported pair.")
		w.WriteLinef("buf = _invoke(_lib.%s, None, len(data))", g.sigs.BufferAlloc.Name)
		w.WriteLine("if data:")
		w.Indent()
		w.WriteLine("ctypes.memmove(buf.ptr, data, len(data))")
		w.Dedent()
		w.WriteLine("buf.len = len(data)")
		w.WriteLine("return buf")
		w.Dedent()
		w.BlankLine()
	}
	return nil
}

// ctypesSpellings maps each scaffolding type onto its ctypes declaration.
var ctypesSpellings = map[ffi.Type]string{
	ffi.Int8:            "ctypes.c_int8",
	ffi.Int16:           "ctypes.c_int16",
	ffi.Int32:           "ctypes.c_int32",
	ffi.Int64:           "ctypes.c_int64",
	ffi.UInt8:           "ctypes.c_uint8",
	ffi.UInt16:          "ctypes.c_uint16",
	ffi.UInt32:          "ctypes.c_uint32",
	ffi.UInt64:          "ctypes.c_uint64",
	ffi.Float32:         "ctypes.c_float",
	ffi.Float64:         "ctypes.c_double",
	ffi.Handle:          "ctypes.c_uint64",
	ffi.Buffer:          "_ForeignBytes",
	ffi.ForeignCallback: "ctypes.c_void_p",
}

// writePrototypes declares argtypes/restype for every exported symbol.
// ctypes defaults every return to c_int, which would truncate handles and
// misread returned buffer structs.
func (g *Generator) writePrototypes(w *writer.Writer) {
	w.WriteLine("_STATUS_PTR = ctypes.POINTER(_CallStatus)")
	fns := make([]ffi.Function, 0, len(g.sigs.Functions)+2)
	fns = append(fns, g.sigs.Functions...)
	fns = append(fns, g.sigs.BufferAlloc, g.sigs.BufferFree)
	for _, fn := range fns {
		args := make([]string, 0, len(fn.Arguments)+1)
		for _, a := range fn.Arguments {
			args = append(args, ctypesSpellings[a.Type])
		}
		args = append(args, "_STATUS_PTR")
		w.WriteLinef("_lib.%s.argtypes = [%s]", fn.Name, strings.Join(args, ", "))
		ret := "None"
		if fn.Return != nil {
			ret = ctypesSpellings[*fn.Return]
		}
		w.WriteLinef("_lib.%s.restype = %s", fn.Name, ret)
	}
	w.BlankLine()
}

// scalar struct-format characters for the big-endian wire encoding.
var packFormats = map[model.Kind]string{
	model.KindBoolean: "b",
	model.KindInt8:    "b",
	model.KindInt16:   "h",
	model.KindInt32:   "i",
	model.KindInt64:   "q",
	model.KindUInt8:   "B",
	model.KindUInt16:  "H",
	model.KindUInt32:  "I",
	model.KindUInt64:  "Q",
	model.KindFloat32: "f",
	model.KindFloat64: "d",
}

var intBounds = map[model.Kind][2]string{
	model.KindInt8:   {"-0x80", "0x7f"},
	model.KindInt16:  {"-0x8000", "0x7fff"},
	model.KindInt32:  {"-0x80000000", "0x7fffffff"},
	model.KindInt64:  {"-0x8000000000000000", "0x7fffffffffffffff"},
	model.KindUInt8:  {"0", "0xff"},
	model.KindUInt16: {"0", "0xffff"},
	model.KindUInt32: {"0", "0xffffffff"},
	model.KindUInt64: {"0", "0xffffffffffffffff"},
}

func (g *Generator) writeHelpers(w *writer.Writer) error {
	if g.needsStream() {
		g.writeStreamClasses(w)
	}

	for _, t := range g.used {
		if err := g.writeConverters(w, t); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeStreamClasses(w *writer.Writer) {
	w.WriteLine("class _BufferWriter:")
	w.Indent()
	w.WriteLine("def __init__(self):")
	w.Indent()
	w.WriteLine("self.buf = bytearray()")
	w.Dedent()
	w.WriteLine("def pack(self, fmt, value):")
	w.Indent()
	w.WriteLine(`self.buf += struct.pack(">" + fmt, value)`)
	w.Dedent()
	w.WriteLine("def write_bytes(self, data):")
	w.Indent()
	w.WriteLine(`self.pack("i", len(data))`)
	w.WriteLine("self.buf += data")
	w.Dedent()
	w.Dedent()
	w.BlankLine()
	w.WriteLine("class _BufferReader:")
	w.Indent()
	w.WriteLine("def __init__(self, data):")
	w.Indent()
	w.WriteLine("self.data = data")
	w.WriteLine("self.off = 0")
	w.Dedent()
	w.WriteLine("def unpack(self, fmt, size):")
	w.Indent()
	w.WriteLine(`value = struct.unpack_from(">" + fmt, self.data, self.off)[0]`)
	w.WriteLine("self.off += size")
	w.WriteLine("return value")
	w.Dedent()
	w.WriteLine("def read_bytes(self):")
	w.Indent()
	w.WriteLine(`n = self.unpack("i", 4)`)
	w.WriteLine("data = self.data[self.off:self.off + n]")
	w.WriteLine("if len(data) != n:")
	w.Indent()
	w.WriteLine(`raise InternalError("truncated buffer")`)
	w.Dedent()
	w.WriteLine("self.off += n")
	w.WriteLine("return data")
	w.Dedent()
	w.WriteLine("def done(self):")
	w.Indent()
	w.WriteLine("if self.off != len(self.data):")
	w.Indent()
	w.WriteLine(`raise InternalError("junk after buffer contents")`)
	w.Dedent()
	w.Dedent()
	w.Dedent()
	w.BlankLine()
}

// writeConverters emits the _lower/_lift pair for a type, plus the
// _write/_read stream pair when the type can occur inside a buffer.
func (g *Generator) writeConverters(w *writer.Writer, t model.Type) error {
	tag := oracle.Tag(t)
	stream := g.needsStream()

	switch t.Kind {
	case model.KindBoolean:
		w.WriteLinef("def _lower_%s(value):", tag)
		w.Indent()
		w.WriteLine("return 1 if value else 0")
		w.Dedent()
		w.WriteLinef("def _lift_%s(value):", tag)
		w.Indent()
		w.WriteLine("return value != 0")
		w.Dedent()
		w.BlankLine()
	case model.KindInt8, model.KindInt16, model.KindInt32, model.KindInt64,
		model.KindUInt8, model.KindUInt16, model.KindUInt32, model.KindUInt64:
		bounds := intBounds[t.Kind]
		w.WriteLinef("def _lower_%s(value):", tag)
		w.Indent()
		w.WriteLinef("if not %s <= value <= %s:", bounds[0], bounds[1])
		w.Indent()
		w.WriteLinef(`raise ValueError("value out of range for %s")`, tag)
		w.Dedent()
		w.WriteLine("return value")
		w.Dedent()
		w.WriteLinef("def _lift_%s(value):", tag)
		w.Indent()
		w.WriteLine("return value")
		w.Dedent()
		w.BlankLine()
	case model.KindFloat32, model.KindFloat64:
		w.WriteLinef("def _lower_%s(value):", tag)
		w.Indent()
		w.WriteLine("return float(value)")
		w.Dedent()
		w.WriteLinef("def _lift_%s(value):", tag)
		w.Indent()
		w.WriteLine("return value")
		w.Dedent()
		w.BlankLine()
	case model.KindTimestamp:
		// Integer composition end to end; float seconds cannot carry
		// nanosecond precision.
		w.WriteLine("_EPOCH = datetime.datetime(1970, 1, 1, tzinfo=datetime.timezone.utc)")
		w.WriteLine("def _lower_timestamp(value):")
		w.Indent()
		w.WriteLine("seconds = calendar.timegm(value.utctimetuple())")
		w.WriteLine("return seconds * 1_000_000_000 + value.microsecond * 1_000")
		w.Dedent()
		w.WriteLine("def _lift_timestamp(value):")
		w.Indent()
		w.WriteLine("return _EPOCH + datetime.timedelta(seconds=value // 1_000_000_000, microseconds=(value % 1_000_000_000) // 1_000)")
		w.Dedent()
		w.BlankLine()
	case model.KindDuration:
		w.WriteLine("def _lower_duration(value):")
		w.Indent()
		w.WriteLine("return (value.days * 86_400 + value.seconds) * 1_000_000_000 + value.microseconds * 1_000")
		w.Dedent()
		w.WriteLine("def _lift_duration(value):")
		w.Indent()
		w.WriteLine("return datetime.timedelta(seconds=value // 1_000_000_000, microseconds=(value % 1_000_000_000) // 1_000)")
		w.Dedent()
		w.BlankLine()
	case model.KindString:
		w.WriteLine("def _lower_string(value):")
		w.Indent()
		w.WriteLine(`return _new_buffer(value.encode("utf-8"))`)
		w.Dedent()
		w.WriteLine("def _lift_string(value):")
		w.Indent()
		w.WriteLine(`return _consume_buffer(value).decode("utf-8")`)
		w.Dedent()
		w.BlankLine()
	case model.KindBytes:
		w.WriteLine("def _lower_bytes(value):")
		w.Indent()
		w.WriteLine("return _new_buffer(bytes(value))")
		w.Dedent()
		w.WriteLine("def _lift_bytes(value):")
		w.Indent()
		w.WriteLine("return _consume_buffer(value)")
		w.Dedent()
		w.BlankLine()
	case model.KindOptional, model.KindSequence, model.KindMap:
		if err := g.writeCompoundConverters(w, t, tag); err != nil {
			return err
		}
	case model.KindEnum, model.KindError, model.KindRecord, model.KindObject, model.KindCallback:
		// Converters for declarations are emitted next to the class.
		return nil
	}

	if stream && t.IsScalar() {
		g.writeScalarStreamPair(w, t, tag)
	}
	if stream && (t.Kind == model.KindString || t.Kind == model.KindBytes) {
		g.writeBytesStreamPair(w, t, tag)
	}
	return nil
}

func (g *Generator) writeScalarStreamPair(w *writer.Writer, t model.Type, tag string) {
	fmtChar, ok := packFormats[t.Kind]
	if !ok {
		// timestamp/duration nest as i64 seconds + u32 nanos
		w.WriteLinef("def _write_%s(stream, value):", tag)
		w.Indent()
		w.WriteLinef("nanos = _lower_%s(value)", tag)
		w.WriteLine(`stream.pack("q", nanos // 1_000_000_000)`)
		w.WriteLine(`stream.pack("I", nanos % 1_000_000_000)`)
		w.Dedent()
		w.WriteLinef("def _read_%s(stream):", tag)
		w.Indent()
		w.WriteLine(`seconds = stream.unpack("q", 8)`)
		w.WriteLine(`nanos = stream.unpack("I", 4)`)
		w.WriteLinef("return _lift_%s(seconds * 1_000_000_000 + nanos)", tag)
		w.Dedent()
		w.BlankLine()
		return
	}
	size := packSize(fmtChar)
	w.WriteLinef("def _write_%s(stream, value):", tag)
	w.Indent()
	w.WriteLinef(`stream.pack("%s", _lower_%s(value))`, fmtChar, tag)
	w.Dedent()
	w.WriteLinef("def _read_%s(stream):", tag)
	w.Indent()
	w.WriteLinef(`return _lift_%s(stream.unpack("%s", %d))`, tag, fmtChar, size)
	w.Dedent()
	w.BlankLine()
}

func (g *Generator) writeBytesStreamPair(w *writer.Writer, t model.Type, tag string) {
	w.WriteLinef("def _write_%s(stream, value):", tag)
	w.Indent()
	if t.Kind == model.KindString {
		w.WriteLine(`stream.write_bytes(value.encode("utf-8"))`)
	} else {
		w.WriteLine("stream.write_bytes(bytes(value))")
	}
	w.Dedent()
	w.WriteLinef("def _read_%s(stream):", tag)
	w.Indent()
	if t.Kind == model.KindString {
		w.WriteLine(`return stream.read_bytes().decode("utf-8")`)
	} else {
		w.WriteLine("return bytes(stream.read_bytes())")
	}
	w.Dedent()
	w.BlankLine()
}

func (g *Generator) writeCompoundConverters(w *writer.Writer, t model.Type, tag string) error {
	w.WriteLinef("def _write_%s(stream, value):", tag)
	w.Indent()
	switch t.Kind {
	case model.KindOptional:
		w.WriteLine("if value is None:")
		w.Indent()
		w.WriteLine(`stream.pack("b", 0)`)
		w.WriteLine("return")
		w.Dedent()
		w.WriteLine(`stream.pack("b", 1)`)
		w.WriteLinef("_write_%s(stream, value)", oracle.Tag(*t.Elem))
	case model.KindSequence:
		w.WriteLine(`stream.pack("i", len(value))`)
		w.WriteLine("for item in value:")
		w.Indent()
		w.WriteLinef("_write_%s(stream, item)", oracle.Tag(*t.Elem))
		w.Dedent()
	case model.KindMap:
		w.WriteLine(`stream.pack("i", len(value))`)
		w.WriteLine("for key, item in value.items():")
		w.Indent()
		w.WriteLinef("_write_%s(stream, key)", oracle.Tag(*t.Key))
		w.WriteLinef("_write_%s(stream, item)", oracle.Tag(*t.Value))
		w.Dedent()
	}
	w.Dedent()

	w.WriteLinef("def _read_%s(stream):", tag)
	w.Indent()
	switch t.Kind {
	case model.KindOptional:
		w.WriteLine(`if stream.unpack("b", 1) == 0:`)
		w.Indent()
		w.WriteLine("return None")
		w.Dedent()
		w.WriteLinef("return _read_%s(stream)", oracle.Tag(*t.Elem))
	case model.KindSequence:
		w.WriteLinef(`return [_read_%s(stream) for _ in range(stream.unpack("i", 4))]`, oracle.Tag(*t.Elem))
	case model.KindMap:
		w.WriteLinef(`return {_read_%s(stream): _read_%s(stream) for _ in range(stream.unpack("i", 4))}`,
			oracle.Tag(*t.Key), oracle.Tag(*t.Value))
	}
	w.Dedent()
	w.BlankLine()

	g.writeBufferLowerLift(w, tag)
	return nil
}

// writeBufferLowerLift wraps a stream pair into the FFI-level buffer
// conversion used at call sites.
func (g *Generator) writeBufferLowerLift(w *writer.Writer, tag string) {
	w.WriteLinef("def _lower_%s(value):", tag)
	w.Indent()
	w.WriteLine("stream = _BufferWriter()")
	w.WriteLinef("_write_%s(stream, value)", tag)
	w.WriteLine("return _new_buffer(bytes(stream.buf))")
	w.Dedent()
	w.WriteLinef("def _lift_%s(value):", tag)
	w.Indent()
	w.WriteLine("stream = _BufferReader(_consume_buffer(value) if isinstance(value, _ForeignBytes) else bytes(value))")
	w.WriteLinef("result = _read_%s(stream)", tag)
	w.WriteLine("stream.done()")
	w.WriteLine("return result")
	w.Dedent()
	w.BlankLine()
}

func (g *Generator) writeEnum(w *writer.Writer, e *model.Enum) error {
	if e.IsError {
		return g.writeErrorEnum(w, e)
	}
	if !e.HasAssociatedData() {
		w.WriteLinef("class %s(enum.Enum):", e.Name)
		w.Indent()
		w.WriteCommentBlock("# ", e.Doc)
		for i, v := range e.Variants {
			w.WriteLinef("%s = %d", v.Name, i)
		}
		w.Dedent()
		w.BlankLine()
		// Fieldless enums cross the FFI as their i32 discriminant; no
		// buffer machinery is involved.
		w.WriteLinef("def _lower_%s(value):", e.Name)
		w.Indent()
		w.WriteLine("return value.value")
		w.Dedent()
		w.WriteLinef("def _lift_%s(value):", e.Name)
		w.Indent()
		w.WriteLinef("return %s(value)", e.Name)
		w.Dedent()
		if g.needsStream() {
			w.WriteLinef("def _write_%s(stream, value):", e.Name)
			w.Indent()
			w.WriteLine(`stream.pack("i", value.value)`)
			w.Dedent()
			w.WriteLinef("def _read_%s(stream):", e.Name)
			w.Indent()
			w.WriteLinef(`return %s(stream.unpack("i", 4))`, e.Name)
			w.Dedent()
		}
		w.BlankLine()
		return nil
	}
	return g.writeDataEnum(w, e, "object")
}

// writeDataEnum emits a tagged union: a base class plus one subclass per
// variant, and stream converters dispatching on the source-order
// discriminant.
func (g *Generator) writeDataEnum(w *writer.Writer, e *model.Enum, base string) error {
	w.WriteLinef("class %s(%s):", e.Name, base)
	w.Indent()
	w.WriteCommentBlock("# ", e.Doc)
	w.WriteLine("pass")
	w.Dedent()
	w.BlankLine()

	for _, v := range e.Variants {
		w.WriteLinef("class %s%s(%s):", e.Name, v.Name, e.Name)
		w.Indent()
		if len(v.Fields) == 0 {
			w.WriteLine("pass")
		} else {
			w.Write("def __init__(self")
			for _, f := range v.Fields {
				w.Writef(", %s", f.Name)
			}
			w.WriteLine("):")
			w.Indent()
			if base == "Exception" {
				w.WriteLine("super().__init__()")
			}
			for _, f := range v.Fields {
				w.WriteLinef("self.%s = %s", f.Name, f.Name)
			}
			w.Dedent()
		}
		w.Dedent()
		w.BlankLine()
	}

	w.WriteLinef("def _write_%s(stream, value):", e.Name)
	w.Indent()
	for i, v := range e.Variants {
		cond := "elif"
		if i == 0 {
			cond = "if"
		}
		w.WriteLinef("%s isinstance(value, %s%s):", cond, e.Name, v.Name)
		w.Indent()
		w.WriteLinef(`stream.pack("i", %d)`, i)
		for _, f := range v.Fields {
			w.WriteLinef("_write_%s(stream, value.%s)", oracle.Tag(f.Type), f.Name)
		}
		w.Dedent()
	}
	w.WriteLine("else:")
	w.Indent()
	w.WriteLinef(`raise TypeError("not a %s variant")`, e.Name)
	w.Dedent()
	w.Dedent()

	w.WriteLinef("def _read_%s(stream):", e.Name)
	w.Indent()
	w.WriteLine(`variant = stream.unpack("i", 4)`)
	for i, v := range e.Variants {
		cond := "elif"
		if i == 0 {
			cond = "if"
		}
		w.WriteLinef("%s variant == %d:", cond, i)
		w.Indent()
		w.Writef("return %s%s(", e.Name, v.Name)
		for j, f := range v.Fields {
			if j > 0 {
				w.Write(", ")
			}
			w.Writef("_read_%s(stream)", oracle.Tag(f.Type))
		}
		w.WriteLine(")")
		w.Dedent()
	}
	w.WriteLinef(`raise InternalError("invalid %s discriminant")`, e.Name)
	w.Dedent()
	w.BlankLine()

	g.writeBufferLowerLift(w, e.Name)
	return nil
}

// writeErrorEnum emits exception classes. Errors always arrive serialized
// in the call status payload, so the lift side reads raw bytes.
func (g *Generator) writeErrorEnum(w *writer.Writer, e *model.Enum) error {
	if e.HasAssociatedData() {
		return g.writeDataEnum(w, e, "Exception")
	}

	w.WriteLinef("class %s(Exception):", e.Name)
	w.Indent()
	w.WriteCommentBlock("# ", e.Doc)
	w.WriteLine("pass")
	w.Dedent()
	w.BlankLine()
	for _, v := range e.Variants {
		w.WriteLinef("class %s%s(%s):", e.Name, v.Name, e.Name)
		w.Indent()
		w.WriteLine("pass")
		w.Dedent()
		w.BlankLine()
	}

	w.WriteLinef("_%s_VARIANTS = [", e.Name)
	w.Indent()
	for _, v := range e.Variants {
		w.WriteLinef("%s%s,", e.Name, v.Name)
	}
	w.Dedent()
	w.WriteLine("]")
	w.WriteLinef("def _lift_%s(data):", e.Name)
	w.Indent()
	w.WriteLine(`variant = int.from_bytes(data[:4], "big", signed=True)`)
	w.WriteLinef("return _%s_VARIANTS[variant]()", e.Name)
	w.Dedent()
	w.BlankLine()
	return nil
}

func (g *Generator) writeRecord(w *writer.Writer, r *model.Record) error {
	w.WriteLinef("class %s:", r.Name)
	w.Indent()
	w.WriteCommentBlock("# ", r.Doc)
	w.Write("def __init__(self")
	for _, f := range r.Fields {
		w.Writef(", %s", f.Name)
		if f.Default != nil {
			lit, err := g.pyLiteral(f.Type, f.Default)
			if err != nil {
				return err
			}
			w.Writef("=%s", lit)
		}
	}
	w.WriteLine("):")
	w.Indent()
	for _, f := range r.Fields {
		w.WriteLinef("self.%s = %s", f.Name, f.Name)
	}
	w.Dedent()
	w.BlankLine()
	w.WriteLine("def __eq__(self, other):")
	w.Indent()
	w.Writef("return isinstance(other, %s)", r.Name)
	for _, f := range r.Fields {
		w.Writef(" and self.%s == other.%s", f.Name, f.Name)
	}
	w.Newline()
	w.Dedent()
	w.Dedent()
	w.BlankLine()

	w.WriteLinef("def _write_%s(stream, value):", r.Name)
	w.Indent()
	if len(r.Fields) == 0 {
		w.WriteLine("pass")
	}
	for _, f := range r.Fields {
		w.WriteLinef("_write_%s(stream, value.%s)", oracle.Tag(f.Type), f.Name)
	}
	w.Dedent()
	w.WriteLinef("def _read_%s(stream):", r.Name)
	w.Indent()
	w.Writef("return %s(", r.Name)
	for i, f := range r.Fields {
		if i > 0 {
			w.Write(", ")
		}
		w.Writef("_read_%s(stream)", oracle.Tag(f.Type))
	}
	w.WriteLine(")")
	w.Dedent()
	w.BlankLine()
	g.writeBufferLowerLift(w, r.Name)
	return nil
}

func (g *Generator) writeObject(w *writer.Writer, o *model.Object) error {
	w.WriteLinef("class %s:", o.Name)
	w.Indent()
	w.WriteCommentBlock("# ", o.Doc)

	if primary := o.PrimaryConstructor(); primary != nil {
		sig, err := g.defSignature("self", primary.Arguments)
		if err != nil {
			return err
		}
		w.WriteLinef("def __init__(%s):", sig)
		w.Indent()
		call, err := g.callExpr(fmt.Sprintf("ctor:%s.", o.Name), primary.Throws, primary.Arguments, "")
		if err != nil {
			return err
		}
		w.WriteLinef("self._handle = %s", call)
		w.Dedent()
		w.BlankLine()
	}

	// Factory path used by named constructors and lifted return values;
	// bypasses __init__ and adopts an existing handle.
	w.WriteLine("@classmethod")
	w.WriteLine("def _from_handle(cls, handle):")
	w.Indent()
	w.WriteLine("obj = cls.__new__(cls)")
	w.WriteLine("obj._handle = handle")
	w.WriteLine("return obj")
	w.Dedent()
	w.BlankLine()

	for _, ctor := range o.Constructors {
		if ctor.Name == "" {
			continue
		}
		w.WriteLine("@classmethod")
		sig, err := g.defSignature("cls", ctor.Arguments)
		if err != nil {
			return err
		}
		w.WriteLinef("def %s(%s):", ctor.Name, sig)
		w.Indent()
		call, err := g.callExpr(fmt.Sprintf("ctor:%s.%s", o.Name, ctor.Name), ctor.Throws, ctor.Arguments, "")
		if err != nil {
			return err
		}
		w.WriteLinef("return cls._from_handle(%s)", call)
		w.Dedent()
		w.BlankLine()
	}

	for i := range o.Methods {
		m := &o.Methods[i]
		sig, err := g.defSignature("self", m.Arguments)
		if err != nil {
			return err
		}
		w.WriteLinef("def %s(%s):", m.Name, sig)
		w.Indent()
		w.WriteCommentBlock("# ", m.Doc)
		call, err := g.callExpr(fmt.Sprintf("method:%s.%s", o.Name, m.Name), m.Throws, m.Arguments, "self._handle")
		if err != nil {
			return err
		}
		if m.Return != nil {
			lifted, err := g.oracle.LiftExpr(*m.Return, call)
			if err != nil {
				return err
			}
			w.WriteLinef("return %s", lifted)
		} else {
			w.WriteLine(call)
		}
		w.Dedent()
		w.BlankLine()
	}

	freeSym := g.sigs.ForCallable("free:" + o.Name)
	w.WriteLine("def close(self):")
	w.Indent()
	w.WriteLine("# Releases the native handle. Idempotent; every later method")
	w.WriteLine("# call on a closed object is a usage error on the native side.")
	w.WriteLine(`if getattr(self, "_handle", None) is not None:`)
	w.Indent()
	w.WriteLinef("_invoke(_lib.%s, None, self._handle)", freeSym.Name)
	w.WriteLine("self._handle = None")
	w.Dedent()
	w.Dedent()
	w.BlankLine()
	w.WriteLine("def __enter__(self):")
	w.Indent()
	w.WriteLine("return self")
	w.Dedent()
	w.BlankLine()
	w.WriteLine("def __exit__(self, exc_type, exc_value, traceback):")
	w.Indent()
	w.WriteLine("self.close()")
	w.Dedent()
	w.BlankLine()
	w.WriteLine("def __del__(self):")
	w.Indent()
	w.WriteLine("# Eventual cleanup only; close() is the reliable path.")
	w.WriteLine("self.close()")
	w.Dedent()
	w.Dedent()
	w.BlankLine()
	return nil
}

func (g *Generator) writeCallback(w *writer.Writer, cb *model.CallbackInterface) {
	// The foreign side owns the implementations; handles index into this
	// registry and the trampoline dispatches by method ordinal. Safe to
	// invoke from any native thread.
	w.WriteLinef("_callback_registry_%s = {}", cb.Name)
	w.WriteLinef("_next_callback_handle_%s = 1", cb.Name)
	w.BlankLine()
	w.WriteLinef("def _register_callback_%s(obj):", cb.Name)
	w.Indent()
	w.WriteLinef("global _next_callback_handle_%s", cb.Name)
	w.WriteLinef("handle = _next_callback_handle_%s", cb.Name)
	w.WriteLinef("_next_callback_handle_%s += 1", cb.Name)
	w.WriteLinef("_callback_registry_%s[handle] = obj", cb.Name)
	w.WriteLine("return handle")
	w.Dedent()
	w.BlankLine()

	initSym := g.sigs.ForCallable("cbinit:" + cb.Name)
	w.WriteLinef("_TRAMPOLINE_%s = ctypes.CFUNCTYPE(ctypes.c_int8, ctypes.c_uint64, ctypes.c_int32, _ForeignBytes, ctypes.POINTER(_ForeignBytes))", cb.Name)
	w.BlankLine()
	w.WriteLinef("def _dispatch_%s(handle, method_index, args_buf, out_buf):", cb.Name)
	w.Indent()
	w.WriteLinef("obj = _callback_registry_%s.get(handle)", cb.Name)
	w.WriteLine("args_data = _consume_buffer(args_buf)")
	w.WriteLine("if obj is None:")
	w.Indent()
	w.WriteLine("return 2  # unknown handle is a broken invariant, surfaced as panic")
	w.Dedent()
	w.WriteLine("try:")
	w.Indent()
	for i := range cb.Methods {
		m := &cb.Methods[i]
		cond := "elif"
		if i == 0 {
			cond = "if"
		}
		w.WriteLinef("%s method_index == %d:", cond, i)
		w.Indent()
		callArgs := make([]string, 0, len(m.Arguments))
		if len(m.Arguments) > 0 {
			w.WriteLine("stream = _BufferReader(args_data)")
			for _, a := range m.Arguments {
				w.WriteLinef("arg_%s = _read_%s(stream)", a.Name, oracle.Tag(a.Type))
				callArgs = append(callArgs, "arg_"+a.Name)
			}
			w.WriteLine("stream.done()")
		}
		call := fmt.Sprintf("obj.%s(%s)", m.Name, strings.Join(callArgs, ", "))
		if m.Return != nil {
			w.WriteLinef("result = %s", call)
			w.WriteLine("out = _BufferWriter()")
			w.WriteLinef("_write_%s(out, result)", oracle.Tag(*m.Return))
			w.WriteLine("out_buf[0] = _new_buffer(bytes(out.buf))")
		} else {
			w.WriteLine(call)
		}
		w.WriteLine("return 0")
		w.Dedent()
	}
	w.WriteLine("return 2")
	w.Dedent()
	w.WriteLine("except Exception:")
	w.Indent()
	w.WriteLine("# A failing trampoline propagates as the native call's panic,")
	w.WriteLine("# never as a typed error.")
	w.WriteLine("return 2")
	w.Dedent()
	w.Dedent()
	w.BlankLine()
	w.WriteLinef("_trampoline_%s = _TRAMPOLINE_%s(_dispatch_%s)", cb.Name, cb.Name, cb.Name)
	w.WriteLinef("_invoke(_lib.%s, None, ctypes.cast(_trampoline_%s, ctypes.c_void_p))", initSym.Name, cb.Name)
	w.BlankLine()
}

func (g *Generator) writeFunction(w *writer.Writer, fn *model.Function) error {
	sig, err := g.defSignature("", fn.Arguments)
	if err != nil {
		return err
	}
	w.WriteLinef("def %s(%s):", fn.Name, sig)
	w.Indent()
	w.WriteCommentBlock("# ", fn.Doc)
	call, err := g.callExpr("fn:"+fn.Name, fn.Throws, fn.Arguments, "")
	if err != nil {
		return err
	}
	if fn.Return != nil {
		lifted, err := g.oracle.LiftExpr(*fn.Return, call)
		if err != nil {
			return err
		}
		w.WriteLinef("return %s", lifted)
	} else {
		w.WriteLine(call)
	}
	w.Dedent()
	w.BlankLine()
	return nil
}

func (g *Generator) defSignature(receiver string, args []model.Argument) (string, error) {
	parts := []string{}
	if receiver != "" {
		parts = append(parts, receiver)
	}
	for _, a := range args {
		part := a.Name
		if a.Default != nil {
			lit, err := g.pyLiteral(a.Type, a.Default)
			if err != nil {
				return "", err
			}
			part += "=" + lit
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", "), nil
}

func (g *Generator) callExpr(key, throws string, args []model.Argument, self string) (string, error) {
	fn := g.sigs.ForCallable(key)
	if fn == nil {
		return "", fmt.Errorf("python: no derived signature for %s", key)
	}
	liftError := "None"
	if throws != "" {
		liftError = "_lift_" + throws
	}
	parts := []string{"_lib." + fn.Name, liftError}
	if self != "" {
		parts = append(parts, self)
	}
	for _, a := range args {
		lowered, err := g.oracle.LowerExpr(a.Type, a.Name)
		if err != nil {
			return "", err
		}
		parts = append(parts, lowered)
	}
	return "_invoke(" + strings.Join(parts, ", ") + ")", nil
}

func (g *Generator) pyLiteral(t model.Type, lit *model.Literal) (string, error) {
	switch lit.Kind {
	case model.LitBool:
		if lit.Bool {
			return "True", nil
		}
		return "False", nil
	case model.LitInt:
		return strconv.FormatInt(lit.Int, 10), nil
	case model.LitFloat:
		return strconv.FormatFloat(lit.Float, 'g', -1, 64), nil
	case model.LitString:
		return strconv.Quote(lit.String), nil
	case model.LitNull:
		return "None", nil
	case model.LitEnumVariant:
		name := t.Name
		if t.Kind == model.KindOptional {
			name = t.Elem.Name
		}
		return name + "." + lit.Variant, nil
	default:
		return "", fmt.Errorf("python: unsupported default literal")
	}
}

func packSize(fmtChar string) int {
	switch fmtChar {
	case "b", "B":
		return 1
	case "h", "H":
		return 2
	case "i", "I", "f":
		return 4
	default:
		return 8
	}
}
