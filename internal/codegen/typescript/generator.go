// Package typescript generates a TypeScript binding module from a component
// interface. The generated module targets a native addon that exposes the
// derived symbols; every call returns a status record alongside its value.
package typescript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crossbind/crossbind/internal/codegen/writer"
	"github.com/crossbind/crossbind/internal/ffi"
	"github.com/crossbind/crossbind/internal/model"
	"github.com/crossbind/crossbind/internal/oracle"
)

// Generator generates TypeScript bindings.
type Generator struct {
	moduleName string
	oracle     *oracle.Oracle

	ci   *model.ComponentInterface
	sigs *ffi.SignatureSet

	used    []model.Type
	hasTags map[string]bool
}

// NewGenerator creates a TypeScript binding generator.
func NewGenerator(moduleName string) *Generator {
	o, _ := oracle.ForLanguage("typescript")
	return &Generator{moduleName: moduleName, oracle: o}
}

// Language returns the target language name.
func (g *Generator) Language() string {
	return "typescript"
}

// FileExtension returns the extension for generated files.
func (g *Generator) FileExtension() string {
	return ".ts"
}

// Generate produces the binding module source.
func (g *Generator) Generate(ci *model.ComponentInterface, sigs *ffi.SignatureSet) ([]byte, error) {
	g.ci = ci
	g.sigs = sigs
	g.collectUsedTypes()

	w := writer.NewWriter("  ")
	g.writePreamble(w)
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

func (g *Generator) writePreamble(w *writer.Writer) {
	w.WriteLinef("// TypeScript bindings for the %s component. Generated by crossbind; do not edit.", g.ci.Namespace)
	w.BlankLine()
	w.WriteLine("/* eslint-disable @typescript-eslint/no-explicit-any */")
	w.BlankLine()
	w.WriteLinef(`const _lib: Record<string, (...args: any[]) => NativeResult> = require("./%s_%s.node");`,
		g.moduleName, g.ci.Namespace)
	w.BlankLine()

	// The addon maps the trailing status out-pointer of each native symbol
	// onto the returned record.
	w.WriteLine("interface NativeResult {")
	w.Indent()
	w.WriteLine("code: number; // 0 = ok, 1 = declared error, 2 = panic")
	w.WriteLine("payload: Uint8Array;")
	w.WriteLine("value: any;")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("export class InternalError extends Error {}")
	w.BlankLine()
	w.WriteLine("function invoke(fn: (...args: any[]) => NativeResult, liftError: ((payload: Uint8Array) => Error) | null, ...args: any[]): any {")
	w.Indent()
	w.WriteLine("const result = fn(...args);")
	w.WriteLine("if (result.code === 0) {")
	w.Indent()
	w.WriteLine("return result.value;")
	w.Dedent()
	w.WriteLine("}")
	w.WriteLine("if (result.code === 1 && liftError !== null) {")
	w.Indent()
	w.WriteLine("throw liftError(result.payload);")
	w.Dedent()
	w.WriteLine("}")
	w.WriteLine(`throw new InternalError(new TextDecoder().decode(result.payload));`)
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
}

var tsRangeChecks = map[model.Kind][2]string{
	model.KindInt8:   {"-0x80", "0x7f"},
	model.KindInt16:  {"-0x8000", "0x7fff"},
	model.KindInt32:  {"-0x80000000", "0x7fffffff"},
	model.KindUInt8:  {"0", "0xff"},
	model.KindUInt16: {"0", "0xffff"},
	model.KindUInt32: {"0", "0xffffffff"},
}

var tsBigintChecks = map[model.Kind][2]string{
	model.KindInt64:  {"-0x8000000000000000n", "0x7fffffffffffffffn"},
	model.KindUInt64: {"0n", "0xffffffffffffffffn"},
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
	w.WriteLine("class BufferWriter {")
	w.Indent()
	w.WriteLine("private chunks: number[] = [];")
	w.BlankLine()
	w.WriteLine("byte(value: number): void {")
	w.Indent()
	w.WriteLine("this.chunks.push(value & 0xff);")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("// All multi-byte values are big-endian.")
	w.WriteLine("fixed(size: number, fill: (view: DataView) => void): void {")
	w.Indent()
	w.WriteLine("const buf = new ArrayBuffer(size);")
	w.WriteLine("fill(new DataView(buf));")
	w.WriteLine("this.chunks.push(...new Uint8Array(buf));")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("writeI32(value: number): void {")
	w.Indent()
	w.WriteLine("this.fixed(4, (v) => v.setInt32(0, value));")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("writeBytes(data: Uint8Array): void {")
	w.Indent()
	w.WriteLine("this.writeI32(data.length);")
	w.WriteLine("this.chunks.push(...data);")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("finish(): Uint8Array {")
	w.Indent()
	w.WriteLine("return Uint8Array.from(this.chunks);")
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("class BufferReader {")
	w.Indent()
	w.WriteLine("private view: DataView;")
	w.WriteLine("private off = 0;")
	w.BlankLine()
	w.WriteLine("constructor(private data: Uint8Array) {")
	w.Indent()
	w.WriteLine("this.view = new DataView(data.buffer, data.byteOffset, data.byteLength);")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("take<T>(size: number, read: (view: DataView, off: number) => T): T {")
	w.Indent()
	w.WriteLine("if (this.off + size > this.data.length) {")
	w.Indent()
	w.WriteLine(`throw new InternalError("truncated buffer");`)
	w.Dedent()
	w.WriteLine("}")
	w.WriteLine("const value = read(this.view, this.off);")
	w.WriteLine("this.off += size;")
	w.WriteLine("return value;")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("readI32(): number {")
	w.Indent()
	w.WriteLine("return this.take(4, (v, o) => v.getInt32(o));")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("readBytes(): Uint8Array {")
	w.Indent()
	w.WriteLine("const n = this.readI32();")
	w.WriteLine("return this.take(n, () => this.data.slice(this.off, this.off + n));")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLine("done(): void {")
	w.Indent()
	w.WriteLine("if (this.off !== this.data.length) {")
	w.Indent()
	w.WriteLine(`throw new InternalError("junk after buffer contents");`)
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
}

// scalarHelperSuffix matches the oracle's camelCase helper names for
// scalar kinds (Tag "i8" -> "I8").
func scalarHelperSuffix(t model.Type) string {
	tag := oracle.Tag(t)
	return strings.ToUpper(tag[:1]) + tag[1:]
}

type dataViewOp struct {
	size   int
	setter string
	getter string
}

var dataViewOps = map[model.Kind]dataViewOp{
	model.KindInt8:    {1, "setInt8", "getInt8"},
	model.KindInt16:   {2, "setInt16", "getInt16"},
	model.KindInt32:   {4, "setInt32", "getInt32"},
	model.KindInt64:   {8, "setBigInt64", "getBigInt64"},
	model.KindUInt8:   {1, "setUint8", "getUint8"},
	model.KindUInt16:  {2, "setUint16", "getUint16"},
	model.KindUInt32:  {4, "setUint32", "getUint32"},
	model.KindUInt64:  {8, "setBigUint64", "getBigUint64"},
	model.KindFloat32: {4, "setFloat32", "getFloat32"},
	model.KindFloat64: {8, "setFloat64", "getFloat64"},
}

func (g *Generator) writeConverters(w *writer.Writer, t model.Type) error {
	suffix := scalarHelperSuffix(t)
	tag := oracle.Tag(t)
	stream := g.needsStream()

	switch t.Kind {
	case model.KindBoolean:
		w.WriteLine("function lowerBoolean(value: boolean): number {")
		w.Indent()
		w.WriteLine("return value ? 1 : 0;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("function liftBoolean(value: number): boolean {")
		w.Indent()
		w.WriteLine("return value !== 0;")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindInt8, model.KindInt16, model.KindInt32,
		model.KindUInt8, model.KindUInt16, model.KindUInt32:
		bounds := tsRangeChecks[t.Kind]
		w.WriteLinef("function lower%s(value: number): number {", suffix)
		w.Indent()
		w.WriteLinef("if (!Number.isInteger(value) || value < %s || value > %s) {", bounds[0], bounds[1])
		w.Indent()
		w.WriteLinef("throw new RangeError(`value ${value} out of range for %s`);", tag)
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLinef("function lift%s(value: number): number {", suffix)
		w.Indent()
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindInt64, model.KindUInt64:
		bounds := tsBigintChecks[t.Kind]
		w.WriteLinef("function lower%s(value: bigint): bigint {", suffix)
		w.Indent()
		w.WriteLinef("if (value < %s || value > %s) {", bounds[0], bounds[1])
		w.Indent()
		w.WriteLinef("throw new RangeError(`value ${value} out of range for %s`);", tag)
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLinef("function lift%s(value: bigint): bigint {", suffix)
		w.Indent()
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindFloat32, model.KindFloat64:
		w.WriteLinef("function lower%s(value: number): number {", suffix)
		w.Indent()
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLinef("function lift%s(value: number): number {", suffix)
		w.Indent()
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindTimestamp:
		// Millisecond Date precision; sub-millisecond nanos round.
		w.WriteLine("function lowerTimestamp(value: Date): bigint {")
		w.Indent()
		w.WriteLine("return BigInt(value.getTime()) * 1_000_000n;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("function liftTimestamp(value: bigint): Date {")
		w.Indent()
		w.WriteLine("return new Date(Number(value / 1_000_000n));")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindDuration:
		w.WriteLine("// Durations surface as milliseconds.")
		w.WriteLine("function lowerDuration(value: number): bigint {")
		w.Indent()
		w.WriteLine("return BigInt(Math.round(value * 1_000_000));")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("function liftDuration(value: bigint): number {")
		w.Indent()
		w.WriteLine("return Number(value) / 1_000_000;")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindString:
		w.WriteLine("function lowerString(value: string): Uint8Array {")
		w.Indent()
		w.WriteLine("return new TextEncoder().encode(value);")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("function liftString(value: Uint8Array): string {")
		w.Indent()
		w.WriteLine("return new TextDecoder().decode(value);")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindBytes:
		w.WriteLine("function lowerBytes(value: Uint8Array): Uint8Array {")
		w.Indent()
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("function liftBytes(value: Uint8Array): Uint8Array {")
		w.Indent()
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	case model.KindOptional, model.KindSequence, model.KindMap:
		return g.writeCompoundConverters(w, t, tag)
	default:
		// Declaration converters are emitted next to the declaration.
		return nil
	}

	if stream && t.IsScalar() {
		g.writeScalarStreamPair(w, t, tag, suffix)
	}
	if stream && (t.Kind == model.KindString || t.Kind == model.KindBytes) {
		g.writeBytesStreamPair(w, t, tag, suffix)
	}
	return nil
}

func (g *Generator) writeScalarStreamPair(w *writer.Writer, t model.Type, tag, suffix string) {
	entry, _ := g.oracle.Entry(t)
	if t.Kind == model.KindTimestamp || t.Kind == model.KindDuration {
		w.WriteLinef("function write_%s(stream: BufferWriter, value: %s): void {", tag, entry.NativeType)
		w.Indent()
		w.WriteLinef("const nanos = lower%s(value);", suffix)
		w.WriteLine("stream.fixed(8, (v) => v.setBigInt64(0, nanos / 1_000_000_000n));")
		w.WriteLine("stream.fixed(4, (v) => v.setUint32(0, Number(((nanos % 1_000_000_000n) + 1_000_000_000n) % 1_000_000_000n)));")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLinef("function read_%s(stream: BufferReader): %s {", tag, entry.NativeType)
		w.Indent()
		w.WriteLine("const seconds = stream.take(8, (v, o) => v.getBigInt64(o));")
		w.WriteLine("const nanos = stream.take(4, (v, o) => v.getUint32(o));")
		w.WriteLinef("return lift%s(seconds * 1_000_000_000n + BigInt(nanos));", suffix)
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
		return
	}

	op := dataViewOps[t.Kind]
	if t.Kind == model.KindBoolean {
		w.WriteLinef("function write_%s(stream: BufferWriter, value: boolean): void {", tag)
		w.Indent()
		w.WriteLine("stream.byte(value ? 1 : 0);")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLinef("function read_%s(stream: BufferReader): boolean {", tag)
		w.Indent()
		w.WriteLine("return stream.take(1, (v, o) => v.getInt8(o)) !== 0;")
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
		return
	}
	w.WriteLinef("function write_%s(stream: BufferWriter, value: %s): void {", tag, entry.NativeType)
	w.Indent()
	w.WriteLinef("stream.fixed(%d, (v) => v.%s(0, lower%s(value)));", op.size, op.setter, suffix)
	w.Dedent()
	w.WriteLine("}")
	w.WriteLinef("function read_%s(stream: BufferReader): %s {", tag, entry.NativeType)
	w.Indent()
	w.WriteLinef("return lift%s(stream.take(%d, (v, o) => v.%s(o)));", suffix, op.size, op.getter)
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
}

func (g *Generator) writeBytesStreamPair(w *writer.Writer, t model.Type, tag, suffix string) {
	entry, _ := g.oracle.Entry(t)
	w.WriteLinef("function write_%s(stream: BufferWriter, value: %s): void {", tag, entry.NativeType)
	w.Indent()
	if t.Kind == model.KindString {
		w.WriteLine("stream.writeBytes(new TextEncoder().encode(value));")
	} else {
		w.WriteLine("stream.writeBytes(value);")
	}
	w.Dedent()
	w.WriteLine("}")
	w.WriteLinef("function read_%s(stream: BufferReader): %s {", tag, entry.NativeType)
	w.Indent()
	if t.Kind == model.KindString {
		w.WriteLine("return new TextDecoder().decode(stream.readBytes());")
	} else {
		w.WriteLine("return stream.readBytes();")
	}
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
}

func (g *Generator) writeCompoundConverters(w *writer.Writer, t model.Type, tag string) error {
	entry, err := g.oracle.Entry(t)
	if err != nil {
		return err
	}

	w.WriteLinef("function write_%s(stream: BufferWriter, value: %s): void {", tag, entry.NativeType)
	w.Indent()
	switch t.Kind {
	case model.KindOptional:
		w.WriteLine("if (value === undefined) {")
		w.Indent()
		w.WriteLine("stream.byte(0);")
		w.WriteLine("return;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("stream.byte(1);")
		w.WriteLinef("write_%s(stream, value);", oracle.Tag(*t.Elem))
	case model.KindSequence:
		w.WriteLine("stream.writeI32(value.length);")
		w.WriteLine("for (const item of value) {")
		w.Indent()
		w.WriteLinef("write_%s(stream, item);", oracle.Tag(*t.Elem))
		w.Dedent()
		w.WriteLine("}")
	case model.KindMap:
		w.WriteLine("stream.writeI32(value.size);")
		w.WriteLine("for (const [key, item] of value) {")
		w.Indent()
		w.WriteLinef("write_%s(stream, key);", oracle.Tag(*t.Key))
		w.WriteLinef("write_%s(stream, item);", oracle.Tag(*t.Value))
		w.Dedent()
		w.WriteLine("}")
	}
	w.Dedent()
	w.WriteLine("}")

	w.WriteLinef("function read_%s(stream: BufferReader): %s {", tag, entry.NativeType)
	w.Indent()
	switch t.Kind {
	case model.KindOptional:
		w.WriteLine("if (stream.take(1, (v, o) => v.getInt8(o)) === 0) {")
		w.Indent()
		w.WriteLine("return undefined;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLinef("return read_%s(stream);", oracle.Tag(*t.Elem))
	case model.KindSequence:
		w.WriteLine("const n = stream.readI32();")
		w.WriteLinef("const result: %s = [];", entry.NativeType)
		w.WriteLine("for (let i = 0; i < n; i++) {")
		w.Indent()
		w.WriteLinef("result.push(read_%s(stream));", oracle.Tag(*t.Elem))
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("return result;")
	case model.KindMap:
		w.WriteLine("const n = stream.readI32();")
		w.WriteLinef("const result: %s = new Map();", entry.NativeType)
		w.WriteLine("for (let i = 0; i < n; i++) {")
		w.Indent()
		w.WriteLinef("const key = read_%s(stream);", oracle.Tag(*t.Key))
		w.WriteLinef("result.set(key, read_%s(stream));", oracle.Tag(*t.Value))
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("return result;")
	}
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()

	g.writeBufferLowerLift(w, "lower_"+tag, "lift_"+tag, tag, entry.NativeType)
	return nil
}

func (g *Generator) writeBufferLowerLift(w *writer.Writer, lowerName, liftName, tag, nativeType string) {
	w.WriteLinef("function %s(value: %s): Uint8Array {", lowerName, nativeType)
	w.Indent()
	w.WriteLine("const stream = new BufferWriter();")
	w.WriteLinef("write_%s(stream, value);", tag)
	w.WriteLine("return stream.finish();")
	w.Dedent()
	w.WriteLine("}")
	w.WriteLinef("function %s(value: Uint8Array): %s {", liftName, nativeType)
	w.Indent()
	w.WriteLine("const stream = new BufferReader(value);")
	w.WriteLinef("const result = read_%s(stream);", tag)
	w.WriteLine("stream.done();")
	w.WriteLine("return result;")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
}

func (g *Generator) writeEnum(w *writer.Writer, e *model.Enum) error {
	if e.IsError {
		return g.writeErrorEnum(w, e)
	}
	if !e.HasAssociatedData() {
		w.WriteCommentBlock("// ", e.Doc)
		w.WriteLinef("export enum %s {", e.Name)
		w.Indent()
		for i, v := range e.Variants {
			w.WriteLinef("%s = %d,", v.Name, i)
		}
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
		w.WriteLinef("function lower%s(value: %s): number {", e.Name, e.Name)
		w.Indent()
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		w.WriteLinef("function lift%s(value: number): %s {", e.Name, e.Name)
		w.Indent()
		w.WriteLinef("if (!(value in %s)) {", e.Name)
		w.Indent()
		w.WriteLinef("throw new InternalError(`invalid %s discriminant ${value}`);", e.Name)
		w.Dedent()
		w.WriteLine("}")
		w.WriteLine("return value;")
		w.Dedent()
		w.WriteLine("}")
		if g.needsStream() {
			w.WriteLinef("function write_%s(stream: BufferWriter, value: %s): void {", e.Name, e.Name)
			w.Indent()
			w.WriteLine("stream.writeI32(value);")
			w.Dedent()
			w.WriteLine("}")
			w.WriteLinef("function read_%s(stream: BufferReader): %s {", e.Name, e.Name)
			w.Indent()
			w.WriteLinef("return lift%s(stream.readI32());", e.Name)
			w.Dedent()
			w.WriteLine("}")
		}
		w.BlankLine()
		return nil
	}
	return g.writeDataEnum(w, e, "")
}

func (g *Generator) writeDataEnum(w *writer.Writer, e *model.Enum, base string) error {
	extends := ""
	if base != "" {
		extends = " extends " + base
	}
	w.WriteCommentBlock("// ", e.Doc)
	w.WriteLinef("export abstract class %s%s {}", e.Name, extends)
	w.BlankLine()

	for _, v := range e.Variants {
		w.WriteLinef("export class %s%s extends %s {", e.Name, v.Name, e.Name)
		w.Indent()
		if len(v.Fields) > 0 {
			w.WriteLine("constructor(")
			w.Indent()
			for _, f := range v.Fields {
				entry, err := g.oracle.Entry(f.Type)
				if err != nil {
					return err
				}
				w.WriteLinef("public %s: %s,", f.Name, entry.NativeType)
			}
			w.Dedent()
			w.WriteLine(") {")
			w.Indent()
			w.WriteLine("super();")
			w.Dedent()
			w.WriteLine("}")
		}
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	}

	w.WriteLinef("function write_%s(stream: BufferWriter, value: %s): void {", e.Name, e.Name)
	w.Indent()
	for i, v := range e.Variants {
		w.WriteLinef("if (value instanceof %s%s) {", e.Name, v.Name)
		w.Indent()
		w.WriteLinef("stream.writeI32(%d);", i)
		for _, f := range v.Fields {
			w.WriteLinef("write_%s(stream, value.%s);", oracle.Tag(f.Type), f.Name)
		}
		w.WriteLine("return;")
		w.Dedent()
		w.WriteLine("}")
	}
	w.WriteLinef("throw new TypeError(`not a %s variant`);", e.Name)
	w.Dedent()
	w.WriteLine("}")

	w.WriteLinef("function read_%s(stream: BufferReader): %s {", e.Name, e.Name)
	w.Indent()
	w.WriteLine("const variant = stream.readI32();")
	w.WriteLine("switch (variant) {")
	w.Indent()
	for i, v := range e.Variants {
		w.WriteLinef("case %d:", i)
		w.Indent()
		w.Writef("return new %s%s(", e.Name, v.Name)
		for j, f := range v.Fields {
			if j > 0 {
				w.Write(", ")
			}
			w.Writef("read_%s(stream)", oracle.Tag(f.Type))
		}
		w.WriteLine(");")
		w.Dedent()
	}
	w.WriteLine("default:")
	w.Indent()
	w.WriteLinef("throw new InternalError(`invalid %s discriminant ${variant}`);", e.Name)
	w.Dedent()
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()

	g.writeBufferLowerLift(w, "lower"+e.Name, "lift"+e.Name, e.Name, e.Name)
	return nil
}

func (g *Generator) writeErrorEnum(w *writer.Writer, e *model.Enum) error {
	if e.HasAssociatedData() {
		return g.writeDataEnum(w, e, "Error")
	}

	w.WriteCommentBlock("// ", e.Doc)
	w.WriteLinef("export class %s extends Error {}", e.Name)
	for _, v := range e.Variants {
		w.WriteLinef("export class %s%s extends %s {}", e.Name, v.Name, e.Name)
	}
	w.BlankLine()
	w.WriteLinef("const %sVariants = [", e.Name)
	w.Indent()
	for _, v := range e.Variants {
		w.WriteLinef("%s%s,", e.Name, v.Name)
	}
	w.Dedent()
	w.WriteLine("];")
	w.WriteLinef("function lift%s(payload: Uint8Array): %s {", e.Name, e.Name)
	w.Indent()
	w.WriteLine("const variant = new DataView(payload.buffer, payload.byteOffset).getInt32(0);")
	w.WriteLinef("return new %sVariants[variant]();", e.Name)
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	return nil
}

func (g *Generator) writeRecord(w *writer.Writer, r *model.Record) error {
	w.WriteCommentBlock("// ", r.Doc)
	w.WriteLinef("export class %s {", r.Name)
	w.Indent()
	w.WriteLine("constructor(")
	w.Indent()
	for _, f := range r.Fields {
		entry, err := g.oracle.Entry(f.Type)
		if err != nil {
			return err
		}
		def := ""
		if f.Default != nil {
			lit, err := g.tsLiteral(f.Type, f.Default)
			if err != nil {
				return err
			}
			def = " = " + lit
		}
		w.WriteLinef("public %s: %s%s,", f.Name, entry.NativeType, def)
	}
	w.Dedent()
	w.WriteLine(") {}")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()

	w.WriteLinef("function write_%s(stream: BufferWriter, value: %s): void {", r.Name, r.Name)
	w.Indent()
	for _, f := range r.Fields {
		w.WriteLinef("write_%s(stream, value.%s);", oracle.Tag(f.Type), f.Name)
	}
	w.Dedent()
	w.WriteLine("}")
	w.WriteLinef("function read_%s(stream: BufferReader): %s {", r.Name, r.Name)
	w.Indent()
	w.Writef("return new %s(", r.Name)
	for i, f := range r.Fields {
		if i > 0 {
			w.Write(", ")
		}
		w.Writef("read_%s(stream)", oracle.Tag(f.Type))
	}
	w.WriteLine(");")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	g.writeBufferLowerLift(w, "lower"+r.Name, "lift"+r.Name, r.Name, r.Name)
	return nil
}

func (g *Generator) writeObject(w *writer.Writer, o *model.Object) error {
	freeSym := g.sigs.ForCallable("free:" + o.Name)

	w.WriteCommentBlock("// ", o.Doc)
	w.WriteLinef("export class %s {", o.Name)
	w.Indent()
	w.WriteLine("__handle: bigint;")
	w.BlankLine()

	if primary := o.PrimaryConstructor(); primary != nil {
		sig, err := g.paramList(primary.Arguments)
		if err != nil {
			return err
		}
		w.WriteLinef("constructor(%s) {", sig)
		w.Indent()
		call, err := g.callExpr(fmt.Sprintf("ctor:%s.", o.Name), primary.Throws, primary.Arguments, "")
		if err != nil {
			return err
		}
		w.WriteLinef("this.__handle = %s;", call)
		w.WriteLinef("%sRegistry.register(this, this.__handle);", o.Name)
		w.Dedent()
		w.WriteLine("}")
	} else {
		w.WriteLine("private constructor() {")
		w.Indent()
		w.WriteLine("this.__handle = 0n;")
		w.Dedent()
		w.WriteLine("}")
	}
	w.BlankLine()

	w.WriteLinef("static __fromHandle(handle: bigint): %s {", o.Name)
	w.Indent()
	w.WriteLinef("const obj: %s = Object.create(%s.prototype);", o.Name, o.Name)
	w.WriteLine("obj.__handle = handle;")
	w.WriteLinef("%sRegistry.register(obj, handle);", o.Name)
	w.WriteLine("return obj;")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()

	for _, ctor := range o.Constructors {
		if ctor.Name == "" {
			continue
		}
		sig, err := g.paramList(ctor.Arguments)
		if err != nil {
			return err
		}
		w.WriteLinef("static %s(%s): %s {", ctor.Name, sig, o.Name)
		w.Indent()
		call, err := g.callExpr(fmt.Sprintf("ctor:%s.%s", o.Name, ctor.Name), ctor.Throws, ctor.Arguments, "")
		if err != nil {
			return err
		}
		w.WriteLinef("return %s.__fromHandle(%s);", o.Name, call)
		w.Dedent()
		w.WriteLine("}")
		w.BlankLine()
	}

	for i := range o.Methods {
		m := &o.Methods[i]
		if err := g.writeMethod(w, o, m); err != nil {
			return err
		}
	}

	w.WriteLine("// Deterministic release; the finalization registry is a backstop.")
	w.WriteLine("dispose(): void {")
	w.Indent()
	w.WriteLine("if (this.__handle !== 0n) {")
	w.Indent()
	w.WriteLinef("invoke(_lib.%s, null, this.__handle);", freeSym.Name)
	w.WriteLine("this.__handle = 0n;")
	w.WriteLinef("%sRegistry.unregister(this);", o.Name)
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()

	w.WriteLinef("const %sRegistry = new FinalizationRegistry<bigint>((handle) => {", o.Name)
	w.Indent()
	w.WriteLinef("invoke(_lib.%s, null, handle);", freeSym.Name)
	w.Dedent()
	w.WriteLine("});")
	w.BlankLine()
	return nil
}

func (g *Generator) writeMethod(w *writer.Writer, o *model.Object, m *model.Method) error {
	sig, err := g.paramList(m.Arguments)
	if err != nil {
		return err
	}
	ret := "void"
	if m.Return != nil {
		entry, err := g.oracle.Entry(*m.Return)
		if err != nil {
			return err
		}
		ret = entry.NativeType
	}
	w.WriteCommentBlock("// ", m.Doc)
	w.WriteLinef("%s(%s): %s {", m.Name, sig, ret)
	w.Indent()
	call, err := g.callExpr(fmt.Sprintf("method:%s.%s", o.Name, m.Name), m.Throws, m.Arguments, "this.__handle")
	if err != nil {
		return err
	}
	if m.Return != nil {
		lifted, err := g.oracle.LiftExpr(*m.Return, call)
		if err != nil {
			return err
		}
		w.WriteLinef("return %s;", lifted)
	} else {
		w.WriteLinef("%s;", call)
	}
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	return nil
}

func (g *Generator) writeCallback(w *writer.Writer, cb *model.CallbackInterface) {
	w.WriteCommentBlock("// ", cb.Doc)
	w.WriteLinef("export interface %s {", cb.Name)
	w.Indent()
	for _, m := range cb.Methods {
		sig, _ := g.paramList(m.Arguments)
		ret := "void"
		if m.Return != nil {
			if entry, err := g.oracle.Entry(*m.Return); err == nil {
				ret = entry.NativeType
			}
		}
		w.WriteLinef("%s(%s): %s;", m.Name, sig, ret)
	}
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()

	w.WriteLinef("const callbackRegistry%s = new Map<bigint, %s>();", cb.Name, cb.Name)
	w.WriteLinef("let nextCallbackHandle%s = 1n;", cb.Name)
	w.BlankLine()
	w.WriteLinef("function registerCallback%s(obj: %s): bigint {", cb.Name, cb.Name)
	w.Indent()
	w.WriteLinef("const handle = nextCallbackHandle%s++;", cb.Name)
	w.WriteLinef("callbackRegistry%s.set(handle, obj);", cb.Name)
	w.WriteLine("return handle;")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()

	initSym := g.sigs.ForCallable("cbinit:" + cb.Name)
	// The addon hands argsData over by value and adopts the returned bytes
	// as the out-buffer. code 2 is the panic path.
	w.WriteLinef("function dispatch%s(handle: bigint, methodIndex: number, argsData: Uint8Array): { code: number; data: Uint8Array | null } {", cb.Name)
	w.Indent()
	w.WriteLinef("const obj = callbackRegistry%s.get(handle);", cb.Name)
	w.WriteLine("if (obj === undefined) {")
	w.Indent()
	w.WriteLine("return { code: 2, data: null }; // unknown handle is a broken invariant, surfaced as panic")
	w.Dedent()
	w.WriteLine("}")
	w.WriteLine("try {")
	w.Indent()
	w.WriteLine("switch (methodIndex) {")
	w.Indent()
	for i := range cb.Methods {
		m := &cb.Methods[i]
		w.WriteLinef("case %d: {", i)
		w.Indent()
		callArgs := make([]string, 0, len(m.Arguments))
		if len(m.Arguments) > 0 {
			w.WriteLine("const stream = new BufferReader(argsData);")
			for _, a := range m.Arguments {
				w.WriteLinef("const arg_%s = read_%s(stream);", a.Name, oracle.Tag(a.Type))
				callArgs = append(callArgs, "arg_"+a.Name)
			}
			w.WriteLine("stream.done();")
		}
		call := fmt.Sprintf("obj.%s(%s)", m.Name, strings.Join(callArgs, ", "))
		if m.Return != nil {
			w.WriteLinef("const result = %s;", call)
			w.WriteLine("const out = new BufferWriter();")
			w.WriteLinef("write_%s(out, result);", oracle.Tag(*m.Return))
			w.WriteLine("return { code: 0, data: out.finish() };")
		} else {
			w.WriteLinef("%s;", call)
			w.WriteLine("return { code: 0, data: null };")
		}
		w.Dedent()
		w.WriteLine("}")
	}
	w.WriteLine("default:")
	w.Indent()
	w.WriteLine("return { code: 2, data: null };")
	w.Dedent()
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("} catch {")
	w.Indent()
	w.WriteLine("// A failing trampoline propagates as the native call's panic,")
	w.WriteLine("// never as a typed error.")
	w.WriteLine("return { code: 2, data: null };")
	w.Dedent()
	w.WriteLine("}")
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	w.WriteLinef("invoke(_lib.%s, null, dispatch%s);", initSym.Name, cb.Name)
	w.BlankLine()
}

func (g *Generator) writeFunction(w *writer.Writer, fn *model.Function) error {
	sig, err := g.paramList(fn.Arguments)
	if err != nil {
		return err
	}
	ret := "void"
	if fn.Return != nil {
		entry, err := g.oracle.Entry(*fn.Return)
		if err != nil {
			return err
		}
		ret = entry.NativeType
	}
	w.WriteCommentBlock("// ", fn.Doc)
	w.WriteLinef("export function %s(%s): %s {", fn.Name, sig, ret)
	w.Indent()
	call, err := g.callExpr("fn:"+fn.Name, fn.Throws, fn.Arguments, "")
	if err != nil {
		return err
	}
	if fn.Return != nil {
		lifted, err := g.oracle.LiftExpr(*fn.Return, call)
		if err != nil {
			return err
		}
		w.WriteLinef("return %s;", lifted)
	} else {
		w.WriteLinef("%s;", call)
	}
	w.Dedent()
	w.WriteLine("}")
	w.BlankLine()
	return nil
}

func (g *Generator) paramList(args []model.Argument) (string, error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		entry, err := g.oracle.Entry(a.Type)
		if err != nil {
			return "", err
		}
		part := a.Name + ": " + entry.NativeType
		if a.Default != nil {
			lit, err := g.tsLiteral(a.Type, a.Default)
			if err != nil {
				return "", err
			}
			part += " = " + lit
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", "), nil
}

func (g *Generator) callExpr(key, throws string, args []model.Argument, self string) (string, error) {
	fn := g.sigs.ForCallable(key)
	if fn == nil {
		return "", fmt.Errorf("typescript: no derived signature for %s", key)
	}
	liftError := "null"
	if throws != "" {
		liftError = "lift" + throws
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
	return "invoke(" + strings.Join(parts, ", ") + ")", nil
}

func (g *Generator) tsLiteral(t model.Type, lit *model.Literal) (string, error) {
	switch lit.Kind {
	case model.LitBool:
		return strconv.FormatBool(lit.Bool), nil
	case model.LitInt:
		s := strconv.FormatInt(lit.Int, 10)
		base := t
		if base.Kind == model.KindOptional {
			base = *base.Elem
		}
		if base.Kind == model.KindInt64 || base.Kind == model.KindUInt64 {
			s += "n"
		}
		return s, nil
	case model.LitFloat:
		return strconv.FormatFloat(lit.Float, 'g', -1, 64), nil
	case model.LitString:
		return strconv.Quote(lit.String), nil
	case model.LitNull:
		return "undefined", nil
	case model.LitEnumVariant:
		name := t.Name
		if t.Kind == model.KindOptional {
			name = t.Elem.Name
		}
		return name + "." + lit.Variant, nil
	default:
		return "", fmt.Errorf("typescript: unsupported default literal")
	}
}
