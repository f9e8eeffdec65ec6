// Package cheader generates the C header describing the exported native
// scaffolding surface: one symbol per callable, the shared buffer struct
// with its single global alloc/free pair, and the call status record every
// symbol writes through its trailing out-pointer.
package cheader

import (
	"strings"

	"github.com/crossbind/crossbind/internal/codegen/writer"
	"github.com/crossbind/crossbind/internal/ffi"
	"github.com/crossbind/crossbind/internal/model"
)

// Generator emits the scaffolding header for a component.
type Generator struct {
	moduleName string
}

// NewGenerator creates a C header generator.
func NewGenerator(moduleName string) *Generator {
	return &Generator{moduleName: moduleName}
}

// Language returns the registry name of this generator.
func (g *Generator) Language() string {
	return "c-header"
}

// FileExtension returns the extension for generated files.
func (g *Generator) FileExtension() string {
	return ".h"
}

// Generate emits the header from the derived signature set. The component
// model is only consulted for doc text; every declaration comes from the
// signatures, so header and bindings can never disagree about the ABI.
func (g *Generator) Generate(ci *model.ComponentInterface, sigs *ffi.SignatureSet) ([]byte, error) {
	w := writer.NewWriter("\t")
	guard := "CROSSBIND_" + strings.ToUpper(sigs.Namespace) + "_H"

	w.WriteLine("// Generated by crossbind. Do not edit.")
	w.BlankLine()
	w.WriteLinef("#ifndef %s", guard)
	w.WriteLinef("#define %s", guard)
	w.BlankLine()
	w.WriteLine("#include <stdint.h>")
	w.BlankLine()

	// Ownership note mirrors the ABI contract: whichever side receives a
	// buffer frees it, exactly once, through the exported free function.
	w.WriteLine("// A length-prefixed byte buffer transferred by ownership across the")
	w.WriteLine("// boundary. The receiving side frees it exactly once via")
	w.WriteLinef("// %s; it is never freed by both sides or used after free.", sigs.BufferFree.Name)
	w.WriteLine("typedef struct {")
	w.Indent()
	w.WriteLine("uint8_t *ptr;")
	w.WriteLine("int32_t len;")
	w.WriteLine("int32_t cap;")
	w.Dedent()
	w.WriteLine("} ForeignBytes;")
	w.BlankLine()

	w.WriteLine("// Out-of-band result slot: code 0 = ok, 1 = declared error (payload")
	w.WriteLine("// holds the serialized error value), 2 = panic (payload holds a")
	w.WriteLine("// diagnostic string; fatal, never domain data).")
	w.WriteLine("typedef struct {")
	w.Indent()
	w.WriteLine("int8_t code;")
	w.WriteLine("ForeignBytes payload;")
	w.Dedent()
	w.WriteLine("} CallStatus;")
	w.BlankLine()

	for _, fn := range sigs.Functions {
		g.writeFunction(w, fn)
	}
	g.writeFunction(w, sigs.BufferAlloc)
	g.writeFunction(w, sigs.BufferFree)

	w.BlankLine()
	w.WriteLinef("#endif // %s", guard)
	return w.Bytes(), nil
}

func (g *Generator) writeFunction(w *writer.Writer, fn ffi.Function) {
	ret := "void"
	if fn.Return != nil {
		ret = fn.Return.String()
	}
	w.Writef("%s %s(", ret, fn.Name)
	for _, arg := range fn.Arguments {
		w.Writef("%s %s, ", arg.Type.String(), arg.Name)
	}
	w.WriteLine("CallStatus *out_status);")
}
