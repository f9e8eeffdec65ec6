package codegen

import (
	"github.com/crossbind/crossbind/internal/ffi"
	"github.com/crossbind/crossbind/internal/model"
)

// Generator is the interface every language-specific binding generator
// implements. Generators consume the immutable ComponentInterface together
// with its derived FFI signatures and produce source text; all per-language
// type knowledge comes from the oracle package.
type Generator interface {
	// Generate produces the binding source for the component.
	Generate(ci *model.ComponentInterface, sigs *ffi.SignatureSet) ([]byte, error)

	// Language returns the target language name (e.g. "python").
	Language() string

	// FileExtension returns the extension for generated files (e.g. ".py").
	FileExtension() string
}
