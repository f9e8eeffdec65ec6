package codegen

import (
	"github.com/crossbind/crossbind/internal/codegen/cheader"
	"github.com/crossbind/crossbind/internal/codegen/python"
	"github.com/crossbind/crossbind/internal/codegen/typescript"
)

// DefaultRegistry is the global registry with every built-in generator.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register("python", func(moduleName string) Generator {
		return python.NewGenerator(moduleName)
	})
	DefaultRegistry.Register("py", func(moduleName string) Generator {
		return python.NewGenerator(moduleName)
	})

	DefaultRegistry.Register("typescript", func(moduleName string) Generator {
		return typescript.NewGenerator(moduleName)
	})
	DefaultRegistry.Register("ts", func(moduleName string) Generator {
		return typescript.NewGenerator(moduleName)
	})

	// The scaffolding header is not a binding, but it is generated from the
	// same signature set and shares the registry plumbing.
	DefaultRegistry.Register("c-header", func(moduleName string) Generator {
		return cheader.NewGenerator(moduleName)
	})
}
