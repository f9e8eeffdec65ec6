package codegen

import (
	"fmt"
	"sort"
)

// Registry manages the available binding generators.
type Registry struct {
	generators map[string]func(moduleName string) Generator
}

// NewRegistry creates an empty generator registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]func(moduleName string) Generator),
	}
}

// Register adds a generator factory under a language name.
func (r *Registry) Register(language string, factory func(moduleName string) Generator) {
	r.generators[language] = factory
}

// Get returns a generator for the requested language.
func (r *Registry) Get(language, moduleName string) (Generator, error) {
	factory, exists := r.generators[language]
	if !exists {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	return factory(moduleName), nil
}

// Languages returns the registered language names, sorted.
func (r *Registry) Languages() []string {
	languages := make([]string, 0, len(r.generators))
	for lang := range r.generators {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}
