package model

import (
	"fmt"

	"github.com/crossbind/crossbind/internal/udl"
)

// UnknownTypeError reports a type reference that no declaration defines.
type UnknownTypeError struct {
	Name string
	Pos  udl.Position
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type '%s' referenced at %s", e.Name, e.Pos)
}

// CyclicTypeError reports a typedef cycle or a dependency cycle between
// record field value types.
type CyclicTypeError struct {
	Name string
}

func (e *CyclicTypeError) Error() string {
	return fmt.Sprintf("type '%s' depends on itself through a cycle of value types", e.Name)
}

// InvalidNestingError reports an Object type embedded in a value type.
// Objects are reference types and cross the boundary only by handle, so a
// record field or enum variant field may never contain one.
type InvalidNestingError struct {
	Container string
	Field     string
	Type      string
}

func (e *InvalidNestingError) Error() string {
	return fmt.Sprintf("field '%s.%s' embeds object type '%s'; objects may only be passed by reference",
		e.Container, e.Field, e.Type)
}

// DuplicateDefinitionError reports two top-level declarations sharing one
// name, regardless of category.
type DuplicateDefinitionError struct {
	Name string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate definition of '%s'", e.Name)
}

// InvalidDefaultError reports a default literal that is not representable in
// the resolved type of its field or argument.
type InvalidDefaultError struct {
	Container string
	Field     string
	Reason    string
}

func (e *InvalidDefaultError) Error() string {
	return fmt.Sprintf("invalid default for '%s.%s': %s", e.Container, e.Field, e.Reason)
}

// NotAnErrorTypeError reports a [Throws=X] attribute naming a type that is
// not an [Error] enum.
type NotAnErrorTypeError struct {
	Callable string
	Name     string
}

func (e *NotAnErrorTypeError) Error() string {
	return fmt.Sprintf("'%s' declares throws type '%s', which is not an error enum", e.Callable, e.Name)
}
