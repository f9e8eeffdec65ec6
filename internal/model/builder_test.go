package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossbind/crossbind/internal/udl"
)

func mustBuild(t *testing.T, src string) *ComponentInterface {
	t.Helper()
	doc, err := udl.Parse(src)
	require.NoError(t, err)
	ci, err := BuildComponentInterface(doc)
	require.NoError(t, err)
	return ci
}

func buildErr(t *testing.T, src string) error {
	t.Helper()
	doc, err := udl.Parse(src)
	require.NoError(t, err)
	_, err = BuildComponentInterface(doc)
	require.Error(t, err)
	return err
}

func TestBuild_BasicInterface(t *testing.T) {
	// Test plan:
	// - A small schema builds into the expected model
	// - Enum variant order follows source order
	// - Functions resolve argument and return types

	ci := mustBuild(t, `
namespace demo {
    Which which(boolean flip);
};

enum Which {
    "Yeah",
    "Nah",
};`)

	assert.Equal(t, "demo", ci.Namespace)
	require.Len(t, ci.Enums, 1)
	require.Len(t, ci.Functions, 1)

	which := ci.Enums[0]
	assert.Equal(t, 0, which.VariantIndex("Yeah"))
	assert.Equal(t, 1, which.VariantIndex("Nah"))
	assert.False(t, which.HasAssociatedData())

	fn := ci.Functions[0]
	assert.Equal(t, "which", fn.Name)
	assert.Equal(t, KindBoolean, fn.Arguments[0].Type.Kind)
	require.NotNil(t, fn.Return)
	assert.Equal(t, KindEnum, fn.Return.Kind)
	assert.Equal(t, "Which", fn.Return.Name)
}

func TestBuild_VariantReorderChangesDiscriminants(t *testing.T) {
	// Test plan:
	// - Reordering enum variant declarations changes only their indices

	original := mustBuild(t, `
namespace demo {};
enum Which { "Yeah", "Nah" };`)
	reordered := mustBuild(t, `
namespace demo {};
enum Which { "Nah", "Yeah" };`)

	assert.Equal(t, 0, original.Enums[0].VariantIndex("Yeah"))
	assert.Equal(t, 1, reordered.Enums[0].VariantIndex("Yeah"))
}

func TestBuild_TypeResolution(t *testing.T) {
	// Test plan:
	// - Primitives, aliases (float/double), compounds and nullable types
	// - Typedefs inline transparently

	ci := mustBuild(t, `
namespace demo {};

typedef sequence<string> Lines;

dictionary Mixed {
    float ratio;
    double precise;
    bytes blob;
    timestamp at;
    duration took;
    u16? maybe;
    Lines lines;
    record<string, sequence<i64>> table;
};`)

	fields := ci.Records[0].Fields
	assert.Equal(t, KindFloat32, fields[0].Type.Kind)
	assert.Equal(t, KindFloat64, fields[1].Type.Kind)
	assert.Equal(t, KindBytes, fields[2].Type.Kind)
	assert.Equal(t, KindTimestamp, fields[3].Type.Kind)
	assert.Equal(t, KindDuration, fields[4].Type.Kind)

	maybe := fields[5].Type
	assert.Equal(t, KindOptional, maybe.Kind)
	assert.Equal(t, KindUInt16, maybe.Elem.Kind)

	lines := fields[6].Type
	assert.Equal(t, KindSequence, lines.Kind)
	assert.Equal(t, KindString, lines.Elem.Kind)

	table := fields[7].Type
	assert.Equal(t, KindMap, table.Kind)
	assert.Equal(t, KindString, table.Key.Kind)
	assert.Equal(t, KindSequence, table.Value.Kind)
	assert.Equal(t, KindInt64, table.Value.Elem.Kind)
}

func TestBuild_UnknownType(t *testing.T) {
	// Test plan:
	// - A reference to an undeclared name fails with UnknownTypeError

	err := buildErr(t, `
namespace demo {
    Missing get();
};`)

	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Missing", unknown.Name)
}

func TestBuild_DuplicateDefinitions(t *testing.T) {
	// Test plan:
	// - Top-level name collisions across categories
	// - Duplicate enum variants, record fields, methods and arguments
	// - A second primary constructor

	tests := []struct {
		name string
		src  string
	}{
		{
			"across categories",
			`namespace demo {};
enum Widget { "A" };
dictionary Widget { u8 x; };`,
		},
		{
			"enum variants",
			`namespace demo {};
enum Which { "Yeah", "Yeah" };`,
		},
		{
			"record fields",
			`namespace demo {};
dictionary Point { f64 x; f64 x; };`,
		},
		{
			"object methods",
			`namespace demo {};
interface Thing { void poke(); void poke(); };`,
		},
		{
			"arguments",
			`namespace demo { void f(u8 a, u8 a); };`,
		},
		{
			"second primary constructor",
			`namespace demo {};
interface Thing { constructor(); constructor(u8 x); };`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := buildErr(t, tc.src)
			var dup *DuplicateDefinitionError
			assert.ErrorAs(t, err, &dup)
		})
	}
}

func TestBuild_ObjectNesting(t *testing.T) {
	// Test plan:
	// - An object type inside a record field is rejected
	// - The rejection reaches through compounds
	// - Objects as arguments and returns remain legal

	err := buildErr(t, `
namespace demo {};
interface Conn {};
dictionary Pool { Conn primary; };`)
	var nesting *InvalidNestingError
	require.ErrorAs(t, err, &nesting)
	assert.Equal(t, "Pool", nesting.Container)
	assert.Equal(t, "primary", nesting.Field)

	err = buildErr(t, `
namespace demo {};
interface Conn {};
dictionary Pool { sequence<Conn?> spares; };`)
	assert.ErrorAs(t, err, &nesting)

	ci := mustBuild(t, `
namespace demo {
    Conn connect(Conn template);
};
interface Conn {};`)
	assert.Equal(t, KindObject, ci.Functions[0].Return.Kind)
}

func TestBuild_ThrowsValidation(t *testing.T) {
	// Test plan:
	// - [Throws=X] where X is not an error enum fails
	// - [Throws=X] naming an [Error] enum succeeds and marks the method

	err := buildErr(t, `
namespace demo {
    [Throws=Which]
    void f();
};
enum Which { "Yeah" };`)
	var notErr *NotAnErrorTypeError
	require.ErrorAs(t, err, &notErr)
	assert.Equal(t, "Which", notErr.Name)

	ci := mustBuild(t, `
namespace demo {
    [Throws=DemoError]
    void f();
};
[Error]
enum DemoError { "Nope" };`)
	fn := ci.Functions[0]
	assert.True(t, fn.Fallible)
	assert.Equal(t, "DemoError", fn.Throws)
	assert.True(t, ci.Enums[0].IsError)
}

func TestBuild_DefaultValidation(t *testing.T) {
	// Test plan:
	// - Valid defaults: int in range, int coerced to float, enum variant,
	//   null for optional
	// - Invalid defaults: out of range int, null for non-optional, wrong
	//   literal class, unknown enum variant

	ci := mustBuild(t, `
namespace demo {};
enum Mode { "Fast", "Slow" };
dictionary Opts {
    u8 retries = 3;
    f64 ratio = 1;
    Mode mode = Slow;
    string? label = null;
};`)
	fields := ci.Records[0].Fields
	assert.Equal(t, LitInt, fields[0].Default.Kind)
	assert.Equal(t, LitFloat, fields[1].Default.Kind)
	assert.Equal(t, 1.0, fields[1].Default.Float)
	assert.Equal(t, LitEnumVariant, fields[2].Default.Kind)
	assert.Equal(t, "Slow", fields[2].Default.Variant)
	assert.Equal(t, LitNull, fields[3].Default.Kind)

	invalid := []struct {
		name string
		src  string
	}{
		{
			"out of range",
			`namespace demo {};
dictionary Opts { u8 retries = 300; };`,
		},
		{
			"negative unsigned",
			`namespace demo {};
dictionary Opts { u32 count = -1; };`,
		},
		{
			"null for non-optional",
			`namespace demo {};
dictionary Opts { string label = null; };`,
		},
		{
			"string for int",
			`namespace demo {};
dictionary Opts { u8 retries = "three"; };`,
		},
		{
			"unknown variant",
			`namespace demo {};
enum Mode { "Fast" };
dictionary Opts { Mode mode = Warp; };`,
		},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			err := buildErr(t, tc.src)
			var bad *InvalidDefaultError
			assert.ErrorAs(t, err, &bad)
		})
	}
}

func TestBuild_Cycles(t *testing.T) {
	// Test plan:
	// - A typedef cycle is rejected
	// - A record that contains itself through value types is rejected
	// - Indirection through an optional does not break the cycle

	err := buildErr(t, `
namespace demo {};
typedef Loop Loop;
dictionary Holder { Loop x; };`)
	var cyclic *CyclicTypeError
	assert.ErrorAs(t, err, &cyclic)

	err = buildErr(t, `
namespace demo {};
dictionary Node { Node next; };`)
	assert.ErrorAs(t, err, &cyclic)

	err = buildErr(t, `
namespace demo {};
dictionary A { B b; };
dictionary B { A? a; };`)
	assert.ErrorAs(t, err, &cyclic)
}

func TestBuild_MapKeyRestriction(t *testing.T) {
	// Test plan:
	// - record<> keys must be strings or scalars

	err := buildErr(t, `
namespace demo {};
dictionary Bad { record<sequence<u8>, string> m; };`)
	var syn *udl.SyntaxError
	assert.ErrorAs(t, err, &syn)
}

func TestBuild_EnumInterfaceAndErrors(t *testing.T) {
	// Test plan:
	// - [Enum] interface builds a data-carrying enum
	// - [Error] interface builds a data-carrying error enum
	// - HasAssociatedData reflects variant fields

	ci := mustBuild(t, `
namespace demo {};

[Enum]
interface Shape {
    Circle(f64 radius);
    Empty();
};

[Error]
interface RichError {
    Overflow(u32 limit);
};`)

	require.Len(t, ci.Enums, 2)
	shape := ci.Enums[0]
	assert.True(t, shape.HasAssociatedData())
	assert.Equal(t, KindFloat64, shape.Variants[0].Fields[0].Type.Kind)

	rich := ci.Enums[1]
	assert.True(t, rich.IsError)
	assert.True(t, rich.HasAssociatedData())
}

func TestBuild_IterTypes(t *testing.T) {
	// Test plan:
	// - IterTypes visits nested types and throws references

	ci := mustBuild(t, `
namespace demo {
    [Throws=DemoError]
    sequence<u32> run(record<string, boolean> flags);
};
[Error]
enum DemoError { "Nope" };`)

	seen := make(map[string]bool)
	ci.IterTypes(func(t Type) {
		seen[t.String()] = true
	})

	assert.True(t, seen["sequence<u32>"])
	assert.True(t, seen["u32"])
	assert.True(t, seen["record<string, boolean>"])
	assert.True(t, seen["string"])
	assert.True(t, seen["boolean"])
	assert.True(t, seen["DemoError"])
}
