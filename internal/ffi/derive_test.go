package ffi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossbind/crossbind/internal/model"
	"github.com/crossbind/crossbind/internal/udl"
)

func deriveFrom(t *testing.T, src string) *SignatureSet {
	t.Helper()
	doc, err := udl.Parse(src)
	require.NoError(t, err)
	ci, err := model.BuildComponentInterface(doc)
	require.NoError(t, err)
	sigs, err := Derive(ci)
	require.NoError(t, err)
	return sigs
}

func TestDerive_SymbolNamesAndCallStatus(t *testing.T) {
	// Test plan:
	// - Every callable derives a namespaced symbol
	// - Every derived function carries the trailing call status
	// - Objects additionally derive a free function
	// - Callbacks derive an init function
	// - The global buffer alloc/free pair always exists

	sigs := deriveFrom(t, `
namespace demo {
    u32 add(u32 a, u32 b);
};

interface Counter {
    constructor(string name);
    [Name=with_start]
    constructor(string name, u64 start);
    u64 value();
};

callback interface Logger {
    void log(string message);
};`)

	assert.Equal(t, "demo", sigs.Namespace)

	add := sigs.ForCallable("fn:add")
	require.NotNil(t, add)
	assert.Equal(t, "ffi_demo_fn_add", add.Name)

	primary := sigs.ForCallable("ctor:Counter.")
	require.NotNil(t, primary)
	assert.Equal(t, "ffi_demo_Counter_new", primary.Name)

	named := sigs.ForCallable("ctor:Counter.with_start")
	require.NotNil(t, named)
	assert.Equal(t, "ffi_demo_Counter_with_start", named.Name)

	value := sigs.ForCallable("method:Counter.value")
	require.NotNil(t, value)
	assert.Equal(t, "ffi_demo_Counter_value", value.Name)
	require.NotEmpty(t, value.Arguments)
	assert.Equal(t, "self", value.Arguments[0].Name)
	assert.Equal(t, Handle, value.Arguments[0].Type)

	free := sigs.ForCallable("free:Counter")
	require.NotNil(t, free)
	assert.Equal(t, "ffi_demo_Counter_object_free", free.Name)

	cbinit := sigs.ForCallable("cbinit:Logger")
	require.NotNil(t, cbinit)
	assert.Equal(t, "ffi_demo_Logger_init_callback", cbinit.Name)
	assert.Equal(t, ForeignCallback, cbinit.Arguments[0].Type)

	assert.Equal(t, "ffi_demo_bytebuffer_alloc", sigs.BufferAlloc.Name)
	assert.Equal(t, "ffi_demo_bytebuffer_free", sigs.BufferFree.Name)

	for _, fn := range sigs.Functions {
		assert.True(t, fn.HasCallStatus, "function %s lacks call status", fn.Name)
	}
	assert.True(t, sigs.BufferAlloc.HasCallStatus)
	assert.True(t, sigs.BufferFree.HasCallStatus)
}

func TestDerive_LoweringRules(t *testing.T) {
	// Test plan:
	// - Scalars pass by matching fixed-width value
	// - Timestamp and duration pass as i64 nanoseconds
	// - Strings, compounds and records pass as buffers
	// - Fieldless enums pass as i32, data enums as buffers
	// - Objects pass as handles

	sigs := deriveFrom(t, `
namespace demo {
    void scalars(boolean b, i8 a, u64 big, f32 ratio, timestamp at, duration took);
    void buffers(string s, bytes raw, sequence<u8> xs, record<string, u8> m, u32? maybe, Point p);
    Which pick(Which w);
    Shape reshape(Shape s);
    Counter track(Counter c);
};

enum Which { "Yeah", "Nah" };

[Enum]
interface Shape {
    Circle(f64 radius);
};

dictionary Point { f64 x; f64 y; };

interface Counter {
    constructor();
};`)

	scalars := sigs.ForCallable("fn:scalars")
	require.NotNil(t, scalars)
	want := []Type{Int8, Int8, UInt64, Float32, Int64, Int64}
	require.Len(t, scalars.Arguments, len(want))
	for i, w := range want {
		assert.Equal(t, w, scalars.Arguments[i].Type, "argument %d", i)
	}

	buffers := sigs.ForCallable("fn:buffers")
	require.NotNil(t, buffers)
	for i, arg := range buffers.Arguments {
		assert.Equal(t, Buffer, arg.Type, "argument %d", i)
	}

	pick := sigs.ForCallable("fn:pick")
	assert.Equal(t, Int32, pick.Arguments[0].Type)
	require.NotNil(t, pick.Return)
	assert.Equal(t, Int32, *pick.Return)

	reshape := sigs.ForCallable("fn:reshape")
	assert.Equal(t, Buffer, reshape.Arguments[0].Type)
	assert.Equal(t, Buffer, *reshape.Return)

	track := sigs.ForCallable("fn:track")
	assert.Equal(t, Handle, track.Arguments[0].Type)
	assert.Equal(t, Handle, *track.Return)
}

func TestDerive_ErrorContract(t *testing.T) {
	// Test plan:
	// - A fallible callable records its error type
	// - A fallible callable without a named error type is rejected

	sigs := deriveFrom(t, `
namespace demo {
    [Throws=DemoError]
    void risky();
};
[Error]
enum DemoError { "Nope" };`)

	risky := sigs.ForCallable("fn:risky")
	require.NotNil(t, risky)
	assert.Equal(t, "DemoError", risky.ErrorType)

	doc, err := udl.Parse(`
namespace demo {
    [Throws]
    void risky();
};`)
	require.NoError(t, err)
	ci, err := model.BuildComponentInterface(doc)
	require.NoError(t, err)

	_, err = Derive(ci)
	require.Error(t, err)
	var missing *MissingErrorTypeError
	assert.ErrorAs(t, err, &missing)
}

func TestDerive_UsedTypesMinimal(t *testing.T) {
	// Test plan:
	// - A schema mentioning only booleans and a fieldless enum derives
	//   signatures whose types never include any integer wider than the
	//   discriminant and no buffers

	sigs := deriveFrom(t, `
namespace demo {
    Which which(boolean flip);
};
enum Which { "Yeah", "Nah" };`)

	used := sigs.UsedTypes()
	assert.True(t, used[Int8])
	assert.True(t, used[Int32])
	assert.False(t, used[Buffer])
	assert.False(t, used[Int64])
	assert.False(t, used[UInt32])
	assert.False(t, used[Handle])
}

func TestDerive_FFITypeSpelling(t *testing.T) {
	// Test plan:
	// - The C spelling of each scaffolding type is stable

	assert.Equal(t, "int8_t", Int8.String())
	assert.Equal(t, "uint64_t", Handle.String())
	assert.Equal(t, "ForeignBytes", Buffer.String())
	assert.Equal(t, "uint64_t", ForeignCallback.String())
	assert.Equal(t, "float", Float32.String())
	assert.Equal(t, "double", Float64.String())
}

func TestCallStatusCodes(t *testing.T) {
	// Test plan:
	// - The status codes are fixed: 0 ok, 1 error, 2 panic

	assert.Equal(t, CallStatusCode(0), CallOk)
	assert.Equal(t, CallStatusCode(1), CallError)
	assert.Equal(t, CallStatusCode(2), CallPanic)
	assert.Equal(t, "panic", CallPanic.String())
}
