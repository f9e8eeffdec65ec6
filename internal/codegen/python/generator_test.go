package python

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossbind/crossbind/internal/ffi"
	"github.com/crossbind/crossbind/internal/model"
	"github.com/crossbind/crossbind/internal/udl"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	doc, err := udl.Parse(src)
	require.NoError(t, err)
	ci, err := model.BuildComponentInterface(doc)
	require.NoError(t, err)
	sigs, err := ffi.Derive(ci)
	require.NoError(t, err)
	out, err := NewGenerator("demo").Generate(ci, sigs)
	require.NoError(t, err)
	return string(out)
}

func TestGenerate_MinimalSchemaEmitsOnlyUsedHelpers(t *testing.T) {
	// Test plan:
	// - A boolean plus fieldless enum schema emits exactly those helpers
	// - No integer converters, no stream machinery, no struct import

	out := generate(t, `
namespace demo {
    Which which(boolean flip);
};
enum Which { "Yeah", "Nah" };`)

	assert.Contains(t, out, "class Which(enum.Enum):")
	assert.Contains(t, out, "Yeah = 0")
	assert.Contains(t, out, "Nah = 1")
	assert.Contains(t, out, "def _lower_boolean(")
	assert.Contains(t, out, "def _lower_Which(")
	assert.Contains(t, out, "def which(flip):")
	assert.Contains(t, out, "class _CallStatus(ctypes.Structure):")
	assert.Contains(t, out, "def _invoke(")

	assert.NotContains(t, out, "_lower_i8")
	assert.NotContains(t, out, "_lower_u32")
	assert.NotContains(t, out, "_lower_string")
	assert.NotContains(t, out, "class _BufferWriter")
	assert.NotContains(t, out, "def _new_buffer(")
	assert.NotContains(t, out, "import struct")
	assert.NotContains(t, out, "import datetime")
}

func TestGenerate_SymbolPrototypes(t *testing.T) {
	// Test plan:
	// - Every exported symbol gets argtypes and restype declarations
	//   (ctypes would otherwise assume c_int returns)
	// - Buffer-returning symbols declare _ForeignBytes, void symbols None
	// - The global allocator pair is declared too

	out := generate(t, `
namespace demo {
    string greet(string name);
    void ping();
};`)

	assert.Contains(t, out, "_STATUS_PTR = ctypes.POINTER(_CallStatus)")
	assert.Contains(t, out, "_lib.ffi_demo_fn_greet.argtypes = [_ForeignBytes, _STATUS_PTR]")
	assert.Contains(t, out, "_lib.ffi_demo_fn_greet.restype = _ForeignBytes")
	assert.Contains(t, out, "_lib.ffi_demo_fn_ping.argtypes = [_STATUS_PTR]")
	assert.Contains(t, out, "_lib.ffi_demo_fn_ping.restype = None")
	assert.Contains(t, out, "_lib.ffi_demo_bytebuffer_alloc.restype = _ForeignBytes")
	assert.Contains(t, out, "_lib.ffi_demo_bytebuffer_free.restype = None")
}

func TestGenerate_BufferLoweringAllocatesNatively(t *testing.T) {
	// Test plan:
	// - Lowered strings, bytes and compounds go through _new_buffer so the
	//   native side receives memory from its own allocator
	// - _new_buffer itself allocates through the exported pair

	out := generate(t, `
namespace demo {
    string greet(string name);
    sequence<u32> parse(bytes raw);
};`)

	assert.Contains(t, out, "def _new_buffer(data):")
	assert.Contains(t, out, "_invoke(_lib.ffi_demo_bytebuffer_alloc, None, len(data))")
	assert.Contains(t, out, "ctypes.memmove(buf.ptr, data, len(data))")
	assert.Contains(t, out, `return _new_buffer(value.encode("utf-8"))`)
	assert.Contains(t, out, "return _new_buffer(bytes(value))")
	assert.Contains(t, out, "return _new_buffer(bytes(stream.buf))")
}

func TestGenerate_BufferTypesBringStreams(t *testing.T) {
	// Test plan:
	// - A string-passing schema emits the stream classes and write/read pairs
	// - Compound helpers are named by tag

	out := generate(t, `
namespace demo {
    sequence<string> split(string input, u8? limit);
};`)

	assert.Contains(t, out, "import struct")
	assert.Contains(t, out, "class _BufferWriter:")
	assert.Contains(t, out, "class _BufferReader:")
	assert.Contains(t, out, "def _lower_seq_string(")
	assert.Contains(t, out, "def _write_opt_u8(")
	assert.Contains(t, out, "def _read_string(")
}

func TestGenerate_Objects(t *testing.T) {
	// Test plan:
	// - Objects get constructors, handle lifting and guarded finalizers
	// - Named constructors become classmethods
	// - Fallible methods pass their error lifter to _invoke

	out := generate(t, `
namespace demo {};

[Error]
enum CounterError { "Overflow" };

interface Counter {
    constructor(string name);
    [Name=with_start]
    constructor(string name, u64 start);
    [Throws=CounterError]
    u64 increment_by(u64 amount);
};`)

	assert.Contains(t, out, "class Counter:")
	assert.Contains(t, out, "def _from_handle(cls, handle):")
	assert.Contains(t, out, "def with_start(cls, name, start):")
	assert.Contains(t, out, "ffi_demo_Counter_object_free")
	assert.Contains(t, out, "class CounterError(Exception):")
	assert.Contains(t, out, "_lift_CounterError")
}

func TestGenerate_ObjectRelease(t *testing.T) {
	// Test plan:
	// - Objects release deterministically through close(), usable as a
	//   context manager
	// - close() is idempotent and __del__ delegates to it

	out := generate(t, `
namespace demo {};

interface Session {
    constructor();
    void send(string line);
};`)

	assert.Contains(t, out, "def close(self):")
	assert.Contains(t, out, `if getattr(self, "_handle", None) is not None:`)
	assert.Contains(t, out, "_invoke(_lib.ffi_demo_Session_object_free, None, self._handle)")
	assert.Contains(t, out, "self._handle = None")
	assert.Contains(t, out, "def __enter__(self):")
	assert.Contains(t, out, "def __exit__(self, exc_type, exc_value, traceback):")
	assert.Contains(t, out, "def __del__(self):")
	assert.Contains(t, out, "self.close()")
}

func TestGenerate_TimestampDurationIntegerMath(t *testing.T) {
	// Test plan:
	// - Timestamp and duration conversions compose integers end to end,
	//   never floating-point seconds

	out := generate(t, `
namespace demo {
    timestamp now();
    duration elapsed(duration d);
};`)

	assert.Contains(t, out, "import calendar")
	assert.Contains(t, out, "_EPOCH = datetime.datetime(1970, 1, 1, tzinfo=datetime.timezone.utc)")
	assert.Contains(t, out, "seconds = calendar.timegm(value.utctimetuple())")
	assert.Contains(t, out, "return seconds * 1_000_000_000 + value.microsecond * 1_000")
	assert.Contains(t, out, "return (value.days * 86_400 + value.seconds) * 1_000_000_000 + value.microseconds * 1_000")
	assert.Contains(t, out, "seconds=value // 1_000_000_000, microseconds=(value % 1_000_000_000) // 1_000")

	assert.NotContains(t, out, "value.timestamp()")
	assert.NotContains(t, out, "total_seconds()")
	assert.NotContains(t, out, "value / 1_000_000_000")
	assert.NotContains(t, out, "value / 1_000")
}

func TestGenerate_DataEnumAndRecord(t *testing.T) {
	// Test plan:
	// - Data enums emit a base class plus one subclass per variant
	// - Records emit a class with field defaults

	out := generate(t, `
namespace demo {
    Shape make(Point at);
};

[Enum]
interface Shape {
    Circle(f64 radius);
    Empty();
};

dictionary Point {
    f64 x;
    f64 y = 0.0;
};`)

	assert.Contains(t, out, "class Shape(object):")
	assert.Contains(t, out, "class ShapeCircle(Shape):")
	assert.Contains(t, out, "class ShapeEmpty(Shape):")
	assert.Contains(t, out, "class Point:")
	assert.Contains(t, out, "def __init__(self, x, y=0):")
	assert.Contains(t, out, "def _write_Shape(")
	assert.Contains(t, out, "def _read_Point(")
}

func TestGenerate_Callbacks(t *testing.T) {
	// Test plan:
	// - Callback interfaces get a registry, a trampoline and an init call
	// - The trampoline is registered as a plain function pointer

	out := generate(t, `
namespace demo {
    void set_logger(Logger logger);
};

callback interface Logger {
    void log(string message);
};`)

	assert.Contains(t, out, "_callback_registry_Logger")
	assert.Contains(t, out, "_register_callback_Logger")
	assert.Contains(t, out, "_trampoline_Logger")
	assert.Contains(t, out, "ffi_demo_Logger_init_callback")
	assert.Contains(t, out, "ctypes.cast(_trampoline_Logger, ctypes.c_void_p)")
}

func TestGenerate_CallbackDispatchLiftsArguments(t *testing.T) {
	// Test plan:
	// - Dispatch decodes each argument from the args buffer and passes it on
	// - A returning method serializes its result into the out buffer
	// - The args buffer is consumed exactly once

	out := generate(t, `
namespace demo {
    void set_handler(Handler h);
};

callback interface Handler {
    void log(string message, u32 level);
    u64 lines();
};`)

	assert.Contains(t, out, "args_data = _consume_buffer(args_buf)")
	assert.Contains(t, out, "stream = _BufferReader(args_data)")
	assert.Contains(t, out, "arg_message = _read_string(stream)")
	assert.Contains(t, out, "arg_level = _read_u32(stream)")
	assert.Contains(t, out, "stream.done()")
	assert.Contains(t, out, "obj.log(arg_message, arg_level)")
	assert.Contains(t, out, "result = obj.lines()")
	assert.Contains(t, out, "_write_u64(out, result)")
	assert.Contains(t, out, "out_buf[0] = _new_buffer(bytes(out.buf))")

	assert.NotContains(t, out, "obj.log()")
}

func TestGenerator_Metadata(t *testing.T) {
	// Test plan:
	// - Language and extension identify the generator

	g := NewGenerator("demo")
	assert.Equal(t, "python", g.Language())
	assert.Equal(t, ".py", g.FileExtension())
}
