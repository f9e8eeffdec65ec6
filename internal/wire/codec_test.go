package wire

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossbind/crossbind/internal/model"
	"github.com/crossbind/crossbind/internal/udl"
)

func codecFor(t *testing.T, src string) *Codec {
	t.Helper()
	doc, err := udl.Parse(src)
	require.NoError(t, err)
	ci, err := model.BuildComponentInterface(doc)
	require.NoError(t, err)
	return NewCodec(ci)
}

func emptyCodec(t *testing.T) *Codec {
	t.Helper()
	return codecFor(t, `namespace demo {};`)
}

func roundTrip(t *testing.T, c *Codec, typ model.Type, v Value) Value {
	t.Helper()
	data, err := c.Encode(typ, v)
	require.NoError(t, err)
	got, err := c.Decode(typ, data)
	require.NoError(t, err)
	return got
}

func TestCodec_Scalars(t *testing.T) {
	// Test plan:
	// - Every scalar round-trips to the exact Go type
	// - Encodings use big-endian fixed widths

	c := emptyCodec(t)

	tests := []struct {
		typ  model.Type
		v    Value
		size int
	}{
		{model.Scalar(model.KindBoolean), true, 1},
		{model.Scalar(model.KindInt8), int8(-5), 1},
		{model.Scalar(model.KindInt16), int16(-1000), 2},
		{model.Scalar(model.KindInt32), int32(-70000), 4},
		{model.Scalar(model.KindInt64), int64(-5e12), 8},
		{model.Scalar(model.KindUInt8), uint8(200), 1},
		{model.Scalar(model.KindUInt16), uint16(60000), 2},
		{model.Scalar(model.KindUInt32), uint32(4e9), 4},
		{model.Scalar(model.KindUInt64), uint64(1) << 63, 8},
		{model.Scalar(model.KindFloat32), float32(1.5), 4},
		{model.Scalar(model.KindFloat64), 3.25, 8},
	}

	for _, tc := range tests {
		data, err := c.Encode(tc.typ, tc.v)
		require.NoError(t, err, "%s", tc.typ)
		assert.Len(t, data, tc.size, "%s", tc.typ)

		got, err := c.Decode(tc.typ, data)
		require.NoError(t, err, "%s", tc.typ)
		assert.Equal(t, tc.v, got, "%s", tc.typ)
	}

	data, err := c.Encode(model.Scalar(model.KindUInt16), uint16(0x0102))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, data)
}

func TestCodec_StringAndBytes(t *testing.T) {
	// Test plan:
	// - Length-prefixed UTF-8 string and raw byte encodings
	// - The prefix is a big-endian i32 byte count

	c := emptyCodec(t)

	data, err := c.Encode(model.String(), "héllo")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 6}, data[:4])
	assert.Equal(t, "héllo", roundTrip(t, c, model.String(), "héllo"))

	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	assert.Equal(t, raw, roundTrip(t, c, model.Bytes(), raw))
	assert.Equal(t, []byte{}, roundTrip(t, c, model.Bytes(), []byte{}))
}

func TestCodec_TimestampAndDuration(t *testing.T) {
	// Test plan:
	// - Timestamps decode in UTC with nanosecond precision
	// - Negative durations split with a floored seconds part
	// - Out of range nanoseconds are rejected

	c := emptyCodec(t)

	at := time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)
	got := roundTrip(t, c, model.Scalar(model.KindTimestamp), at)
	assert.True(t, at.Equal(got.(time.Time)))
	assert.Equal(t, time.UTC, got.(time.Time).Location())

	for _, d := range []time.Duration{
		1500 * time.Millisecond,
		-1500 * time.Millisecond,
		-time.Nanosecond,
		0,
	} {
		assert.Equal(t, d, roundTrip(t, c, model.Scalar(model.KindDuration), d), "%s", d)
	}

	secs, nanos := splitDuration(-1500 * time.Millisecond)
	assert.Equal(t, int64(-2), secs)
	assert.Equal(t, uint32(500_000_000), nanos)

	bad := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}
	_, err := c.Decode(model.Scalar(model.KindDuration), bad)
	assert.Error(t, err)
}

func TestCodec_Compounds(t *testing.T) {
	// Test plan:
	// - Optionals use a presence byte
	// - Sequences and maps are count-prefixed
	// - Map entries keep insertion order

	c := emptyCodec(t)

	opt := model.OptionalOf(model.String())
	data, err := c.Encode(opt, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, data)
	assert.Nil(t, roundTrip(t, c, opt, nil))
	assert.Equal(t, "hi", roundTrip(t, c, opt, "hi"))

	seq := model.SequenceOf(model.Scalar(model.KindUInt8))
	data, err = c.Encode(seq, []Value{uint8(1), uint8(2), uint8(3)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 3, 1, 2, 3}, data)

	mt := model.MapOf(model.String(), model.Scalar(model.KindUInt32))
	in := MapValue{
		{Key: "b", Value: uint32(2)},
		{Key: "a", Value: uint32(1)},
	}
	got := roundTrip(t, c, mt, in)
	assert.Equal(t, in, got)

	nested := model.SequenceOf(model.OptionalOf(model.Scalar(model.KindBoolean)))
	assert.Equal(t,
		[]Value{true, nil, false},
		roundTrip(t, c, nested, []Value{true, nil, false}))
}

func TestCodec_Records(t *testing.T) {
	// Test plan:
	// - Record fields encode in declaration order with no markers
	// - A value missing a declared field fails to encode

	c := codecFor(t, `
namespace demo {};
dictionary Point {
    u8 x;
    u8 y;
};`)

	pt := model.RecordRef("Point")
	data, err := c.Encode(pt, RecordValue{"x": uint8(7), "y": uint8(9)})
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 9}, data)

	got := roundTrip(t, c, pt, RecordValue{"x": uint8(7), "y": uint8(9)})
	assert.Equal(t, RecordValue{"x": uint8(7), "y": uint8(9)}, got)

	_, err = c.Encode(pt, RecordValue{"x": uint8(7)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing field 'y'")
}

func TestCodec_Enums(t *testing.T) {
	// Test plan:
	// - Discriminants are 0-based source-order i32 values
	// - Variant fields follow the discriminant in order
	// - Reordering variants changes the encoded bytes
	// - Out of range discriminants fail to decode

	c := codecFor(t, `
namespace demo {};
enum Which { "Yeah", "Nah" };
[Enum]
interface Shape {
    Circle(f64 radius);
    Empty();
};`)

	which := model.EnumRef("Which")
	data, err := c.Encode(which, EnumValue{Variant: "Nah"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1}, data)

	reordered := codecFor(t, `
namespace demo {};
enum Which { "Nah", "Yeah" };`)
	data2, err := reordered.Encode(which, EnumValue{Variant: "Nah"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data2)
	assert.NotEqual(t, data, data2)

	shape := model.EnumRef("Shape")
	circle := EnumValue{Variant: "Circle", Fields: map[string]Value{"radius": 2.0}}
	got := roundTrip(t, c, shape, circle)
	assert.Equal(t, circle, got)

	data, err = c.Encode(shape, EnumValue{Variant: "Empty"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1}, data)

	_, err = c.Decode(which, []byte{0, 0, 0, 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = c.Encode(which, EnumValue{Variant: "Maybe"})
	assert.Error(t, err)
}

func TestCodec_DecodeStrictness(t *testing.T) {
	// Test plan:
	// - Trailing bytes after a complete value are an error
	// - Truncated buffers are an error
	// - Invalid boolean and presence bytes are errors

	c := emptyCodec(t)

	_, err := c.Decode(model.Scalar(model.KindBoolean), []byte{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing")

	_, err = c.Decode(model.Scalar(model.KindUInt32), []byte{0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")

	_, err = c.Decode(model.Scalar(model.KindBoolean), []byte{2})
	assert.Error(t, err)

	_, err = c.Decode(model.OptionalOf(model.String()), []byte{7})
	assert.Error(t, err)

	_, err = c.Decode(model.String(), []byte{0xff, 0xff, 0xff, 0xff})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestCodec_HostileElementCounts(t *testing.T) {
	// Test plan:
	// - A short buffer claiming millions of elements fails on truncation
	//   without the decoder reserving memory for the claimed count
	// - Maps are bounded the same way

	c := emptyCodec(t)

	// Count prefix 20,000,000 followed by a single payload byte.
	hostile := []byte{0x01, 0x31, 0x2d, 0x00, 0x07}

	seq := model.SequenceOf(model.Scalar(model.KindUInt64))
	before := allocatedBytes()
	_, err := c.Decode(seq, hostile)
	grown := allocatedBytes() - before
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
	assert.Less(t, grown, uint64(1<<20), "decoder reserved memory for the claimed count")

	mt := model.MapOf(model.String(), model.Scalar(model.KindUInt32))
	_, err = c.Decode(mt, hostile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func allocatedBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.TotalAlloc
}

func TestCodec_ReferenceTypesRejected(t *testing.T) {
	// Test plan:
	// - Objects and callbacks never pass through the buffer encoding

	c := codecFor(t, `
namespace demo {};
interface Conn {};`)

	_, err := c.Encode(model.ObjectRef("Conn"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never buffer-encoded")

	_, err = c.Decode(model.CallbackRef("Logger"), nil)
	assert.Error(t, err)
}

func TestCodec_TypeMismatch(t *testing.T) {
	// Test plan:
	// - A Go value of the wrong dynamic type fails with a clear error

	c := emptyCodec(t)

	_, err := c.Encode(model.Scalar(model.KindUInt8), int64(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not representable")

	_, err = c.Encode(model.String(), 42)
	assert.Error(t, err)
}
