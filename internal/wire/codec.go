// Package wire implements the buffer encoding every generated binding must
// produce and consume identically: big-endian fixed-width scalars, i32
// length prefixes, a leading presence byte for optionals and a source-order
// i32 discriminant for enum variants. A decoder reads back exactly the bytes
// an encoder wrote, and no more.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/crossbind/crossbind/internal/model"
)

// Codec encodes and decodes dynamic values against the type definitions of
// one ComponentInterface.
type Codec struct {
	ci *model.ComponentInterface
}

// NewCodec creates a codec over a built interface.
func NewCodec(ci *model.ComponentInterface) *Codec {
	return &Codec{ci: ci}
}

// Encode serializes v as a value of type t.
func (c *Codec) Encode(t model.Type, v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encode(&buf, t, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a value of type t, failing if data holds anything
// beyond the value's exact encoding.
func (c *Codec) Decode(t model.Type, data []byte) (Value, error) {
	r := &reader{data: data}
	v, err := c.decode(r, t)
	if err != nil {
		return nil, err
	}
	if r.off != len(r.data) {
		return nil, fmt.Errorf("wire: %d trailing bytes after %s value", len(r.data)-r.off, t)
	}
	return v, nil
}

func (c *Codec) encode(buf *bytes.Buffer, t model.Type, v Value) error {
	switch t.Kind {
	case model.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return typeMismatch(t, v)
		}
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	case model.KindInt8, model.KindInt16, model.KindInt32, model.KindInt64,
		model.KindUInt8, model.KindUInt16, model.KindUInt32, model.KindUInt64,
		model.KindFloat32, model.KindFloat64:
		return encodeScalar(buf, t, v)
	case model.KindString:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(t, v)
		}
		return writeBytes(buf, []byte(s))
	case model.KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return typeMismatch(t, v)
		}
		return writeBytes(buf, b)
	case model.KindTimestamp:
		ts, ok := v.(time.Time)
		if !ok {
			return typeMismatch(t, v)
		}
		writeI64(buf, ts.Unix())
		writeU32(buf, uint32(ts.Nanosecond()))
		return nil
	case model.KindDuration:
		d, ok := v.(time.Duration)
		if !ok {
			return typeMismatch(t, v)
		}
		secs, nanos := splitDuration(d)
		writeI64(buf, secs)
		writeU32(buf, nanos)
		return nil
	case model.KindOptional:
		if v == nil {
			buf.WriteByte(0)
			return nil
		}
		buf.WriteByte(1)
		return c.encode(buf, *t.Elem, v)
	case model.KindSequence:
		seq, ok := v.([]Value)
		if !ok {
			return typeMismatch(t, v)
		}
		if err := writeCount(buf, len(seq)); err != nil {
			return err
		}
		for _, elem := range seq {
			if err := c.encode(buf, *t.Elem, elem); err != nil {
				return err
			}
		}
		return nil
	case model.KindMap:
		m, ok := v.(MapValue)
		if !ok {
			return typeMismatch(t, v)
		}
		if err := writeCount(buf, len(m)); err != nil {
			return err
		}
		for _, entry := range m {
			if err := c.encode(buf, *t.Key, entry.Key); err != nil {
				return err
			}
			if err := c.encode(buf, *t.Value, entry.Value); err != nil {
				return err
			}
		}
		return nil
	case model.KindRecord:
		rec, ok := v.(RecordValue)
		if !ok {
			return typeMismatch(t, v)
		}
		def := c.ci.GetRecordDefinition(t.Name)
		if def == nil {
			return fmt.Errorf("wire: unknown record '%s'", t.Name)
		}
		for _, field := range def.Fields {
			fv, present := rec[field.Name]
			if !present {
				return fmt.Errorf("wire: record '%s' value is missing field '%s'", t.Name, field.Name)
			}
			if err := c.encode(buf, field.Type, fv); err != nil {
				return err
			}
		}
		return nil
	case model.KindEnum, model.KindError:
		ev, ok := v.(EnumValue)
		if !ok {
			return typeMismatch(t, v)
		}
		def := c.ci.GetEnumDefinition(t.Name)
		if def == nil {
			return fmt.Errorf("wire: unknown enum '%s'", t.Name)
		}
		idx := def.VariantIndex(ev.Variant)
		if idx < 0 {
			return fmt.Errorf("wire: enum '%s' has no variant '%s'", t.Name, ev.Variant)
		}
		writeI32(buf, int32(idx))
		for _, field := range def.Variants[idx].Fields {
			fv, present := ev.Fields[field.Name]
			if !present {
				return fmt.Errorf("wire: variant '%s.%s' value is missing field '%s'", t.Name, ev.Variant, field.Name)
			}
			if err := c.encode(buf, field.Type, fv); err != nil {
				return err
			}
		}
		return nil
	case model.KindObject, model.KindCallback:
		return fmt.Errorf("wire: %s '%s' is a reference type and is never buffer-encoded", t.Kind, t.Name)
	default:
		return fmt.Errorf("wire: cannot encode type %s", t)
	}
}

func (c *Codec) decode(r *reader, t model.Type) (Value, error) {
	switch t.Kind {
	case model.KindBoolean:
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		switch b {
		case 0:
			return false, nil
		case 1:
			return true, nil
		default:
			return nil, fmt.Errorf("wire: invalid boolean byte %d", b)
		}
	case model.KindInt8, model.KindInt16, model.KindInt32, model.KindInt64,
		model.KindUInt8, model.KindUInt16, model.KindUInt32, model.KindUInt64,
		model.KindFloat32, model.KindFloat64:
		return decodeScalar(r, t)
	case model.KindString:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case model.KindBytes:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	case model.KindTimestamp:
		secs, err := r.i64()
		if err != nil {
			return nil, err
		}
		nanos, err := r.u32()
		if err != nil {
			return nil, err
		}
		if nanos >= 1_000_000_000 {
			return nil, fmt.Errorf("wire: timestamp nanoseconds out of range: %d", nanos)
		}
		return time.Unix(secs, int64(nanos)).UTC(), nil
	case model.KindDuration:
		secs, err := r.i64()
		if err != nil {
			return nil, err
		}
		nanos, err := r.u32()
		if err != nil {
			return nil, err
		}
		if nanos >= 1_000_000_000 {
			return nil, fmt.Errorf("wire: duration nanoseconds out of range: %d", nanos)
		}
		return time.Duration(secs*int64(time.Second) + int64(nanos)), nil
	case model.KindOptional:
		present, err := r.byte()
		if err != nil {
			return nil, err
		}
		switch present {
		case 0:
			return nil, nil
		case 1:
			return c.decode(r, *t.Elem)
		default:
			return nil, fmt.Errorf("wire: invalid presence byte %d", present)
		}
	case model.KindSequence:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		// The count is untrusted input; every element takes at least one
		// byte, so remaining() bounds any honest count.
		seq := make([]Value, 0, min(n, r.remaining()))
		for i := 0; i < n; i++ {
			elem, err := c.decode(r, *t.Elem)
			if err != nil {
				return nil, err
			}
			seq = append(seq, elem)
		}
		return seq, nil
	case model.KindMap:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		m := make(MapValue, 0, min(n, r.remaining()))
		for i := 0; i < n; i++ {
			key, err := c.decode(r, *t.Key)
			if err != nil {
				return nil, err
			}
			value, err := c.decode(r, *t.Value)
			if err != nil {
				return nil, err
			}
			m = append(m, MapEntry{Key: key, Value: value})
		}
		return m, nil
	case model.KindRecord:
		def := c.ci.GetRecordDefinition(t.Name)
		if def == nil {
			return nil, fmt.Errorf("wire: unknown record '%s'", t.Name)
		}
		rec := make(RecordValue, len(def.Fields))
		for _, field := range def.Fields {
			fv, err := c.decode(r, field.Type)
			if err != nil {
				return nil, err
			}
			rec[field.Name] = fv
		}
		return rec, nil
	case model.KindEnum, model.KindError:
		def := c.ci.GetEnumDefinition(t.Name)
		if def == nil {
			return nil, fmt.Errorf("wire: unknown enum '%s'", t.Name)
		}
		idx, err := r.i32()
		if err != nil {
			return nil, err
		}
		if idx < 0 || int(idx) >= len(def.Variants) {
			return nil, fmt.Errorf("wire: enum '%s' discriminant %d out of range", t.Name, idx)
		}
		variant := def.Variants[idx]
		ev := EnumValue{Variant: variant.Name}
		if len(variant.Fields) > 0 {
			ev.Fields = make(map[string]Value, len(variant.Fields))
			for _, field := range variant.Fields {
				fv, err := c.decode(r, field.Type)
				if err != nil {
					return nil, err
				}
				ev.Fields[field.Name] = fv
			}
		}
		return ev, nil
	case model.KindObject, model.KindCallback:
		return nil, fmt.Errorf("wire: %s '%s' is a reference type and is never buffer-encoded", t.Kind, t.Name)
	default:
		return nil, fmt.Errorf("wire: cannot decode type %s", t)
	}
}

func encodeScalar(buf *bytes.Buffer, t model.Type, v Value) error {
	switch t.Kind {
	case model.KindInt8:
		if x, ok := v.(int8); ok {
			buf.WriteByte(byte(x))
			return nil
		}
	case model.KindInt16:
		if x, ok := v.(int16); ok {
			var tmp [2]byte
			binary.BigEndian.PutUint16(tmp[:], uint16(x))
			buf.Write(tmp[:])
			return nil
		}
	case model.KindInt32:
		if x, ok := v.(int32); ok {
			writeI32(buf, x)
			return nil
		}
	case model.KindInt64:
		if x, ok := v.(int64); ok {
			writeI64(buf, x)
			return nil
		}
	case model.KindUInt8:
		if x, ok := v.(uint8); ok {
			buf.WriteByte(x)
			return nil
		}
	case model.KindUInt16:
		if x, ok := v.(uint16); ok {
			var tmp [2]byte
			binary.BigEndian.PutUint16(tmp[:], x)
			buf.Write(tmp[:])
			return nil
		}
	case model.KindUInt32:
		if x, ok := v.(uint32); ok {
			writeU32(buf, x)
			return nil
		}
	case model.KindUInt64:
		if x, ok := v.(uint64); ok {
			var tmp [8]byte
			binary.BigEndian.PutUint64(tmp[:], x)
			buf.Write(tmp[:])
			return nil
		}
	case model.KindFloat32:
		if x, ok := v.(float32); ok {
			writeU32(buf, math.Float32bits(x))
			return nil
		}
	case model.KindFloat64:
		if x, ok := v.(float64); ok {
			var tmp [8]byte
			binary.BigEndian.PutUint64(tmp[:], math.Float64bits(x))
			buf.Write(tmp[:])
			return nil
		}
	}
	return typeMismatch(t, v)
}

func decodeScalar(r *reader, t model.Type) (Value, error) {
	switch t.Kind {
	case model.KindInt8:
		b, err := r.byte()
		return int8(b), err
	case model.KindInt16:
		raw, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return int16(binary.BigEndian.Uint16(raw)), nil
	case model.KindInt32:
		return r.i32()
	case model.KindInt64:
		return r.i64()
	case model.KindUInt8:
		return r.byte()
	case model.KindUInt16:
		raw, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint16(raw), nil
	case model.KindUInt32:
		return r.u32()
	case model.KindUInt64:
		raw, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint64(raw), nil
	case model.KindFloat32:
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(v), nil
	case model.KindFloat64:
		raw, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
	}
	return nil, fmt.Errorf("wire: not a scalar type: %s", t)
}

func typeMismatch(t model.Type, v Value) error {
	return fmt.Errorf("wire: value %T is not representable as %s", v, t)
}

func splitDuration(d time.Duration) (int64, uint32) {
	ns := d.Nanoseconds()
	secs := ns / int64(time.Second)
	rem := ns % int64(time.Second)
	if rem < 0 {
		secs--
		rem += int64(time.Second)
	}
	return secs, uint32(rem)
}

func writeBytes(buf *bytes.Buffer, b []byte) error {
	if err := writeCount(buf, len(b)); err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeCount(buf *bytes.Buffer, n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("wire: length %d exceeds i32 prefix", n)
	}
	writeI32(buf, int32(n))
	return nil
}

func writeI32(buf *bytes.Buffer, v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	buf.Write(tmp[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeI64(buf *bytes.Buffer, v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	buf.Write(tmp[:])
}

// reader consumes a wire buffer front to back, failing on truncation.
type reader struct {
	data []byte
	off  int
}

func (r *reader) take(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, fmt.Errorf("wire: truncated buffer: need %d bytes at offset %d, have %d", n, r.off, len(r.data)-r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) i32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) i64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *reader) count() (int, error) {
	n, err := r.i32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("wire: negative length prefix %d", n)
	}
	return int(n), nil
}

func (r *reader) lengthPrefixed() ([]byte, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	return r.take(n)
}
