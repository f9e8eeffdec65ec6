package wire

// Value is a dynamic, language-neutral value used to exercise the buffer
// encoding against a ComponentInterface. The Go representation per kind:
//
//	boolean            bool
//	i8..i64            int8..int64
//	u8..u64            uint8..uint64
//	f32, f64           float32, float64
//	string             string
//	bytes              []byte
//	timestamp          time.Time
//	duration           time.Duration
//	optional<T>        nil, or T's representation
//	sequence<T>        []Value
//	record<K, V>       MapValue (order-preserving)
//	Record             RecordValue
//	Enum / Error       EnumValue
type Value interface{}

// RecordValue holds record field values keyed by field name. Encoding order
// comes from the model's field order, not from this map.
type RecordValue map[string]Value

// EnumValue is one enum alternative, with field values for variants that
// carry associated data.
type EnumValue struct {
	Variant string
	Fields  map[string]Value
}

// MapEntry is one key/value pair of a wire map.
type MapEntry struct {
	Key   Value
	Value Value
}

// MapValue preserves insertion order so encoding is deterministic.
type MapValue []MapEntry
