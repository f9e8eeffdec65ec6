package oracle

import "github.com/crossbind/crossbind/internal/model"

// pythonOracle maps semantic types onto Python's surface. Conversion
// helpers follow the generated module's `_lower_<tag>` / `_lift_<tag>`
// naming so every compound type reuses one helper pair.
var pythonOracle = &Oracle{
	Language: "python",
	scalars: map[model.Kind]Entry{
		model.KindBoolean:   {NativeType: "bool", Lower: "_lower_boolean(%s)", Lift: "_lift_boolean(%s)"},
		model.KindInt8:      {NativeType: "int", Lower: "_lower_i8(%s)", Lift: "_lift_i8(%s)"},
		model.KindInt16:     {NativeType: "int", Lower: "_lower_i16(%s)", Lift: "_lift_i16(%s)"},
		model.KindInt32:     {NativeType: "int", Lower: "_lower_i32(%s)", Lift: "_lift_i32(%s)"},
		model.KindInt64:     {NativeType: "int", Lower: "_lower_i64(%s)", Lift: "_lift_i64(%s)"},
		model.KindUInt8:     {NativeType: "int", Lower: "_lower_u8(%s)", Lift: "_lift_u8(%s)"},
		model.KindUInt16:    {NativeType: "int", Lower: "_lower_u16(%s)", Lift: "_lift_u16(%s)"},
		model.KindUInt32:    {NativeType: "int", Lower: "_lower_u32(%s)", Lift: "_lift_u32(%s)"},
		model.KindUInt64:    {NativeType: "int", Lower: "_lower_u64(%s)", Lift: "_lift_u64(%s)"},
		model.KindFloat32:   {NativeType: "float", Lower: "_lower_f32(%s)", Lift: "_lift_f32(%s)"},
		model.KindFloat64:   {NativeType: "float", Lower: "_lower_f64(%s)", Lift: "_lift_f64(%s)"},
		model.KindString:    {NativeType: "str", Lower: "_lower_string(%s)", Lift: "_lift_string(%s)"},
		model.KindBytes:     {NativeType: "bytes", Lower: "_lower_bytes(%s)", Lift: "_lift_bytes(%s)"},
		model.KindTimestamp: {NativeType: "datetime.datetime", Lower: "_lower_timestamp(%s)", Lift: "_lift_timestamp(%s)"},
		model.KindDuration:  {NativeType: "datetime.timedelta", Lower: "_lower_duration(%s)", Lift: "_lift_duration(%s)"},
	},
	sequence: func(elem Entry, tag string) Entry {
		return Entry{
			NativeType: "typing.List[" + elem.NativeType + "]",
			Lower:      "_lower_" + tag + "(%s)",
			Lift:       "_lift_" + tag + "(%s)",
		}
	},
	mapType: func(key, value Entry, tag string) Entry {
		return Entry{
			NativeType: "typing.Dict[" + key.NativeType + ", " + value.NativeType + "]",
			Lower:      "_lower_" + tag + "(%s)",
			Lift:       "_lift_" + tag + "(%s)",
		}
	},
	optional: func(elem Entry, tag string) Entry {
		return Entry{
			NativeType: "typing.Optional[" + elem.NativeType + "]",
			Lower:      "_lower_" + tag + "(%s)",
			Lift:       "_lift_" + tag + "(%s)",
		}
	},
	named: func(kind model.Kind, name string) Entry {
		switch kind {
		case model.KindObject:
			return Entry{NativeType: name, Lower: "%s._handle", Lift: name + "._from_handle(%s)"}
		case model.KindCallback:
			return Entry{NativeType: name, Lower: "_register_callback_" + name + "(%s)", Lift: "_callback_registry_" + name + ".get(%s)"}
		default:
			return Entry{NativeType: name, Lower: "_lower_" + name + "(%s)", Lift: "_lift_" + name + "(%s)"}
		}
	},
}
