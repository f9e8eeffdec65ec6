package oracle

import "github.com/crossbind/crossbind/internal/model"

// typescriptOracle maps semantic types onto TypeScript's surface. 64-bit
// integers map to bigint; everything narrower fits in number.
var typescriptOracle = &Oracle{
	Language: "typescript",
	scalars: map[model.Kind]Entry{
		model.KindBoolean:   {NativeType: "boolean", Lower: "lowerBoolean(%s)", Lift: "liftBoolean(%s)"},
		model.KindInt8:      {NativeType: "number", Lower: "lowerI8(%s)", Lift: "liftI8(%s)"},
		model.KindInt16:     {NativeType: "number", Lower: "lowerI16(%s)", Lift: "liftI16(%s)"},
		model.KindInt32:     {NativeType: "number", Lower: "lowerI32(%s)", Lift: "liftI32(%s)"},
		model.KindInt64:     {NativeType: "bigint", Lower: "lowerI64(%s)", Lift: "liftI64(%s)"},
		model.KindUInt8:     {NativeType: "number", Lower: "lowerU8(%s)", Lift: "liftU8(%s)"},
		model.KindUInt16:    {NativeType: "number", Lower: "lowerU16(%s)", Lift: "liftU16(%s)"},
		model.KindUInt32:    {NativeType: "number", Lower: "lowerU32(%s)", Lift: "liftU32(%s)"},
		model.KindUInt64:    {NativeType: "bigint", Lower: "lowerU64(%s)", Lift: "liftU64(%s)"},
		model.KindFloat32:   {NativeType: "number", Lower: "lowerF32(%s)", Lift: "liftF32(%s)"},
		model.KindFloat64:   {NativeType: "number", Lower: "lowerF64(%s)", Lift: "liftF64(%s)"},
		model.KindString:    {NativeType: "string", Lower: "lowerString(%s)", Lift: "liftString(%s)"},
		model.KindBytes:     {NativeType: "Uint8Array", Lower: "lowerBytes(%s)", Lift: "liftBytes(%s)"},
		model.KindTimestamp: {NativeType: "Date", Lower: "lowerTimestamp(%s)", Lift: "liftTimestamp(%s)"},
		model.KindDuration:  {NativeType: "number", Lower: "lowerDuration(%s)", Lift: "liftDuration(%s)"},
	},
	sequence: func(elem Entry, tag string) Entry {
		return Entry{
			NativeType: "Array<" + elem.NativeType + ">",
			Lower:      "lower_" + tag + "(%s)",
			Lift:       "lift_" + tag + "(%s)",
		}
	},
	mapType: func(key, value Entry, tag string) Entry {
		return Entry{
			NativeType: "Map<" + key.NativeType + ", " + value.NativeType + ">",
			Lower:      "lower_" + tag + "(%s)",
			Lift:       "lift_" + tag + "(%s)",
		}
	},
	optional: func(elem Entry, tag string) Entry {
		return Entry{
			NativeType: elem.NativeType + " | undefined",
			Lower:      "lower_" + tag + "(%s)",
			Lift:       "lift_" + tag + "(%s)",
		}
	},
	named: func(kind model.Kind, name string) Entry {
		switch kind {
		case model.KindObject:
			return Entry{NativeType: name, Lower: "%s.__handle", Lift: name + ".__fromHandle(%s)"}
		case model.KindCallback:
			return Entry{NativeType: name, Lower: "registerCallback" + name + "(%s)", Lift: "callbackRegistry" + name + ".get(%s)"}
		default:
			return Entry{NativeType: name, Lower: "lower" + name + "(%s)", Lift: "lift" + name + "(%s)"}
		}
	},
}
