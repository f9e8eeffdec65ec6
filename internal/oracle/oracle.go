// Package oracle holds the per-target-language type mapping tables. An
// Oracle is data, not logic: for every semantic type kind it answers what
// native type represents it and which conversion calls lower it to and lift
// it from the wire representation. The interface model and the FFI deriver
// stay wholly language-agnostic; this package is the only place a target
// language's spelling appears.
package oracle

import (
	"fmt"

	"github.com/crossbind/crossbind/internal/model"
)

// Entry is one row of the mapping: the native type name plus lowering and
// lifting call expressions. Lower and Lift are format strings with a single
// %s placeholder for the value expression.
type Entry struct {
	NativeType string
	Lower      string
	Lift       string
}

// Oracle is the complete mapping table for one target language.
type Oracle struct {
	Language string

	// scalars covers every non-compound kind with a fixed spelling.
	scalars map[model.Kind]Entry

	// sequence, mapType, optional and named compose entries for compound
	// and declaration-referencing types from their parameters.
	sequence func(elem Entry, tag string) Entry
	mapType  func(key, value Entry, tag string) Entry
	optional func(elem Entry, tag string) Entry
	named    func(kind model.Kind, name string) Entry
}

// ForLanguage returns the oracle for a supported target language.
func ForLanguage(lang string) (*Oracle, error) {
	switch lang {
	case "python", "py":
		return pythonOracle, nil
	case "typescript", "ts":
		return typescriptOracle, nil
	default:
		return nil, fmt.Errorf("no type oracle for language: %s", lang)
	}
}

// Languages lists the languages an oracle exists for.
func Languages() []string {
	return []string{"python", "typescript"}
}

// Entry resolves the mapping row for any semantic type.
func (o *Oracle) Entry(t model.Type) (Entry, error) {
	switch t.Kind {
	case model.KindOptional:
		elem, err := o.Entry(*t.Elem)
		if err != nil {
			return Entry{}, err
		}
		return o.optional(elem, Tag(t)), nil
	case model.KindSequence:
		elem, err := o.Entry(*t.Elem)
		if err != nil {
			return Entry{}, err
		}
		return o.sequence(elem, Tag(t)), nil
	case model.KindMap:
		key, err := o.Entry(*t.Key)
		if err != nil {
			return Entry{}, err
		}
		value, err := o.Entry(*t.Value)
		if err != nil {
			return Entry{}, err
		}
		return o.mapType(key, value, Tag(t)), nil
	case model.KindEnum, model.KindRecord, model.KindObject, model.KindCallback, model.KindError:
		return o.named(t.Kind, t.Name), nil
	default:
		entry, ok := o.scalars[t.Kind]
		if !ok {
			return Entry{}, fmt.Errorf("oracle(%s): no mapping for type %s", o.Language, t)
		}
		return entry, nil
	}
}

// LowerExpr renders the lowering call for a value expression.
func (o *Oracle) LowerExpr(t model.Type, expr string) (string, error) {
	e, err := o.Entry(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(e.Lower, expr), nil
}

// LiftExpr renders the lifting call for a wire expression.
func (o *Oracle) LiftExpr(t model.Type, expr string) (string, error) {
	e, err := o.Entry(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(e.Lift, expr), nil
}

// Tag produces a stable, language-neutral identifier fragment for a type,
// used to name per-type conversion helpers in generated code.
func Tag(t model.Type) string {
	switch t.Kind {
	case model.KindOptional:
		return "opt_" + Tag(*t.Elem)
	case model.KindSequence:
		return "seq_" + Tag(*t.Elem)
	case model.KindMap:
		return "map_" + Tag(*t.Key) + "_" + Tag(*t.Value)
	case model.KindEnum, model.KindRecord, model.KindObject, model.KindCallback, model.KindError:
		return t.Name
	default:
		return t.Kind.String()
	}
}
