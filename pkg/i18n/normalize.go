// CLAUDE:SUMMARY Bilingual normalization: coerce legacy strings, partial objects and scalars into {en, fr}; construct and merge values.
package i18n

// Normalize coerces any input into a well-formed Value:
//
//	nil                  -> {"", ""}
//	"text"               -> {"text", ""}
//	{en?, fr?, value?}   -> {en ?? value ?? "", fr ?? ""}
//	42, true, ...        -> {"42", ""}
//
// Request-time payload normalization and the bulk migration both go through
// this function, so they always agree on the canonical shape.
func Normalize(v any) Value {
	f := Classify(v)
	switch f.Kind {
	case KindUnmigrated:
		return Value{EN: f.Text}
	case KindMigrated:
		return f.Value
	case KindOther:
		return Value{EN: stringify(f.Raw)}
	default:
		return Value{}
	}
}

// NormalizeOptional is Normalize for the transform path: nil stays absent.
func NormalizeOptional(v any) (Value, bool) {
	if Classify(v).Kind == KindEmpty {
		return Value{}, false
	}
	return Normalize(v), true
}

// NormalizeArray normalizes each element. Anything that is not an array
// yields an empty, non-nil slice.
func NormalizeArray(v any) []Value {
	elems := elements(v)
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[i] = Normalize(e)
	}
	return out
}

// Construct builds a fresh value with text in lang and "" in the other slot.
func Construct(text string, lang Language) Value {
	return Value{}.With(lang, text)
}

// Merge reconciles two sources of the same field. Per language the first
// non-blank text wins, scanning a before b; a bare string only counts as
// English. Existing non-blank content is never overwritten.
func Merge(a, b any) Value {
	var out Value
	for _, src := range []any{a, b} {
		var en, fr string
		switch f := Classify(src); f.Kind {
		case KindUnmigrated:
			en = f.Text
		case KindMigrated:
			en, fr = f.Value.EN, f.Value.FR
		}
		if blank(out.EN) && !blank(en) {
			out.EN = en
		}
		if blank(out.FR) && !blank(fr) {
			out.FR = fr
		}
	}
	return out
}

func elements(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []Value:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	default:
		return []any{}
	}
}
