package i18n

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is the canonical bilingual unit. Both slots are always strings.
type Value struct {
	EN string `json:"en" yaml:"en"`
	FR string `json:"fr" yaml:"fr"`
}

// Get returns the text stored for lang ("" for an unsupported language).
func (v Value) Get(lang Language) string {
	switch lang {
	case English:
		return v.EN
	case French:
		return v.FR
	default:
		return ""
	}
}

// With returns a copy of v with lang set to text. Unsupported languages
// write to the English slot.
func (v Value) With(lang Language, text string) Value {
	if lang == French {
		v.FR = text
	} else {
		v.EN = text
	}
	return v
}

// Kind tags the shape a stored field currently has.
type Kind int

const (
	// KindEmpty is nil or missing.
	KindEmpty Kind = iota
	// KindUnmigrated is a legacy plain string.
	KindUnmigrated
	// KindMigrated is a bilingual object, possibly partial.
	KindMigrated
	// KindOther is any other scalar or structure.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindUnmigrated:
		return "unmigrated"
	case KindMigrated:
		return "migrated"
	default:
		return "other"
	}
}

// Field is the classified form of a raw field value.
type Field struct {
	Kind  Kind
	Text  string // KindUnmigrated
	Value Value  // KindMigrated
	Raw   any    // KindOther
}

// Classify inspects v once and returns its tagged form. Objects are read
// leniently: non-string en/fr are stringified, and a stray "value" key
// fills en when en is empty.
func Classify(v any) Field {
	switch t := v.(type) {
	case nil:
		return Field{Kind: KindEmpty}
	case string:
		return Field{Kind: KindUnmigrated, Text: t}
	case Value:
		return Field{Kind: KindMigrated, Value: t}
	case *Value:
		if t == nil {
			return Field{Kind: KindEmpty}
		}
		return Field{Kind: KindMigrated, Value: *t}
	case map[string]any:
		return Field{Kind: KindMigrated, Value: fromObject(t)}
	case map[string]string:
		obj := make(map[string]any, len(t))
		for k, s := range t {
			obj[k] = s
		}
		return Field{Kind: KindMigrated, Value: fromObject(obj)}
	default:
		return Field{Kind: KindOther, Raw: v}
	}
}

func fromObject(obj map[string]any) Value {
	v := Value{
		EN: stringify(obj["en"]),
		FR: stringify(obj["fr"]),
	}
	if v.EN == "" {
		if s, ok := obj["value"].(string); ok {
			v.EN = s
		}
	}
	return v
}

// stringify renders a scalar the way it reads in JSON; nil becomes "".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
