package store

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// JSONType is a value of SQLite's json_type().
type JSONType string

const (
	TypeString JSONType = "text"
	TypeObject JSONType = "object"
	TypeArray  JSONType = "array"
)

// Predicate matches documents whose value at Path has the given JSON type.
// Missing paths never match.
type Predicate struct {
	Path string
	Type JSONType
}

// StringAt matches a string stored at the dotted path.
func StringAt(path string) Predicate { return Predicate{Path: path, Type: TypeString} }

// ObjectAt matches an object stored at the dotted path.
func ObjectAt(path string) Predicate { return Predicate{Path: path, Type: TypeObject} }

// Filter is a disjunction of predicates. The zero Filter matches every
// document of the collection.
type Filter struct {
	Any []Predicate
}

// AnyOf builds a Filter matching documents that satisfy at least one predicate.
func AnyOf(preds ...Predicate) Filter {
	return Filter{Any: preds}
}

func (f Filter) where() (sq.Sqlizer, error) {
	if len(f.Any) == 0 {
		return nil, nil
	}
	or := make(sq.Or, 0, len(f.Any))
	for _, p := range f.Any {
		jp, err := jsonPath(p.Path)
		if err != nil {
			return nil, err
		}
		or = append(or, sq.Expr("json_type(doc, ?) = ?", jp, string(p.Type)))
	}
	return or, nil
}

// jsonPath converts a dotted path ("results.0.metric") to an SQLite JSON
// path ("$.results[0].metric"). Numeric segments are array indexes.
func jsonPath(dotted string) (string, error) {
	if dotted == "" {
		return "", errors.New("empty path")
	}
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range strings.Split(dotted, ".") {
		switch {
		case seg == "":
			return "", fmt.Errorf("path %q: empty segment", dotted)
		case strings.ContainsAny(seg, `"[]`):
			return "", fmt.Errorf("path %q: invalid segment %q", dotted, seg)
		case isIndex(seg):
			b.WriteString("[" + seg + "]")
		case isIdent(seg):
			b.WriteString("." + seg)
		default:
			b.WriteString(`."` + seg + `"`)
		}
	}
	return b.String(), nil
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
