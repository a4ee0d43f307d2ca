package migrate

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/i18n"
	"github.com/hazyhaar/folio/pkg/store"
)

// Direction is the way a run converts fields.
type Direction int

const (
	// Forward turns plain strings into {en, fr} values.
	Forward Direction = iota
	// Backward turns {en, fr} values back into their English string.
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "rollback"
	}
	return "migration"
}

// selection matches the documents a run has work to do on: any planned
// field still holding the source shape. Arrays are probed on their first
// element.
func selection(c *fieldplan.Collection, dir Direction) store.Filter {
	preds := make([]store.Predicate, len(c.Fields))
	for i, f := range c.Fields {
		if dir == Backward {
			preds[i] = store.ObjectAt(f.ProbePath())
		} else {
			preds[i] = store.StringAt(f.ProbePath())
		}
	}
	return store.AnyOf(preds...)
}

// updateSet computes the dotted-path update for one document. Only fields
// in the source shape are part of it; everything else is left alone.
func updateSet(c *fieldplan.Collection, dir Direction, doc map[string]any) map[string]any {
	set := make(map[string]any)
	for _, f := range c.Fields {
		switch f.Kind {
		case fieldplan.Scalar, fieldplan.Nested:
			v, ok := lookup(doc, f.Path)
			if !ok {
				continue
			}
			if out, ok := convert(v, dir); ok {
				set[f.Path] = out
			}

		case fieldplan.Array:
			elems, ok := arrayAt(doc, f.Parent)
			if !ok {
				continue
			}
			out := make([]any, len(elems))
			changed := false
			for i, e := range elems {
				if conv, ok := convert(e, dir); ok {
					out[i], changed = conv, true
				} else {
					out[i] = e
				}
			}
			if changed {
				set[f.Parent] = out
			}

		case fieldplan.ObjectArray:
			elems, ok := arrayAt(doc, f.Parent)
			if !ok {
				continue
			}
			for i, e := range elems {
				obj, ok := e.(map[string]any)
				if !ok {
					continue
				}
				v, ok := obj[f.Sub]
				if !ok {
					continue
				}
				if out, ok := convert(v, dir); ok {
					set[f.Parent+"."+strconv.Itoa(i)+"."+f.Sub] = out
				}
			}
		}
	}
	return set
}

// convert returns the converted value when v is in the source shape of dir.
func convert(v any, dir Direction) (any, bool) {
	f := i18n.Classify(v)
	switch {
	case dir == Forward && f.Kind == i18n.KindUnmigrated:
		return i18n.Normalize(v), true
	case dir == Backward && f.Kind == i18n.KindMigrated:
		return f.Value.EN, true
	default:
		return nil, false
	}
}

// lookup walks a dotted path through nested objects.
func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func arrayAt(doc map[string]any, path string) ([]any, bool) {
	v, ok := lookup(doc, path)
	if !ok {
		return nil, false
	}
	elems, ok := v.([]any)
	return elems, ok
}
