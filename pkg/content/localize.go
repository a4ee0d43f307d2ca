package content

import (
	"time"

	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/i18n"
	"github.com/hazyhaar/folio/pkg/store"
)

// Localize flattens a document for display in lang: every planned field is
// replaced by its text (with cross-language fallback), arrays by arrays of
// text. Other fields are copied unchanged. Works on migrated and legacy
// documents alike.
func (s *Service) Localize(doc store.Document, collection string, lang i18n.Language) (map[string]any, error) {
	c, err := s.plan.Collection(collection)
	if err != nil {
		return nil, err
	}
	out := Localize(c, doc.Fields, lang)
	out["id"] = doc.ID
	out["createdAt"] = doc.CreatedAt.UTC().Format(time.RFC3339Nano)
	out["updatedAt"] = doc.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return out, nil
}

// Localize returns a localized copy of fields; the input is not modified.
func Localize(c *fieldplan.Collection, fields map[string]any, lang i18n.Language) map[string]any {
	out, _ := clone(fields).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	for _, f := range c.Fields {
		switch f.Kind {
		case fieldplan.Scalar:
			if v, ok := out[f.Path]; ok {
				out[f.Path] = i18n.GetText(v, lang, "")
			}

		case fieldplan.Nested:
			if parent, ok := out[f.Parent].(map[string]any); ok {
				if v, ok := parent[f.Sub]; ok {
					parent[f.Sub] = i18n.GetText(v, lang, "")
				}
			}

		case fieldplan.Array:
			if v, ok := out[f.Parent]; ok {
				out[f.Parent] = i18n.GetArray(v, lang)
			}

		case fieldplan.ObjectArray:
			elems, _ := out[f.Parent].([]any)
			for _, e := range elems {
				if obj, ok := e.(map[string]any); ok {
					if v, ok := obj[f.Sub]; ok {
						obj[f.Sub] = i18n.GetText(v, lang, "")
					}
				}
			}
		}
	}
	return out
}

// clone deep-copies decoded JSON.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}
