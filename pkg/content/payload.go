// CLAUDE:SUMMARY Request-time payload handling: bilingual fields of incoming documents are normalized to {en, fr} before validation and storage.

// Package content is the CRUD service for portfolio documents. Every write
// goes through the same normalizer the bulk migration uses, so documents
// stored through the API are already in their final bilingual shape.
package content

import (
	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/i18n"
)

// NormalizePayload rewrites, in place, every planned bilingual field present
// in payload. Scalars become {en, fr} values, arrays become arrays of
// values, and array-of-object sub-fields are normalized element by element.
// An explicit null clears the field: {"", ""} for scalars, [] for arrays.
// Absent fields stay absent.
func NormalizePayload(c *fieldplan.Collection, payload map[string]any) {
	for _, f := range c.Fields {
		switch f.Kind {
		case fieldplan.Scalar:
			normalizeKey(payload, f.Path)

		case fieldplan.Nested:
			if parent, ok := payload[f.Parent].(map[string]any); ok {
				normalizeKey(parent, f.Sub)
			}

		case fieldplan.Array:
			if v, ok := payload[f.Parent]; ok {
				payload[f.Parent] = i18n.NormalizeArray(v)
			}

		case fieldplan.ObjectArray:
			elems, ok := payload[f.Parent].([]any)
			if !ok {
				continue
			}
			for _, e := range elems {
				if obj, ok := e.(map[string]any); ok {
					normalizeKey(obj, f.Sub)
				}
			}
		}
	}
}

func normalizeKey(obj map[string]any, key string) {
	v, present := obj[key]
	if !present {
		return
	}
	obj[key] = i18n.Normalize(v)
}
