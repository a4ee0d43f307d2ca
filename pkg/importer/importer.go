package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/i18n"
	"github.com/hazyhaar/folio/pkg/store"
)

// langKey names the language a fixture document's plain strings are in.
// It is consumed by the importer and never stored.
const langKey = "lang"

// Store is the document storage used by the importer.
type Store interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (store.Document, error)
	Get(ctx context.Context, collection, id string) (store.Document, error)
	UpdateOne(ctx context.Context, collection, id string, set map[string]any) error
}

// CollectionReport counts what happened to one collection's documents.
type CollectionReport struct {
	Collection string `json:"collection"`
	Inserted   int    `json:"inserted"`
	Merged     int    `json:"merged"`
	Unchanged  int    `json:"unchanged"`
}

// Report is the outcome of one import. Document failures are listed in
// Errors and do not stop the import.
type Report struct {
	Collections []CollectionReport `json:"collections"`
	Errors      []string           `json:"errors"`
}

// Total is the number of documents written.
func (r *Report) Total() int {
	n := 0
	for _, c := range r.Collections {
		n += c.Inserted + c.Merged
	}
	return n
}

// Importer writes fixture documents into the store.
type Importer struct {
	store  Store
	plan   *fieldplan.Plan
	logger *slog.Logger
}

// New creates an importer. A nil plan means fieldplan.Default().
func New(st Store, plan *fieldplan.Plan, logger *slog.Logger) *Importer {
	if plan == nil {
		plan = fieldplan.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: st, plan: plan, logger: logger}
}

// Import loads every document of f, collection by collection in plan order.
// A document whose id already exists is merged into the stored one:
// bilingual fields keep their non-blank text and only gain missing
// languages, and keys the stored document lacks are added.
func (im *Importer) Import(ctx context.Context, f *Fixture) (*Report, error) {
	names := make([]string, 0, len(f.Collections))
	for name := range f.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := im.plan.Collection(name); err != nil {
			return nil, err
		}
	}

	report := &Report{Errors: []string{}}
	for _, c := range im.plan.Collections {
		docs, ok := f.Collections[c.Name]
		if !ok {
			continue
		}
		cr := CollectionReport{Collection: c.Name}
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			outcome, err := im.importDoc(ctx, c, doc)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s document %d: %v", c.Title(), i, err))
				im.logger.Warn("import document failed", "collection", c.Name, "index", i, "error", err)
				continue
			}
			switch outcome {
			case inserted:
				cr.Inserted++
			case merged:
				cr.Merged++
			default:
				cr.Unchanged++
			}
		}
		report.Collections = append(report.Collections, cr)
		im.logger.Info("import done", "collection", c.Name,
			"inserted", cr.Inserted, "merged", cr.Merged, "unchanged", cr.Unchanged)
	}
	return report, nil
}

type outcome int

const (
	unchanged outcome = iota
	inserted
	merged
)

func (im *Importer) importDoc(ctx context.Context, c *fieldplan.Collection, doc map[string]any) (outcome, error) {
	fields := deepCopy(doc).(map[string]any)
	if fields == nil {
		return unchanged, errors.New("empty document")
	}

	if raw, ok := fields[langKey]; ok {
		delete(fields, langKey)
		s, _ := raw.(string)
		lang, ok := i18n.ParseLanguage(s)
		if !ok {
			return unchanged, fmt.Errorf("unknown language %q", s)
		}
		construct(c, fields, lang)
	}

	if _, err := im.store.Insert(ctx, c.Name, fields); err == nil {
		return inserted, nil
	} else if !errors.Is(err, store.ErrConflict) {
		return unchanged, err
	}

	id, _ := store.DocumentID(fields)
	existing, err := im.store.Get(ctx, c.Name, id)
	if err != nil {
		return unchanged, err
	}
	set := mergeSet(c, existing.Fields, fields)
	if len(set) == 0 {
		return unchanged, nil
	}
	if err := im.store.UpdateOne(ctx, c.Name, id, set); err != nil {
		return unchanged, err
	}
	return merged, nil
}

// construct turns every plain string of a planned field into a bilingual
// value holding the text in lang.
func construct(c *fieldplan.Collection, fields map[string]any, lang i18n.Language) {
	wrap := func(obj map[string]any, key string) {
		if s, ok := obj[key].(string); ok {
			obj[key] = i18n.Construct(s, lang)
		}
	}
	for _, f := range c.Fields {
		switch f.Kind {
		case fieldplan.Scalar:
			wrap(fields, f.Path)
		case fieldplan.Nested:
			if parent, ok := fields[f.Parent].(map[string]any); ok {
				wrap(parent, f.Sub)
			}
		case fieldplan.Array:
			elems, _ := fields[f.Parent].([]any)
			for i, e := range elems {
				if s, ok := e.(string); ok {
					elems[i] = i18n.Construct(s, lang)
				}
			}
		case fieldplan.ObjectArray:
			elems, _ := fields[f.Parent].([]any)
			for _, e := range elems {
				if obj, ok := e.(map[string]any); ok {
					wrap(obj, f.Sub)
				}
			}
		}
	}
}

// mergeSet computes the dotted-path update that folds incoming into
// existing. Stored values win everywhere except on planned scalar and
// nested fields, where i18n.Merge fills blank languages.
func mergeSet(c *fieldplan.Collection, existing, incoming map[string]any) map[string]any {
	scalars := make(map[string]bool)
	nested := make(map[string]map[string]bool)
	for _, f := range c.Fields {
		switch f.Kind {
		case fieldplan.Scalar:
			scalars[f.Path] = true
		case fieldplan.Nested:
			if nested[f.Parent] == nil {
				nested[f.Parent] = make(map[string]bool)
			}
			nested[f.Parent][f.Sub] = true
		}
	}

	set := make(map[string]any)
	for key, inc := range incoming {
		if key == "id" || !plainKey(key) {
			continue
		}
		cur, has := existing[key]
		switch {
		case !has:
			set[key] = inc
		case scalars[key]:
			if v, ok := mergeValue(cur, inc); ok {
				set[key] = v
			}
		case nested[key] != nil:
			curObj, ok1 := cur.(map[string]any)
			incObj, ok2 := inc.(map[string]any)
			if !ok1 || !ok2 {
				continue
			}
			for sub, incSub := range incObj {
				if !plainKey(sub) {
					continue
				}
				curSub, has := curObj[sub]
				switch {
				case !has:
					set[key+"."+sub] = incSub
				case nested[key][sub]:
					if v, ok := mergeValue(curSub, incSub); ok {
						set[key+"."+sub] = v
					}
				}
			}
		}
	}
	return set
}

// mergeValue returns the merged value when it adds text to cur.
func mergeValue(cur, inc any) (i18n.Value, bool) {
	switch i18n.Classify(cur).Kind {
	case i18n.KindEmpty, i18n.KindUnmigrated, i18n.KindMigrated:
	default:
		return i18n.Value{}, false
	}
	m := i18n.Merge(cur, inc)
	if m == i18n.Merge(cur, nil) {
		return i18n.Value{}, false
	}
	return m, true
}

func plainKey(k string) bool {
	return k != "" && !strings.ContainsAny(k, `."[]`)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
