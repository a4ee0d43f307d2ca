package importer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/folio/pkg/i18n"
	"github.com/hazyhaar/folio/pkg/store"
)

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "folio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForPath(t *testing.T) {
	tests := map[string]string{
		"seed.json":                    "json",
		"seed.YAML":                    "yaml",
		"dir/seed.yml":                 "yaml",
		"https://x.test/seed.json?v=2": "json",
	}
	for name, want := range tests {
		f, err := ForPath(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, f.ID(), name)
	}

	_, err := ForPath("seed.csv")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	ids := []string{}
	for _, f := range All() {
		ids = append(ids, f.ID())
	}
	assert.Equal(t, []string{"json", "yaml"}, ids)

	_, err := Get("toml")
	assert.Error(t, err)
}

func TestLoad_Files(t *testing.T) {
	f, err := Load(context.Background(), "testdata/portfolio.yaml")
	require.NoError(t, err)
	require.Len(t, f.Collections["projects"], 1)
	team, ok := f.Collections["projects"][0]["team"].(map[string]any)
	require.True(t, ok, "nested YAML maps decode as map[string]any")
	assert.Equal(t, "Lead developer", team["role"])

	f, err = Load(context.Background(), "testdata/portfolio.json")
	require.NoError(t, err)
	assert.Equal(t, "Ada", f.Collections["contacts"][0]["name"])

	_, err = Load(context.Background(), "testdata/missing.json")
	assert.Error(t, err)
}

func TestLoad_DownloadRetry(t *testing.T) {
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = time.Second })

	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"collections":{"projects":[{"title":"Remote"}]}}`)
	}))
	defer ts.Close()

	f, err := Load(context.Background(), ts.URL+"/seed.json")
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, "Remote", f.Collections["projects"][0]["title"])
}

func TestLoad_DownloadClientErrorNotRetried(t *testing.T) {
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = time.Second })

	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := Load(context.Background(), ts.URL+"/seed.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestImport_LegacyAndLanguage(t *testing.T) {
	st := tempStore(t)
	im := New(st, nil, quietLogger())

	f, err := Load(context.Background(), "testdata/portfolio.yaml")
	require.NoError(t, err)

	report, err := im.Import(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 3, report.Total())
	assert.Equal(t, []string{"projects", "technologies", "studies"}, collectionsOf(report))

	site, err := st.Get(context.Background(), "projects", "site")
	require.NoError(t, err)
	assert.Equal(t, "Portfolio website", site.Fields["title"], "strings stay legacy without lang")

	goDoc, err := st.Get(context.Background(), "technologies", "go")
	require.NoError(t, err)
	want := map[string]any{
		"name":        map[string]any{"en": "", "fr": "Go"},
		"description": map[string]any{"en": "", "fr": "Langage compilé"},
	}
	if diff := cmp.Diff(want, goDoc.Fields); diff != "" {
		t.Errorf("technology mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_ConstructShapes(t *testing.T) {
	st := tempStore(t)
	im := New(st, nil, quietLogger())

	fixture := &Fixture{Collections: map[string][]map[string]any{
		"projects": {{
			"id":      "p1",
			"lang":    "en-GB",
			"title":   "Shop",
			"team":    map[string]any{"role": "Backend", "size": 3.0},
			"results": []any{map[string]any{"metric": "Sales", "value": 2.0}},
		}},
		"users": {{
			"id":     "u1",
			"lang":   "fr",
			"skills": []any{"Go", map[string]any{"en": "SQL", "fr": "SQL"}},
		}},
	}}
	_, err := im.Import(context.Background(), fixture)
	require.NoError(t, err)

	p, err := st.Get(context.Background(), "projects", "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"en": "Shop", "fr": ""}, p.Fields["title"])
	assert.Equal(t, map[string]any{"role": map[string]any{"en": "Backend", "fr": ""}, "size": 3.0}, p.Fields["team"])
	assert.Equal(t, []any{map[string]any{"metric": map[string]any{"en": "Sales", "fr": ""}, "value": 2.0}}, p.Fields["results"])
	assert.NotContains(t, p.Fields, "lang")

	u, err := st.Get(context.Background(), "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"en": "", "fr": "Go"},
		map[string]any{"en": "SQL", "fr": "SQL"},
	}, u.Fields["skills"])

	// The fixture itself is left untouched.
	assert.Equal(t, "Shop", fixture.Collections["projects"][0]["title"])
}

func TestImport_MergeOnConflict(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	im := New(st, nil, quietLogger())

	_, err := st.Insert(ctx, "projects", map[string]any{
		"id":          "p1",
		"title":       map[string]any{"en": "Shop", "fr": ""},
		"description": "Legacy text",
		"team":        map[string]any{"role": map[string]any{"en": "Lead", "fr": ""}},
		"status":      "live",
	})
	require.NoError(t, err)

	report, err := im.Import(ctx, &Fixture{Collections: map[string][]map[string]any{
		"projects": {{
			"id":          "p1",
			"lang":        "fr",
			"title":       "Boutique",
			"description": "Texte",
			"team":        map[string]any{"role": "Responsable", "size": 4.0},
			"status":      "archived",
			"year":        2024.0,
		}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []CollectionReport{{Collection: "projects", Merged: 1}}, report.Collections)

	p, err := st.Get(ctx, "projects", "p1")
	require.NoError(t, err)
	want := map[string]any{
		"title":       map[string]any{"en": "Shop", "fr": "Boutique"},
		"description": map[string]any{"en": "Legacy text", "fr": "Texte"},
		"team": map[string]any{
			"role": map[string]any{"en": "Lead", "fr": "Responsable"},
			"size": 4.0,
		},
		"status": "live",
		"year":   2024.0,
	}
	if diff := cmp.Diff(want, p.Fields); diff != "" {
		t.Errorf("merged document mismatch (-want +got):\n%s", diff)
	}

	// Importing the same content again changes nothing.
	report, err = im.Import(ctx, &Fixture{Collections: map[string][]map[string]any{
		"projects": {{"id": "p1", "title": "Shop"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []CollectionReport{{Collection: "projects", Unchanged: 1}}, report.Collections)
}

func TestImport_NumericID(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	im := New(st, nil, quietLogger())

	fixture := func(lang, name string) *Fixture {
		return &Fixture{Collections: map[string][]map[string]any{
			"technologies": {{"id": 7, "lang": lang, "name": name}},
		}}
	}
	_, err := im.Import(ctx, fixture("fr", "Langage Go"))
	require.NoError(t, err)
	report, err := im.Import(ctx, fixture("en", "Go language"))
	require.NoError(t, err)
	assert.Equal(t, []CollectionReport{{Collection: "technologies", Merged: 1}}, report.Collections)

	doc, err := st.Get(ctx, "technologies", "7")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"en": "Go language", "fr": "Langage Go"}, doc.Fields["name"])
}

func TestImport_Errors(t *testing.T) {
	st := tempStore(t)
	im := New(st, nil, quietLogger())

	_, err := im.Import(context.Background(), &Fixture{Collections: map[string][]map[string]any{
		"invoices": {{"title": "x"}},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoices")

	report, err := im.Import(context.Background(), &Fixture{Collections: map[string][]map[string]any{
		"projects": {
			{"title": "ok"},
			{"title": "bad", "lang": "klingon"},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total())
	require.Len(t, report.Errors, 1)
	assert.True(t, strings.HasPrefix(report.Errors[0], "Projects document 1: unknown language"), report.Errors[0])
}

func TestMergeValue(t *testing.T) {
	tests := []struct {
		name string
		cur  any
		inc  any
		want any
	}{
		{"fills french", "Hello", i18n.Value{FR: "Bonjour"}, i18n.Value{EN: "Hello", FR: "Bonjour"}},
		{"keeps english", map[string]any{"en": "Hello", "fr": ""}, "Hi", nil},
		{"fills blank", nil, "Hi", i18n.Value{EN: "Hi"}},
		{"skips non text", 42.0, "Hi", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mergeValue(tt.cur, tt.inc)
			if tt.want == nil {
				assert.False(t, ok, "got %+v", got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func collectionsOf(r *Report) []string {
	names := make([]string, len(r.Collections))
	for i, c := range r.Collections {
		names[i] = c.Collection
	}
	return names
}
