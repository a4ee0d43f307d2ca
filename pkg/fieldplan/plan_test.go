package fieldplan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlan(t *testing.T) {
	p := Default()

	want := []string{"projects", "technologies", "contacts", "users", "experiences", "studies"}
	assert.Equal(t, want, p.Names())

	projects, err := p.Collection("projects")
	require.NoError(t, err)
	assert.Len(t, projects.Fields, 9)
	assert.Equal(t, "Projects", projects.Title())

	users, err := p.Collection("users")
	require.NoError(t, err)
	var arrays int
	for _, f := range users.Fields {
		if f.Kind == Array {
			arrays++
		}
	}
	assert.Equal(t, 5, arrays)
	assert.Len(t, users.Fields, 19)
}

func TestCollection_Unknown(t *testing.T) {
	_, err := Default().Collection("invoices")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCollection))
}

func TestParseField(t *testing.T) {
	tests := []struct {
		path   string
		want   Field
		probe  string
		hasErr bool
	}{
		{path: "title", want: Field{Path: "title", Kind: Scalar}, probe: "title"},
		{path: "team.role", want: Field{Path: "team.role", Kind: Nested, Parent: "team", Sub: "role"}, probe: "team.role"},
		{path: "skills[]", want: Field{Path: "skills[]", Kind: Array, Parent: "skills"}, probe: "skills.0"},
		{path: "results[].metric", want: Field{Path: "results[].metric", Kind: ObjectArray, Parent: "results", Sub: "metric"}, probe: "results.0.metric"},
		{path: "a.b.c", hasErr: true},
		{path: "a[][]", hasErr: true},
		{path: "a[].b.c", hasErr: true},
		{path: "team.", hasErr: true},
		{path: "[]", hasErr: true},
		{path: "", hasErr: true},
		{path: "a[0]", hasErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParseField(tt.path)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.probe, got.ProbePath())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":                "collections: []",
		"missing name":         "collections:\n  - fields: [title]",
		"duplicate collection": "collections:\n  - name: a\n    fields: [x]\n  - name: a\n    fields: [y]",
		"duplicate field":      "collections:\n  - name: a\n    fields: [x, x]",
		"bad field":            "collections:\n  - name: a\n    fields: [x.y.z]",
		"bad yaml":             "collections: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	p, err := LoadFile("")
	require.NoError(t, err)
	assert.Same(t, Default(), p)

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collections:\n  - name: notes\n    fields: [body, tags[]]\n"), 0o644))

	p, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, p.Names())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
