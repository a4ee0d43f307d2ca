package importer

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func init() {
	Register(yamlFormat{})
}

type yamlFormat struct{}

func (yamlFormat) ID() string           { return "yaml" }
func (yamlFormat) Extensions() []string { return []string{".yaml", ".yml"} }

func (yamlFormat) Decode(r io.Reader) (*Fixture, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml fixture: %w", err)
	}
	for name, docs := range f.Collections {
		for i, doc := range docs {
			f.Collections[name][i], _ = jsonCompatible(doc).(map[string]any)
		}
	}
	return &f, nil
}

// jsonCompatible turns yaml.v3 output into values encoding/json and the
// normalizer understand: maps keyed by any become map[string]any.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = jsonCompatible(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonCompatible(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = jsonCompatible(e)
		}
		return t
	default:
		return v
	}
}
