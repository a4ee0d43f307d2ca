// CLAUDE:SUMMARY Declarative table of bilingual fields per collection, loaded from YAML; shared by migration, rollback, status and payload normalization.
package fieldplan

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCollection is returned for a collection absent from the plan.
var ErrUnknownCollection = errors.New("unknown collection")

// Kind says how a bilingual field is laid out in a document.
type Kind string

const (
	// Scalar is a top-level field: "title".
	Scalar Kind = "scalar"
	// Nested is a field one object deep: "team.role".
	Nested Kind = "nested"
	// Array is an array of localized strings: "skills[]".
	Array Kind = "array"
	// ObjectArray is a localized sub-field of each array element: "results[].metric".
	ObjectArray Kind = "object_array"
)

// Field is one row of the plan.
type Field struct {
	Path   string `json:"path"`
	Kind   Kind   `json:"kind"`
	Parent string `json:"-"` // array key for Array and ObjectArray, parent object for Nested
	Sub    string `json:"-"` // element key for ObjectArray, child key for Nested
}

// ProbePath is the dotted path whose stored type decides whether a document
// still needs migrating. Arrays are probed on their first element.
func (f Field) ProbePath() string {
	switch f.Kind {
	case Array:
		return f.Parent + ".0"
	case ObjectArray:
		return f.Parent + ".0." + f.Sub
	default:
		return f.Path
	}
}

// Collection groups the bilingual fields of one collection.
type Collection struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []Field  `yaml:"-" json:"fields"`
	Paths  []string `yaml:"fields" json:"-"`
}

// Title is the display name used in reports ("projects" -> "Projects").
func (c *Collection) Title() string {
	return cases.Title(language.English).String(c.Name)
}

// Plan is the ordered set of collections handled by folio.
type Plan struct {
	Collections []*Collection `yaml:"collections"`
	byName      map[string]*Collection
}

// Collection looks a collection up by name.
func (p *Plan) Collection(name string) (*Collection, error) {
	c, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Names returns the collection names in plan order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Collections))
	for i, c := range p.Collections {
		names[i] = c.Name
	}
	return names
}

// Parse decodes and validates a YAML plan.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse field plan: %w", err)
	}
	if len(p.Collections) == 0 {
		return nil, errors.New("field plan: no collections")
	}

	p.byName = make(map[string]*Collection, len(p.Collections))
	for _, c := range p.Collections {
		if c.Name == "" {
			return nil, errors.New("field plan: collection without name")
		}
		if _, dup := p.byName[c.Name]; dup {
			return nil, fmt.Errorf("field plan: duplicate collection %q", c.Name)
		}
		seen := make(map[string]bool, len(c.Paths))
		c.Fields = make([]Field, 0, len(c.Paths))
		for _, path := range c.Paths {
			f, err := ParseField(path)
			if err != nil {
				return nil, fmt.Errorf("field plan %s: %w", c.Name, err)
			}
			if seen[f.Path] {
				return nil, fmt.Errorf("field plan %s: duplicate field %q", c.Name, f.Path)
			}
			seen[f.Path] = true
			c.Fields = append(c.Fields, f)
		}
		p.byName[c.Name] = c
	}
	return &p, nil
}

// LoadFile reads a plan from disk. An empty path returns Default().
func LoadFile(path string) (*Plan, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field plan %s: %w", path, err)
	}
	return Parse(data)
}

// ParseField derives a Field from its path syntax. Only one level of object
// or array nesting is supported.
func ParseField(path string) (Field, error) {
	path = strings.TrimSpace(path)
	f := Field{Path: path}

	head, tail, nested := strings.Cut(path, ".")
	switch {
	case strings.HasSuffix(head, "[]") && nested:
		f.Kind, f.Parent, f.Sub = ObjectArray, strings.TrimSuffix(head, "[]"), tail
	case strings.HasSuffix(head, "[]"):
		f.Kind, f.Parent = Array, strings.TrimSuffix(head, "[]")
	case nested:
		f.Kind, f.Parent, f.Sub = Nested, head, tail
	default:
		f.Kind = Scalar
	}

	for _, part := range []string{f.Parent, f.Sub} {
		if strings.ContainsAny(part, ".[]") {
			return Field{}, fmt.Errorf("field %q: nesting deeper than one level", path)
		}
	}
	if f.Kind == Scalar && (path == "" || strings.ContainsAny(path, "[]")) {
		return Field{}, fmt.Errorf("field %q: invalid path", path)
	}
	if f.Kind != Scalar && (f.Parent == "" || (f.Kind != Array && f.Sub == "")) {
		return Field{}, fmt.Errorf("field %q: invalid path", path)
	}
	return f, nil
}

//go:embed plan.yaml
var defaultPlanYAML []byte

var (
	defaultOnce sync.Once
	defaultPlan *Plan
)

// Default returns the built-in portfolio plan. It panics if the embedded
// YAML is invalid, which the package tests rule out.
func Default() *Plan {
	defaultOnce.Do(func() {
		p, err := Parse(defaultPlanYAML)
		if err != nil {
			panic(err)
		}
		defaultPlan = p
	})
	return defaultPlan
}
