// CLAUDE:SUMMARY Fixture format registry: decoders for JSON and YAML seed files, picked by extension.

// Package importer loads seed documents into the store. A fixture groups
// documents per collection; plain strings are kept as legacy values unless
// the document names the language they are written in.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Fixture is the decoded content of a seed file.
//
//	collections:
//	  projects:
//	    - id: p1
//	      lang: fr
//	      title: Refonte du site
type Fixture struct {
	Collections map[string][]map[string]any `json:"collections" yaml:"collections"`
}

// Format decodes one kind of fixture file.
type Format interface {
	// ID returns the unique identifier of this format (e.g. "json").
	ID() string
	// Extensions lists the file extensions handled, dot included.
	Extensions() []string
	// Decode reads a whole fixture.
	Decode(r io.Reader) (*Fixture, error)
}

var (
	registryMu sync.RWMutex
	formats    = make(map[string]Format)
)

// Register adds a format to the global registry.
func Register(f Format) {
	registryMu.Lock()
	defer registryMu.Unlock()
	formats[f.ID()] = f
}

// Get returns a registered format by ID, or an error if not found.
func Get(id string) (Format, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := formats[id]
	if !ok {
		return nil, fmt.Errorf("unknown fixture format: %q", id)
	}
	return f, nil
}

// ForPath picks the format from a file name or URL path extension.
func ForPath(name string) (Format, error) {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range All() {
		for _, e := range f.Extensions() {
			if e == ext {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("no fixture format for %q", name)
}

// All returns all registered formats sorted by ID.
func All() []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Format, 0, len(formats))
	for _, f := range formats {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
