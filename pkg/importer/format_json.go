package importer

import (
	"encoding/json"
	"fmt"
	"io"
)

func init() {
	Register(jsonFormat{})
}

type jsonFormat struct{}

func (jsonFormat) ID() string           { return "json" }
func (jsonFormat) Extensions() []string { return []string{".json"} }

func (jsonFormat) Decode(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode json fixture: %w", err)
	}
	return &f, nil
}
