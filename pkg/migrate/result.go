package migrate

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/folio/pkg/fieldplan"
)

// CollectionResult is the outcome of one collection within a run.
type CollectionResult struct {
	Collection string
	Count      int
	Err        error
}

// Result is the report of one MigrateAll or RollbackAll call. Collections
// are listed in the order they ran.
type Result struct {
	Direction   Direction
	DryRun      bool
	Collections []CollectionResult
	// Errors holds one "<Collection> migration failed: <message>" line per
	// failed collection ("rollback failed" for rollbacks).
	Errors []string
}

func newResult(dir Direction, dryRun bool) *Result {
	return &Result{Direction: dir, DryRun: dryRun, Errors: []string{}}
}

func (r *Result) add(c *fieldplan.Collection, n int, err error) {
	r.Collections = append(r.Collections, CollectionResult{Collection: c.Name, Count: n, Err: err})
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("%s %s failed: %v", c.Title(), r.Direction, err))
	}
}

// Total sums the per-collection counts.
func (r *Result) Total() int {
	var n int
	for _, c := range r.Collections {
		n += c.Count
	}
	return n
}

// Success reports whether every collection ran without error.
func (r *Result) Success() bool {
	return len(r.Errors) == 0
}

// Count returns the count recorded for collection (0 if it did not run).
func (r *Result) Count(collection string) int {
	for _, c := range r.Collections {
		if c.Collection == collection {
			return c.Count
		}
	}
	return 0
}

// Map is the wire form: one counter per collection plus "errors".
func (r *Result) Map() map[string]any {
	out := make(map[string]any, len(r.Collections)+2)
	for _, c := range r.Collections {
		out[c.Collection] = c.Count
	}
	out["errors"] = r.Errors
	if r.DryRun {
		out["dryRun"] = true
	}
	return out
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
