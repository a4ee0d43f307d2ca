// CLAUDE:SUMMARY Bulk localization engine: walks every planned collection, converts legacy string fields to {en, fr} in place, and reports per-collection counts and errors.

// Package migrate converts legacy single-language documents to the bilingual
// {en, fr} shape, and back.
//
// A run is sequential and not transactional. Documents are selected by the
// runtime JSON type of their planned fields, so an interrupted run is
// resumed simply by running it again.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/store"
)

// ErrUnknownCollection is returned when a run names a collection that is
// not in the field plan.
var ErrUnknownCollection = fieldplan.ErrUnknownCollection

// Store is the subset of the document store the engine needs.
type Store interface {
	Ping(ctx context.Context) error
	Find(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error)
	Count(ctx context.Context, collection string, filter store.Filter) (int, error)
	UpdateOne(ctx context.Context, collection, id string, set map[string]any) error
}

// Options tune a migration or rollback run.
type Options struct {
	// DryRun counts the documents that would change without writing them.
	DryRun bool
	// Collections restricts the run. Empty means every planned collection,
	// in plan order.
	Collections []string
}

// Engine runs migrations over a Store following a field plan.
type Engine struct {
	store  Store
	plan   *fieldplan.Plan
	logger *slog.Logger
}

// NewEngine creates an engine. A nil plan uses fieldplan.Default(), a nil
// logger uses slog.Default().
func NewEngine(st Store, plan *fieldplan.Plan, logger *slog.Logger) *Engine {
	if plan == nil {
		plan = fieldplan.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, plan: plan, logger: logger}
}

// Collections lists the collection names the engine covers, in plan order.
func (e *Engine) Collections() []string {
	return e.plan.Names()
}

// Plan returns the field plan the engine follows.
func (e *Engine) Plan() *fieldplan.Plan {
	return e.plan
}

// MigrateAll converts every planned collection. A failing collection is
// recorded in the result and the run moves on; only a store that cannot be
// reached, an unknown collection in opts or a cancelled context abort the
// run with an error.
func (e *Engine) MigrateAll(ctx context.Context, opts Options) (*Result, error) {
	return e.runAll(ctx, Forward, opts)
}

// RollbackAll is the inverse of MigrateAll: each bilingual field gets its
// English text back as a plain string.
func (e *Engine) RollbackAll(ctx context.Context, opts Options) (*Result, error) {
	return e.runAll(ctx, Backward, opts)
}

// MigrateCollection converts one collection and returns how many documents
// were updated.
func (e *Engine) MigrateCollection(ctx context.Context, name string, opts Options) (int, error) {
	c, err := e.plan.Collection(name)
	if err != nil {
		return 0, err
	}
	return e.runCollection(ctx, Forward, c, opts.DryRun)
}

// RollbackCollection reverts one collection and returns how many documents
// were updated.
func (e *Engine) RollbackCollection(ctx context.Context, name string, opts Options) (int, error) {
	c, err := e.plan.Collection(name)
	if err != nil {
		return 0, err
	}
	return e.runCollection(ctx, Backward, c, opts.DryRun)
}

func (e *Engine) runAll(ctx context.Context, dir Direction, opts Options) (*Result, error) {
	colls, err := e.selected(opts.Collections)
	if err != nil {
		return nil, err
	}
	if err := e.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store unreachable: %w", err)
	}

	start := time.Now()
	res := newResult(dir, opts.DryRun)
	for _, c := range colls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := e.runCollection(ctx, dir, c, opts.DryRun)
		res.add(c, n, err)
	}

	e.logger.Info(dir.String()+" run finished",
		"total", res.Total(),
		"errors", len(res.Errors),
		"dry_run", opts.DryRun,
		"duration", time.Since(start),
	)
	return res, nil
}

func (e *Engine) selected(names []string) ([]*fieldplan.Collection, error) {
	if len(names) == 0 {
		return e.plan.Collections, nil
	}
	out := make([]*fieldplan.Collection, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		c, err := e.plan.Collection(name)
		if err != nil {
			return nil, err
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out, nil
}

func (e *Engine) runCollection(ctx context.Context, dir Direction, c *fieldplan.Collection, dryRun bool) (int, error) {
	docs, err := e.store.Find(ctx, c.Name, selection(c, dir))
	if err != nil {
		e.logger.Error(dir.String()+" failed", "collection", c.Name, "error", err)
		return 0, err
	}

	var count int
	for _, doc := range docs {
		set := updateSet(c, dir, doc.Fields)
		if len(set) == 0 {
			continue
		}
		if !dryRun {
			if err := e.store.UpdateOne(ctx, c.Name, doc.ID, set); err != nil {
				e.logger.Error(dir.String()+" failed", "collection", c.Name, "id", doc.ID, "error", err)
				return count, err
			}
		}
		count++
	}

	e.logger.Info(dir.String()+" done", "collection", c.Name, "matched", len(docs), "updated", count, "dry_run", dryRun)
	return count, nil
}
