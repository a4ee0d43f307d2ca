package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/store"
)

// Store is the part of the document store the service uses.
type Store interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (store.Document, error)
	Get(ctx context.Context, collection, id string) (store.Document, error)
	List(ctx context.Context, collection string) ([]store.Document, error)
	UpdateOne(ctx context.Context, collection, id string, set map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// Service creates, reads, updates and deletes documents of the planned
// collections.
type Service struct {
	store  Store
	plan   *fieldplan.Plan
	logger *slog.Logger
}

// NewService creates a Service. A nil plan uses fieldplan.Default().
func NewService(st Store, plan *fieldplan.Plan, logger *slog.Logger) *Service {
	if plan == nil {
		plan = fieldplan.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, plan: plan, logger: logger}
}

// Create normalizes, validates and stores a new document.
func (s *Service) Create(ctx context.Context, collection string, payload map[string]any) (store.Document, error) {
	c, err := s.plan.Collection(collection)
	if err != nil {
		return store.Document{}, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	NormalizePayload(c, payload)
	if err := Validate(collection, payload, false); err != nil {
		return store.Document{}, err
	}

	doc, err := s.store.Insert(ctx, collection, payload)
	if err != nil {
		return store.Document{}, err
	}
	s.logger.Info("document created", "collection", collection, "id", doc.ID)
	return doc, nil
}

// Update replaces the top-level keys present in payload and keeps the
// others. Keys are never interpreted as paths.
func (s *Service) Update(ctx context.Context, collection, id string, payload map[string]any) (store.Document, error) {
	c, err := s.plan.Collection(collection)
	if err != nil {
		return store.Document{}, err
	}
	delete(payload, "id")
	for k := range payload {
		if k == "" || strings.ContainsAny(k, `."[]`) {
			return store.Document{}, fmt.Errorf("%w: invalid key %q", ErrValidation, k)
		}
	}
	NormalizePayload(c, payload)
	if err := Validate(collection, payload, true); err != nil {
		return store.Document{}, err
	}

	if len(payload) > 0 {
		if err := s.store.UpdateOne(ctx, collection, id, payload); err != nil {
			return store.Document{}, err
		}
	}
	return s.store.Get(ctx, collection, id)
}

// Get returns one raw document.
func (s *Service) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if _, err := s.plan.Collection(collection); err != nil {
		return store.Document{}, err
	}
	return s.store.Get(ctx, collection, id)
}

// List returns every raw document of a collection.
func (s *Service) List(ctx context.Context, collection string) ([]store.Document, error) {
	if _, err := s.plan.Collection(collection); err != nil {
		return nil, err
	}
	return s.store.List(ctx, collection)
}

// Delete removes one document.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.plan.Collection(collection); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", "collection", collection, "id", id)
	return nil
}
