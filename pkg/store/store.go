// Package store is the document collection store: JSON documents kept in a
// single SQLite table and addressed by (collection, id).
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/hazyhaar/pkg/dbopen"
	"github.com/hazyhaar/pkg/idgen"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrConflict  = errors.New("document already exists")
	ErrInvalidID = errors.New("invalid document id")
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Document is one stored JSON object. Fields never contains "id".
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON flattens the document: its fields plus id and timestamps.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		out[k] = v
	}
	out["id"] = d.ID
	out["createdAt"] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
	out["updatedAt"] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// Store manages the documents SQLite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite database at path and applies the
// embedded schema migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := migrateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func migrateSchema(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the SQLite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DocumentID returns the caller-supplied "id" of fields, or "" when there is
// none. Integral numbers are accepted in their decimal form; any other
// non-string id is rejected with ErrInvalidID.
func DocumentID(fields map[string]any) (string, error) {
	switch v := fields["id"].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return v.String(), nil
		}
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	}
	return "", fmt.Errorf("%w: %v (%T)", ErrInvalidID, fields["id"], fields["id"])
}

// Insert stores a new document. The "id" field, if any, is used as the
// document ID (see DocumentID), otherwise one is generated.
func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	id, err := DocumentID(fields)
	if err != nil {
		return Document{}, err
	}
	if id == "" {
		id = idgen.New()
	}
	body := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "id" {
			body[k] = v
		}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return Document{}, fmt.Errorf("encode document: %w", err)
	}

	now := s.now().UnixNano()
	query, args, err := sq.Insert("documents").
		Columns("collection", "id", "doc", "created_at", "updated_at").
		Values(collection, id, string(raw), now, now).
		ToSql()
	if err != nil {
		return Document{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Document{}, fmt.Errorf("%w: %s/%s", ErrConflict, collection, id)
		}
		return Document{}, fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return decode(id, string(raw), now, now)
}

// Get returns one document.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	docs, err := s.query(ctx, selectDocs(collection).Where(sq.Eq{"id": id}))
	if err != nil {
		return Document{}, err
	}
	if len(docs) == 0 {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return docs[0], nil
}

// Find returns the documents of collection matching filter, oldest first.
func (s *Store) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	q := selectDocs(collection)
	cond, err := filter.where()
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	if cond != nil {
		q = q.Where(cond)
	}
	return s.query(ctx, q)
}

// List returns every document of collection, oldest first.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	return s.Find(ctx, collection, Filter{})
}

// Count returns the number of documents of collection matching filter.
func (s *Store) Count(ctx context.Context, collection string, filter Filter) (int, error) {
	q := sq.Select("COUNT(*)").From("documents").Where(sq.Eq{"collection": collection})
	cond, err := filter.where()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	if cond != nil {
		q = q.Where(cond)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// UpdateOne merges set into one document. Keys are dotted paths
// ("title", "team.role", "results.0.metric"); only the addressed values
// change, the rest of the document is kept.
func (s *Store) UpdateOne(ctx context.Context, collection, id string, set map[string]any) error {
	if len(set) == 0 {
		return nil
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var expr strings.Builder
	args := make([]any, 0, 2*len(paths))
	expr.WriteString("json_set(doc")
	for _, p := range paths {
		jp, err := jsonPath(p)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		raw, err := json.Marshal(set[p])
		if err != nil {
			return fmt.Errorf("encode %s: %w", p, err)
		}
		expr.WriteString(", ?, json(?)")
		args = append(args, jp, string(raw))
	}
	expr.WriteString(")")

	query, qargs, err := sq.Update("documents").
		Set("doc", sq.Expr(expr.String(), args...)).
		Set("updated_at", s.now().UnixNano()).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, qargs...)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

// Delete removes one document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query, args, err := sq.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func selectDocs(collection string) sq.SelectBuilder {
	return sq.Select("id", "doc", "created_at", "updated_at").
		From("documents").
		Where(sq.Eq{"collection": collection}).
		OrderBy("created_at", "id")
}

func (s *Store) query(ctx context.Context, q sq.SelectBuilder) ([]Document, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			id, raw          string
			created, updated int64
		)
		if err := rows.Scan(&id, &raw, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decode(id, raw, created, updated)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func decode(id, raw string, created, updated int64) (Document, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return Document{
		ID:        id,
		Fields:    fields,
		CreatedAt: time.Unix(0, created),
		UpdatedAt: time.Unix(0, updated),
	}, nil
}
