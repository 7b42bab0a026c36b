// Package pgstore implements the record store on PostgreSQL: every record is
// a JSONB document in a single table keyed by (collection, id). Path filters
// map to the #>> operator, and the partial-update merge relies on the ||
// concatenation together with jsonb_strip_nulls so that explicit null
// markers clear fields on write.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/boutiq/db"
	"github.com/xenking/boutiq/internal/store"
)

var (
	_ store.Store       = (*Store)(nil)
	_ store.Decrementer = (*Store)(nil)
)

// Store is a PostgreSQL-backed document store.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store that uses the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewPool creates a pgxpool.Pool for the given connection URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Find returns records matching the query options.
func (s *Store) Find(ctx context.Context, collection string, opts ...store.QueryOption) ([]store.Record, error) {
	q := store.BuildQuery(opts)

	var (
		sb   strings.Builder
		args []any
	)
	args = append(args, collection)
	sb.WriteString(`SELECT id, doc, created_at, updated_at FROM documents WHERE collection = $1`)

	if q.FilterPath != "" {
		args = append(args, pathArray(q.FilterPath), q.FilterValue)
		fmt.Fprintf(&sb, ` AND doc #>> $%d = $%d`, len(args)-1, len(args))
	}
	if q.ExceptID != "" {
		args = append(args, q.ExceptID)
		fmt.Fprintf(&sb, ` AND id <> $%d`, len(args))
	}

	query := sb.String()

	// Limit keeps the most-recent N before the requested ordering applies.
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query = fmt.Sprintf(
			`SELECT id, doc, created_at, updated_at FROM (%s ORDER BY created_at DESC LIMIT $%d) sub`,
			query, len(args),
		)
	}

	switch q.OrderBy {
	case "":
	case "createdAt":
		query += ` ORDER BY created_at DESC`
	case "updatedAt":
		query += ` ORDER BY updated_at DESC`
	default:
		args = append(args, q.OrderBy)
		query += fmt.Sprintf(` ORDER BY doc ->> $%d ASC`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding in %s: %w", collection, err)
	}
	return pgx.CollectRows(rows, scanRecord)
}

// FindByID returns the record with the given ID or store.ErrNotFound.
func (s *Store) FindByID(ctx context.Context, collection, id string) (*store.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, doc, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	return &rec, nil
}

// Create inserts a new document, minting an ID unless the document carries
// its own "id" field.
func (s *Store) Create(ctx context.Context, collection string, doc store.Document) (*store.Record, error) {
	id := uuid.New().String()
	if v, ok := doc["id"].(string); ok && v != "" {
		id = v
	}

	payload := make(store.Document, len(doc))
	for k, v := range doc {
		if k == "id" {
			continue
		}
		payload[k] = v
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal document")
	}

	rows, err := s.pool.Query(ctx,
		`INSERT INTO documents (collection, id, doc)
		 VALUES ($1, $2, jsonb_strip_nulls($3::jsonb))
		 RETURNING id, doc, created_at, updated_at`,
		collection, id, raw,
	)
	if err != nil {
		return nil, fmt.Errorf("creating in %s: %w", collection, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("creating in %s: %w", collection, err)
	}
	return &rec, nil
}

// Update merges the patch into the stored document and restamps updated_at.
// Keys set to null in the patch clear the corresponding field.
func (s *Store) Update(ctx context.Context, collection, id string, patch store.Document) (*store.Record, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, errors.Wrap(err, "marshal patch")
	}

	rows, err := s.pool.Query(ctx,
		`UPDATE documents
		 SET doc = jsonb_strip_nulls(doc || $3::jsonb), updated_at = now()
		 WHERE collection = $1 AND id = $2
		 RETURNING id, doc, created_at, updated_at`,
		collection, id, raw,
	)
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	return &rec, nil
}

// DeleteByID removes the record with the given ID.
func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DecrementField atomically subtracts by from an integer field, refusing to
// drop below zero. A refused decrement (or missing record) returns
// store.ErrConflict; the caller decides whether to re-read and retry.
func (s *Store) DecrementField(ctx context.Context, collection, id, field string, by int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents
		 SET doc = jsonb_set(doc, ARRAY[$3], to_jsonb((doc ->> $3)::bigint - $4)), updated_at = now()
		 WHERE collection = $1 AND id = $2 AND (doc ->> $3)::bigint >= $4`,
		collection, id, field, by,
	)
	if err != nil {
		return fmt.Errorf("decrementing %s/%s.%s: %w", collection, id, field, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrConflict
	}
	return nil
}

func scanRecord(row pgx.CollectableRow) (store.Record, error) {
	var (
		rec store.Record
		raw []byte
	)
	if err := row.Scan(&rec.ID, &raw, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec.Doc); err != nil {
		return rec, errors.Wrap(err, "unmarshal document")
	}
	return rec, nil
}

// pathArray converts a slash-separated field path into the text[] form the
// #>> operator expects.
func pathArray(path string) []string {
	return strings.Split(path, "/")
}
