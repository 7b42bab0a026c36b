// Package memstore provides an in-memory implementation of the record store,
// used by unit tests and local development. Documents round-trip through JSON
// on every read and write so callers observe the same value shapes (float64
// numbers, map[string]any objects) as a networked store would produce.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/boutiq/internal/store"
)

var (
	_ store.Store       = (*Store)(nil)
	_ store.Decrementer = (*Store)(nil)
)

// Store is a mutex-guarded map-of-maps document store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]store.Record
	now         func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]store.Record),
		now:         time.Now,
	}
}

// WithClock replaces the timestamp source. Tests use it to make
// createdAt/updatedAt deterministic.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Find returns records matching the query options.
func (s *Store) Find(_ context.Context, collection string, opts ...store.QueryOption) ([]store.Record, error) {
	q := store.BuildQuery(opts)

	s.mu.RLock()
	coll := s.collections[collection]
	records := make([]store.Record, 0, len(coll))
	for _, rec := range coll {
		records = append(records, cloneRecord(rec))
	}
	s.mu.RUnlock()

	filtered := records[:0]
	for _, rec := range records {
		if q.ExceptID != "" && rec.ID == q.ExceptID {
			continue
		}
		if q.FilterPath != "" && lookupPath(rec, q.FilterPath) != q.FilterValue {
			continue
		}
		filtered = append(filtered, rec)
	}

	// Limit keeps the most-recent N before the requested ordering applies.
	if q.Limit > 0 && len(filtered) > q.Limit {
		sortByCreatedAtDesc(filtered)
		filtered = filtered[:q.Limit]
	}

	sortRecords(filtered, q.OrderBy)
	return filtered, nil
}

// FindByID returns the record with the given ID or store.ErrNotFound.
func (s *Store) FindByID(_ context.Context, collection, id string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := cloneRecord(rec)
	return &clone, nil
}

// Create stores a new document, minting an ID unless the document carries
// its own "id" field, and stamps both timestamps.
func (s *Store) Create(_ context.Context, collection string, doc store.Document) (*store.Record, error) {
	clone, err := cloneDocument(doc)
	if err != nil {
		return nil, errors.Wrap(err, "clone document")
	}
	stripNulls(clone)

	id := uuid.New().String()
	if v, ok := clone["id"].(string); ok && v != "" {
		id = v
	}
	delete(clone, "id")

	now := s.now().UTC()
	rec := store.Record{ID: id, CreatedAt: now, UpdatedAt: now, Doc: clone}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]store.Record)
		s.collections[collection] = coll
	}
	coll[id] = rec

	out := cloneRecord(rec)
	return &out, nil
}

// Update merges the patch into the stored document and restamps updatedAt.
// Keys set to nil in the patch clear the corresponding field.
func (s *Store) Update(_ context.Context, collection, id string, patch store.Document) (*store.Record, error) {
	clone, err := cloneDocument(patch)
	if err != nil {
		return nil, errors.Wrap(err, "clone patch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}

	for k, v := range clone {
		if v == nil {
			delete(rec.Doc, k)
			continue
		}
		rec.Doc[k] = v
	}
	rec.UpdatedAt = s.now().UTC()
	s.collections[collection][id] = rec

	out := cloneRecord(rec)
	return &out, nil
}

// DeleteByID removes the record with the given ID.
func (s *Store) DeleteByID(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

// DecrementField subtracts by from an integer field under the store lock,
// refusing to drop the value below zero. Implements store.Decrementer.
func (s *Store) DecrementField(_ context.Context, collection, id, field string, by int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return store.ErrConflict
	}
	cur, ok := rec.Doc[field].(float64)
	if !ok || int(cur) < by {
		return store.ErrConflict
	}
	rec.Doc[field] = cur - float64(by)
	rec.UpdatedAt = s.now().UTC()
	s.collections[collection][id] = rec
	return nil
}

// cloneDocument deep-copies a document through a JSON round-trip. nil values
// survive the trip, so explicit null markers reach Update intact.
func cloneDocument(doc store.Document) (store.Document, error) {
	if doc == nil {
		return store.Document{}, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out store.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneRecord(rec store.Record) store.Record {
	doc, err := cloneDocument(rec.Doc)
	if err != nil {
		// Stored documents already survived one round-trip.
		panic(err)
	}
	rec.Doc = doc
	return rec
}

// stripNulls drops explicit null markers from a freshly created document:
// a null field and an absent field are indistinguishable in the store.
func stripNulls(doc store.Document) {
	for k, v := range doc {
		if v == nil {
			delete(doc, k)
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			stripNulls(nested)
		}
	}
}

// lookupPath resolves a slash-separated field path against the record and
// returns the value rendered as a string, or "" when the path is absent.
func lookupPath(rec store.Record, path string) string {
	parts := strings.Split(path, "/")
	var cur any = rec.Doc
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = obj[part]
		if !ok {
			return ""
		}
	}
	return stringify(cur)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		raw, _ := json.Marshal(t)
		return string(raw)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

func sortByCreatedAtDesc(records []store.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// sortRecords applies the orderBy semantics: timestamp fields sort as dates
// descending, everything else lexicographically ascending by field value.
func sortRecords(records []store.Record, orderBy string) {
	switch orderBy {
	case "":
	case "createdAt":
		sortByCreatedAtDesc(records)
	case "updatedAt":
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		})
	default:
		sort.SliceStable(records, func(i, j int) bool {
			a := lookupPath(records[i], orderBy)
			b := lookupPath(records[j], orderBy)
			return a < b
		})
	}
}
