// Package store defines the record store capability the engine is built on:
// generic CRUD and query primitives over named collections of schemaless
// JSON documents. Each record carries an identifier and createdAt/updatedAt
// timestamps managed by the store on write. There are no cross-document
// transactions; every call is an independent write that can fail on its own.
package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned by a conditional write whose guard did not hold,
// e.g. a stock decrement that would drop a quantity below zero. The write is
// rejected, not clamped; callers may re-read and retry.
var ErrConflict = errors.New("conditional write conflict")

// Well-known collection names.
const (
	CollectionProducts  = "products"
	CollectionCampaigns = "campaigns"
	CollectionOrders    = "orders"
	CollectionUsers     = "users"
	CollectionSettings  = "settings"
	CollectionRepairs   = "repairs"
)

// Document is a schemaless JSON object. Nested objects are Documents
// themselves after a round-trip through the store.
type Document = map[string]any

// Record is a stored document together with its store-managed metadata.
type Record struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Doc       Document
}

// Store is the generic document store client. Implementations mint an ID on
// Create when the caller does not supply one, stamp createdAt/updatedAt on
// Create, and restamp updatedAt on Update.
//
// Update performs a partial merge: keys present in the patch replace the
// stored value, and a key whose value is explicitly nil clears the field
// (the store cannot persist an "absent" value, so nil is the null marker).
type Store interface {
	Find(ctx context.Context, collection string, opts ...QueryOption) ([]Record, error)
	FindByID(ctx context.Context, collection, id string) (*Record, error)
	Create(ctx context.Context, collection string, doc Document) (*Record, error)
	Update(ctx context.Context, collection, id string, patch Document) (*Record, error)
	DeleteByID(ctx context.Context, collection, id string) error
}

// Decrementer is an optional capability of a Store: a server-side guarded
// decrement of an integer field that can never drop below zero. Stores that
// lack it force callers back onto a read-validate-write sequence, which is
// racy under concurrent writers.
type Decrementer interface {
	DecrementField(ctx context.Context, collection, id, field string, by int) error
}

// Query holds the resolved query parameters for a Find call.
type Query struct {
	// OrderBy sorts results by the named field. The timestamp fields
	// "createdAt" and "updatedAt" sort as dates descending (most recent
	// first); any other field sorts lexicographically ascending.
	OrderBy string
	// FilterPath is a slash-separated field path, e.g. "campaign/id".
	FilterPath string
	// FilterValue is the equality predicate value for FilterPath.
	FilterValue string
	// Limit keeps only the most-recent N records. Zero means no limit.
	Limit int
	// ExceptID excludes one record from the results.
	ExceptID string
}

// QueryOption configures a Find call.
type QueryOption func(*Query)

// OrderBy sorts results by the given field name.
func OrderBy(field string) QueryOption {
	return func(q *Query) { q.OrderBy = field }
}

// FilterBy restricts results to records whose value at the slash-separated
// path equals value.
func FilterBy(path, value string) QueryOption {
	return func(q *Query) {
		q.FilterPath = path
		q.FilterValue = value
	}
}

// Limit keeps only the most-recent n records.
func Limit(n int) QueryOption {
	return func(q *Query) { q.Limit = n }
}

// ExceptID excludes the record with the given ID from the results.
func ExceptID(id string) QueryOption {
	return func(q *Query) { q.ExceptID = id }
}

// BuildQuery applies the options to an empty Query.
func BuildQuery(opts []QueryOption) Query {
	var q Query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}
