// Package docstore abstracts the hosted document database the backend
// runs against. It exposes the small slice of document-store semantics
// the application actually relies on: addressable documents in nested
// collections, point reads, merge writes with server-resolved
// sentinels, range queries, and atomic transactions that require every
// read to happen before the first write.
//
// The production implementation is backed by Cloud Firestore; an
// in-memory implementation with the same transactional discipline
// backs local development and tests.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing document where existence was required.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrAborted reports a transaction that was retried out due to
	// conflicting concurrent writes. The operation is safe to retry.
	ErrAborted = errors.New("docstore: transaction aborted")

	// ErrUnknown reports a commit whose outcome could not be observed
	// (e.g. a timeout). Callers must treat the state as undetermined
	// and may retry, relying on operation idempotency.
	ErrUnknown = errors.New("docstore: transaction outcome unknown")

	// ErrReadAfterWrite reports a transaction callback that issued a
	// read after its first buffered write. The store requires all
	// reads to complete before any write.
	ErrReadAfterWrite = errors.New("docstore: all reads must precede writes in a transaction")
)

// Direction orders query results.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Snapshot is the observed state of a document at read time. A read of
// a missing document yields Exists == false rather than an error.
type Snapshot struct {
	ID     string
	Exists bool
	Data   map[string]any
}

// Str returns the named field as a string, or "" when absent or of
// another type.
func (s Snapshot) Str(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// Int returns the named field as an int64, tolerating the numeric
// types the underlying stores hand back.
func (s Snapshot) Int(key string) int64 {
	switch v := s.Data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Time returns the named field as a time.Time, or the zero time.
func (s Snapshot) Time(key string) time.Time {
	v, _ := s.Data[key].(time.Time)
	return v
}

// DocRef addresses a single document.
type DocRef interface {
	ID() string
	Path() string
	Collection(name string) CollectionRef

	Get(ctx context.Context) (Snapshot, error)
	Set(ctx context.Context, data map[string]any) error
	Merge(ctx context.Context, data map[string]any) error
	Delete(ctx context.Context) error
}

// Query is an immutable, composable filter over one collection.
type Query interface {
	Where(field, op string, value any) Query
	OrderBy(field string, dir Direction) Query
	Limit(n int) Query
	Documents(ctx context.Context) ([]Snapshot, error)
}

// CollectionRef addresses a collection of documents.
type CollectionRef interface {
	Query
	Doc(id string) DocRef
	// NewDoc returns a reference with a fresh server-assigned id.
	NewDoc() DocRef
}

// Tx is the handle passed to a transaction callback. Reads go through
// Get; writes are buffered and applied atomically at commit. A Get
// issued after the first write fails with ErrReadAfterWrite.
type Tx interface {
	Get(ref DocRef) (Snapshot, error)
	Set(ref DocRef, data map[string]any)
	Merge(ref DocRef, data map[string]any)
	Delete(ref DocRef)
}

// Client is the injected document store dependency.
//
// RunTransaction executes fn atomically under optimistic concurrency:
// if any document read inside fn was modified concurrently before
// commit, the store retries fn from scratch. Callbacks must therefore
// be side-effect-free up to commit. An error returned by fn aborts the
// transaction and is returned unchanged.
type Client interface {
	Collection(name string) CollectionRef
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
