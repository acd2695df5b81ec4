// Package store defines the document-store client interface the engines are
// written against. A document lives at a slash-separated path of alternating
// collection and document segments ("posts/p1/comments/c1"); drivers provide
// single-document operations, an atomic field increment, a read-then-write
// transaction, an all-or-nothing bounded batch, and field-filtered queries
// including cross-collection ("collection group") queries.
package store

import (
	"context"
	"errors"
)

// MaxBatchWrites is the largest number of writes a single batch may carry.
// Larger mutations must be sharded into sequential batches by the caller.
const MaxBatchWrites = 500

var (
	// ErrNotFound reports a read of a document that does not exist.
	ErrNotFound = errors.New("store: document not found")
	// ErrUnavailable reports that the store could not complete the operation.
	// No partial write has occurred.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrConflict reports that a transaction lost against a concurrent writer
	// and was aborted. Safe to retry.
	ErrConflict = errors.New("store: transaction conflict")
	// ErrBatchTooLarge reports a batch exceeding MaxBatchWrites.
	ErrBatchTooLarge = errors.New("store: batch exceeds maximum write count")
	// ErrInvalidPath reports a path that does not address a document.
	ErrInvalidPath = errors.New("store: invalid document path")
)

// Fields holds the field values of a document.
type Fields map[string]any

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value that drivers replace with the
// commit time. Callers never supply their own clock for created_at fields.
var ServerTimestamp = serverTimestamp{}

// Document is a snapshot of a stored document.
type Document struct {
	Path   string
	Fields Fields
}

// Query describes a filtered, ordered read of a collection.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Filter is a single equality constraint on a document field.
type Filter struct {
	Field string
	Value any
}

// Where is a convenience constructor for an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// WriteKind discriminates the operations a batch write may carry.
type WriteKind int

const (
	// WriteSet creates or fully replaces a document.
	WriteSet WriteKind = iota
	// WriteUpdate merges fields into an existing document.
	WriteUpdate
	// WriteDelete removes a document.
	WriteDelete
	// WriteIncrement atomically adds Delta to an integer field.
	WriteIncrement
)

// Write is one element of a batch.
type Write struct {
	Kind   WriteKind
	Path   string
	Fields Fields
	Field  string
	Delta  int64
}

// SetWrite stages a create-or-replace of the document at path.
func SetWrite(path string, fields Fields) Write {
	return Write{Kind: WriteSet, Path: path, Fields: fields}
}

// UpdateWrite stages a field merge into the document at path.
func UpdateWrite(path string, fields Fields) Write {
	return Write{Kind: WriteUpdate, Path: path, Fields: fields}
}

// DeleteWrite stages a delete of the document at path.
func DeleteWrite(path string) Write {
	return Write{Kind: WriteDelete, Path: path}
}

// IncrementWrite stages an atomic add on an integer field.
func IncrementWrite(path, field string, delta int64) Write {
	return Write{Kind: WriteIncrement, Path: path, Field: field, Delta: delta}
}

// Txn is the handle passed to a transaction body. All writes staged through
// it commit atomically when the body returns nil; any error aborts the
// transaction with no effect.
type Txn interface {
	Get(path string) (*Document, error)
	Set(path string, fields Fields)
	Update(path string, fields Fields)
	Delete(path string)
	Increment(path, field string, delta int64)
}

// Store is the document-store client. Engines coordinate exclusively through
// its transaction and batch primitives; the store supplies isolation, so the
// engines themselves hold no locks.
type Store interface {
	Get(ctx context.Context, path string) (*Document, error)
	Set(ctx context.Context, path string, fields Fields) error
	Update(ctx context.Context, path string, fields Fields) error
	Delete(ctx context.Context, path string) error
	Increment(ctx context.Context, path, field string, delta int64) error

	// RunTransaction executes fn with read-your-writes isolation. The driver
	// may retry fn on conflict, so fn must be side-effect free outside the
	// transaction handle.
	RunTransaction(ctx context.Context, fn func(tx Txn) error) error

	// RunBatch commits up to MaxBatchWrites writes as one all-or-nothing unit.
	RunBatch(ctx context.Context, writes []Write) error

	// Query reads the collection at path, filtered and ordered by field.
	Query(ctx context.Context, collectionPath string, q Query) ([]*Document, error)

	// QueryGroup reads every collection named collectionID regardless of
	// parent, filtered and ordered by field.
	QueryGroup(ctx context.Context, collectionID string, q Query) ([]*Document, error)
}
