// Package docstore is the document-store abstraction the membership core writes
// through. Documents are addressed by slash-separated paths
// ("families/ABC123", "users/uid-1") and hold nested maps.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Update when the target document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is the raw field map of a stored document.
type Document = map[string]interface{}

// Snapshot is a point-in-time read of one document.
type Snapshot struct {
	Path   string
	Exists bool
	Data   Document
}

// Update targets a single field. Either Path, a dotted field path such as
// "children", or FieldPath, whose segments are taken verbatim, must be set.
// Map keys that may contain dots must go through FieldPath.
// Value may be Delete or the result of ArrayUnion.
type Update struct {
	Path      string
	FieldPath []string
	Value     interface{}
}

type deleteSentinel struct{}

// Delete removes the field named by an Update.
var Delete interface{} = deleteSentinel{}

// ArrayUnionValue appends its elements to an array field, skipping elements
// that are already present.
type ArrayUnionValue struct {
	Elems []interface{}
}

// ArrayUnion builds an array-append transform for Update.Value.
func ArrayUnion(elems ...interface{}) ArrayUnionValue {
	return ArrayUnionValue{Elems: elems}
}

// Store is implemented by every storage backend.
type Store interface {
	// Get reads a document. A missing document is not an error; the returned
	// snapshot has Exists == false.
	Get(ctx context.Context, path string) (Snapshot, error)

	// Set writes a whole document. With merge, maps are merged into the
	// existing document instead of replacing it.
	Set(ctx context.Context, path string, doc Document, merge bool) error

	// Update applies field updates atomically. It returns ErrNotFound when the
	// document does not exist.
	Update(ctx context.Context, path string, updates []Update) error

	// Subscribe delivers the current snapshot and then a fresh snapshot after
	// every change. Snapshots are whole documents and may be coalesced.
	Subscribe(ctx context.Context, path string, onChange func(Snapshot), onError func(error)) (unsubscribe func())

	// Close releases any resources held by the store.
	Close() error
}
