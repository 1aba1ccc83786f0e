// Package docstore is the narrow port through which repositories reach the
// managed document database. It exposes only the primitives the application
// needs: point reads, set/merge/update writes, add with a generated id,
// equality and array-contains queries, ordering, limits, field sentinels for
// server timestamps, array union and numeric increment, and realtime snapshot
// subscriptions.
//
// Adapters live in sub-packages: firestore (default), mongo and memory.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrIndexUnavailable is returned by Query when the backend cannot serve the
	// requested ordering because the supporting index is missing.
	ErrIndexUnavailable = errors.New("query requires an index that is not available")

	// ErrInvalidPath is returned for paths with the wrong number of segments.
	ErrInvalidPath = errors.New("invalid document path")
)

// Store is implemented by every document database adapter.
type Store interface {
	// Get reads a single document. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, path string) (*Document, error)

	// Set replaces the document at path, creating it if needed.
	Set(ctx context.Context, path string, data map[string]any) error

	// Merge writes the given fields into the document at path, creating it if
	// needed and leaving other fields untouched.
	Merge(ctx context.Context, path string, data map[string]any) error

	// Add creates a document with a generated id in the collection and returns the id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)

	// Update changes the given fields of an existing document. All fields are
	// applied in one request. Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Query runs q once and returns the matching documents.
	Query(ctx context.Context, q Query) ([]*Document, error)

	// Subscribe starts a realtime subscription on q. The first snapshot is the
	// current result set; every later change pushes the full result set again.
	Subscribe(ctx context.Context, q Query) (Subscription, error)

	// Close releases the underlying client.
	Close() error
}

// Subscription delivers full query snapshots until stopped.
type Subscription interface {
	// Snapshots is closed when the subscription ends.
	Snapshots() <-chan []*Document
	// Err reports why the subscription ended, nil after Stop.
	Err() error
	// Stop releases the subscription. Safe to call more than once.
	Stop()
}

// Document is a read-only view of a stored document.
type Document struct {
	ID   string
	Path string

	data   map[string]any
	decode func(v any) error
}

// NewDocument is used by adapters to build documents. decode populates a
// struct from the adapter's native representation.
func NewDocument(path string, data map[string]any, decode func(v any) error) *Document {
	_, id := Split(path)
	return &Document{ID: id, Path: path, data: data, decode: decode}
}

// Data returns the raw field map.
func (d *Document) Data() map[string]any {
	return d.data
}

// DataTo decodes the document into v, a pointer to a struct.
func (d *Document) DataTo(v any) error {
	if d.decode == nil {
		return fmt.Errorf("document %s has no decoder", d.Path)
	}
	return d.decode(v)
}

// Join builds a slash separated path.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the parent collection path and the id of a document path.
func Split(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// ValidateDocumentPath checks that path names a document (even segment count, no empty segments).
func ValidateDocumentPath(path string) error {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 0 {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	for _, s := range segs {
		if s == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return nil
}

// ValidateCollectionPath checks that path names a collection (odd segment count, no empty segments).
func ValidateCollectionPath(path string) error {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, path)
	}
	for _, s := range segs {
		if s == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return nil
}
