// Package docstore abstracts an ordered, filterable document
// collection: the query surface the pagination engine and the user
// service are written against.
//
// Two backends are provided: an in-memory store for development and
// tests, and a PostgreSQL JSONB store for deployments.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FieldDocumentID is the pseudo-field naming a document's permanent
// identifier. It is usable in OrderBy and is the mandatory final
// tie-break field for stable pagination.
const FieldDocumentID = "__name__"

// ErrNotFound is returned by Get when no document has the given id.
var ErrNotFound = errors.New("document not found")

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection validates a caller-supplied direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", fmt.Errorf("invalid sort direction %q: want asc or desc", s)
}

// Order is one sort key: a field and a direction.
type Order struct {
	Field     string
	Direction Direction
}

// Document is one stored record: its stable identifier, its full path
// ("<collection>/<id>") and its stored fields.
type Document struct {
	ID   string
	Path string
	Data map[string]interface{}
}

// Field returns the document's value for an order-by field, resolving
// the document-ID pseudo-field to the identifier. ok is false when a
// declared field is absent from the stored data.
func (d *Document) Field(name string) (interface{}, bool) {
	if name == FieldDocumentID {
		return d.ID, true
	}
	v, ok := d.Data[name]
	return v, ok
}

// DocRef is a resolved reference to a document, reconstructed from a
// stored path string when decoding a cursor.
type DocRef struct {
	Collection string
	ID         string
}

// Path returns the "<collection>/<id>" form stored in cursors.
func (r DocRef) Path() string {
	return r.Collection + "/" + r.ID
}

// ParseRef parses a "<collection>/<id>" path back into a reference.
func ParseRef(path string) (DocRef, error) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return DocRef{}, fmt.Errorf("invalid document path %q", path)
	}
	return DocRef{Collection: parts[0], ID: parts[1]}, nil
}

// Query is an immutable ordered-range query builder. Each method
// returns a derived query; the receiver is never mutated.
type Query interface {
	// Where adds a filter. Supported ops: ==, !=, <, <=, >, >=.
	Where(field, op string, value interface{}) Query
	// OrderBy appends a sort key. Keys apply in the order added.
	OrderBy(field string, dir Direction) Query
	// StartAfter resumes strictly after the given sort-key values,
	// one per OrderBy key in the same order. The value for the
	// document-ID field must be a DocRef.
	StartAfter(values ...interface{}) Query
	// Limit caps the number of returned documents.
	Limit(n int) Query
	// Documents executes the query.
	Documents(ctx context.Context) ([]*Document, error)
}

// Collection is a named document collection.
type Collection interface {
	Name() string
	Query() Query
	// Get reads a single document by id. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Document, error)
}

// Store is a document store holding named collections.
type Store interface {
	Collection(name string) Collection
	// Set upserts a document. Listing is the read surface of this
	// service; Set exists for seeding and for the provisioning tools.
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	Close() error
}
