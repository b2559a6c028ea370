// Package vectordb implements the Vector DB capability: create/delete/
// list named vector collections, insert vectors with payload, query by
// vector, and count/delete by document tag. Concrete providers are
// qdrant.go (a remote gRPC service, grounded on this repository's own
// internal/qdrant and internal/vectorstore/qdrant.go) and chromem.go
// (an embedded, file-backed store for local development and tests,
// grounded on internal/vectorstore/chromem.go).
//
// Every collection a provider creates carries an identity row: a
// zero-vector sentinel stored under IdentityRowID that records the
// collection's id, name, size, embedder id, model and optional access
// groups. This makes a vector DB self-describing, so the collection
// service's sync routine can reconstruct missing repository rows
// without any other source of truth.
package vectordb

import (
	"context"

	"github.com/google/uuid"
)

// IdentityRowID is the well-known point id every provider reserves for
// a collection's self-describing identity row.
var IdentityRowID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Identity is the payload carried by a collection's identity row.
type Identity struct {
	CollectionID uuid.UUID
	Name         string
	Size         int
	EmbedderID   string
	Model        string
	Groups       []string
}

// Point is a single vector plus the payload fields the system requires
// on every stored vector: the owning document id and the chunk text.
type Point struct {
	ID         uuid.UUID
	Vector     []float32
	DocumentID uuid.UUID
	Content    string
}

// SearchResult is a single hit returned by Query.
type SearchResult struct {
	DocumentID uuid.UUID
	Content    string
	Distance   float64
}

// Provider is the capability interface every vector database backend
// implements.
type Provider interface {
	// ID returns the provider's self-reported registry key, e.g.
	// "qdrant" or "chromem".
	ID() string

	// CreateCollection creates a named collection of the given
	// identity's size and writes its identity row.
	CreateCollection(ctx context.Context, identity Identity) error

	// DeleteCollection drops a collection and everything in it.
	DeleteCollection(ctx context.Context, name string) error

	// CollectionExists reports whether a collection currently exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// ListCollections enumerates every collection this provider
	// currently holds by reading each one's identity row, for use by
	// the collection service's sync routine.
	ListCollections(ctx context.Context) ([]Identity, error)

	// Insert stores points in a collection.
	Insert(ctx context.Context, collection string, points []Point) error

	// Query returns the nearest points to vector in a collection, up
	// to limit results. When maxDistance is non-nil, results farther
	// than it are dropped after the provider returns them, so fewer
	// than limit may come back.
	Query(ctx context.Context, collection string, vector []float32, limit int, maxDistance *float64) ([]SearchResult, error)

	// CountByDocument counts the vectors tagged with documentID in a
	// collection.
	CountByDocument(ctx context.Context, collection string, documentID uuid.UUID) (int, error)

	// DeleteByDocument removes every vector tagged with documentID
	// from a collection.
	DeleteByDocument(ctx context.Context, collection string, documentID uuid.UUID) error
}
