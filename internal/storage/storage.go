// Package storage implements the Document Storage capability: reading,
// writing, listing and deleting bytes at a path, plus enough metadata
// to let the document service's sync routine reconcile a storage
// provider's listing with the repository. Concrete providers are
// filesystem-backed (fs.go) and S3-backed (s3.go), grounded on
// intelligencedev-manifold's internal/objectstore package.
package storage

import (
	"context"
	"io"
	"time"
)

// Object is a stored file's metadata, returned by List.
type Object struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Provider is the capability interface every storage backend
// implements. Every method is a suspension point; implementations are
// expected to be safe for concurrent use since a single instance is
// shared across every request touching its provider id.
type Provider interface {
	// ID returns the provider's self-reported registry key, e.g. "fs"
	// or "s3".
	ID() string

	// Get retrieves the bytes at path. The caller must close the
	// returned reader. Returns an error satisfying errors.Is(err,
	// ErrNotFound) if nothing exists at path.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Put stores data at path, creating or overwriting it.
	Put(ctx context.Context, path string, data io.Reader) error

	// Delete removes the object at path. Deleting a path that does
	// not exist is not an error.
	Delete(ctx context.Context, path string) error

	// List enumerates every object this provider currently holds, for
	// use by the document service's sync routine.
	List(ctx context.Context) ([]Object, error)

	// Path derives the storage path for a document of the given name
	// and extension, e.g. "<base>/<name>.<ext>" for the filesystem
	// provider.
	Path(name, ext string) string
}

// ErrNotFound is returned (wrapped) by Get and any method that needs
// to report a missing object.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "storage: object not found" }
