// Package provider implements the generic capability registry described
// by the system's provider-abstraction layer: three independent
// registries (document storage, text embedder, vector DB), each mapping
// a short stable string id to the shared owner of a concrete
// implementation.
//
// Registration happens once at startup; lookups are read-only
// thereafter, so no locking is required at steady state (a RWMutex is
// still used to guard against accidental concurrent registration during
// tests and hot-reload tooling).
package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// Identifiable is implemented by every capability (embedder, vector DB,
// storage provider) so the registry can key it by its own self-reported
// id rather than a separately-tracked name.
type Identifiable interface {
	ID() string
}

// Registry is a generic, write-once-then-read-only store of named
// capability implementations.
type Registry[T Identifiable] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewRegistry creates an empty registry for capability T.
func NewRegistry[T Identifiable]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Register adds impl under its own self-reported id. Registering two
// implementations under the same id is a startup configuration error.
func (r *Registry[T]) Register(impl T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := impl.ID()
	if id == "" {
		return apperr.New(apperr.InvalidProvider, "provider id must not be empty")
	}
	if _, exists := r.items[id]; exists {
		return apperr.New(apperr.AlreadyExists, "provider %q already registered", id)
	}
	r.items[id] = impl
	return nil
}

// Get resolves an implementation by id.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	impl, ok := r.items[id]
	if !ok {
		var zero T
		return zero, apperr.New(apperr.InvalidProvider, "no provider registered for id %q", id)
	}
	return impl, nil
}

// ListIDs enumerates every registered id in sorted order.
func (r *Registry[T]) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MustGet is a convenience used at startup (config wiring) where a
// missing provider is a fatal configuration error rather than a
// recoverable request-time failure.
func (r *Registry[T]) MustGet(id string) T {
	impl, err := r.Get(id)
	if err != nil {
		panic(fmt.Sprintf("provider: %v", err))
	}
	return impl
}
