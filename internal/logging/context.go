// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context: the
// collection, document, and batch job a log line was emitted while
// operating on, whichever of those are set.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)

	if id := CollectionIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("collection.id", id))
	}
	if id := DocumentIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("document.id", id))
	}
	if id := JobIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("job.id", id))
	}

	return fields
}

// Context key types
type collectionCtxKey struct{}
type documentCtxKey struct{}
type jobCtxKey struct{}

// maxIDLen bounds correlation ids so a misused value can't bloat every
// subsequent log line.
const maxIDLen = 128

// validateID guards the correlation ids above.
func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	return nil
}

// CollectionIDFromContext extracts the collection id from context.
func CollectionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(collectionCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCollectionID adds a collection id to context, for correlation in
// logs emitted further down the call chain. Panics if id is empty,
// invalid UTF-8, or unreasonably long.
func WithCollectionID(ctx context.Context, id string) context.Context {
	if err := validateID(id, "collectionID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, collectionCtxKey{}, id)
}

// DocumentIDFromContext extracts the document id from context.
func DocumentIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(documentCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithDocumentID adds a document id to context. Panics if id is empty,
// invalid UTF-8, or unreasonably long.
func WithDocumentID(ctx context.Context, id string) context.Context {
	if err := validateID(id, "documentID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, documentCtxKey{}, id)
}

// JobIDFromContext extracts the batch job id from context.
func JobIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(jobCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithJobID adds a batch job id to context. Panics if id is empty,
// invalid UTF-8, or unreasonably long.
func WithJobID(ctx context.Context, id string) context.Context {
	if err := validateID(id, "jobID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, jobCtxKey{}, id)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a no-op logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return Nop()
}
