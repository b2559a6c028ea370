package repository

import (
	"context"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// Bootstrap creates every table this package needs if they do not
// already exist. Production deployments are expected to manage
// migrations with an external tool; this exists for local development
// and tests.
func (r *Repository) Bootstrap(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    path TEXT NOT NULL,
    ext TEXT NOT NULL,
    hash TEXT NOT NULL UNIQUE,
    source TEXT NOT NULL,
    label TEXT,
    tags TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (path, source)
);

CREATE TABLE IF NOT EXISTS parse_configs (
    document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
    config JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS chunk_configs (
    document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
    config JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS collections (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    model TEXT NOT NULL,
    embedder_id TEXT NOT NULL,
    vector_db_id TEXT NOT NULL,
    groups TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (name, vector_db_id)
);

CREATE TABLE IF NOT EXISTS embeddings (
    id UUID PRIMARY KEY,
    document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    collection_id UUID NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (document_id, collection_id)
);

CREATE TABLE IF NOT EXISTS embedding_reports (
    id UUID PRIMARY KEY,
    kind TEXT NOT NULL,
    collection TEXT NOT NULL,
    document TEXT NOT NULL,
    embedder_id TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    vector_db_id TEXT NOT NULL DEFAULT '',
    total_vectors INTEGER NOT NULL DEFAULT 0,
    tokens_used INTEGER NOT NULL DEFAULT 0,
    cache_hit BOOLEAN NOT NULL DEFAULT FALSE,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS embedding_reports_finished_idx ON embedding_reports(finished_at DESC);
CREATE INDEX IF NOT EXISTS embeddings_document_idx ON embeddings(document_id);
CREATE INDEX IF NOT EXISTS embeddings_collection_idx ON embeddings(collection_id);
`)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "bootstrapping schema")
	}
	return nil
}
