// Package cache implements the Embedding Cache capability: keyed get/
// set/exists/clear of previously computed embedding sets, so a
// document re-embedded with the same model and configuration skips the
// embedder call entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Entry is the cached payload for one (model, document, chunk config,
// parse config) tuple.
type Entry struct {
	Embeddings [][]float32 `json:"embeddings"`
	Chunks     []string    `json:"chunks"`
	TokensUsed *int        `json:"tokens_used,omitempty"`
}

// Cache is the capability interface the embedding service consults
// before calling an embedder.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Exists(ctx context.Context, key string) (bool, error)
	FlushDB(ctx context.Context) error
}

// keyMaterial is the frozen field set and ordering the cache key is
// derived from. Changing any field here, or their order below,
// invalidates every previously stored key — see spec-level cache
// documentation before editing.
type keyMaterial struct {
	Model        string `json:"model"`
	DocumentHash string `json:"document_hash"`
	ChunkConfig  string `json:"chunk_config"`
	ParseConfig  string `json:"parse_config"`
}

// Key derives the cache key for a (model, document content hash, chunk
// config, parse config) tuple. chunkConfig and parseConfig are expected
// to already be a stable serialization (e.g. the JSON stored in the
// repository's config tables) so that semantically identical configs
// always hash identically regardless of map key ordering upstream.
func Key(model, documentHash, chunkConfig, parseConfig string) (string, error) {
	material := keyMaterial{
		Model:        model,
		DocumentHash: documentHash,
		ChunkConfig:  chunkConfig,
		ParseConfig:  parseConfig,
	}
	data, err := json.Marshal(material)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
