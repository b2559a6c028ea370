package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/vectorkit/vectorkit/internal/apperr"
	"github.com/vectorkit/vectorkit/internal/chunk"
	"github.com/vectorkit/vectorkit/internal/parser"
)

// UpsertParseConfig stores the parse configuration for a document,
// replacing any existing one.
func (r *Repository) UpsertParseConfig(ctx context.Context, tx *Tx, documentID uuid.UUID, cfg parser.Config) error {
	body, err := marshalJSON(cfg)
	if err != nil {
		return err
	}
	_, err = r.q(tx).Exec(ctx, `
INSERT INTO parse_configs (document_id, config) VALUES ($1, $2)
ON CONFLICT (document_id) DO UPDATE SET config = EXCLUDED.config`, documentID, body)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "upserting parse config")
	}
	return nil
}

// UpsertChunkConfig stores the chunk configuration for a document,
// replacing any existing one.
func (r *Repository) UpsertChunkConfig(ctx context.Context, tx *Tx, documentID uuid.UUID, cfg chunk.Config) error {
	body, err := marshalJSON(cfg)
	if err != nil {
		return err
	}
	_, err = r.q(tx).Exec(ctx, `
INSERT INTO chunk_configs (document_id, config) VALUES ($1, $2)
ON CONFLICT (document_id) DO UPDATE SET config = EXCLUDED.config`, documentID, body)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "upserting chunk config")
	}
	return nil
}

// GetParseConfig loads a document's parse configuration.
func (r *Repository) GetParseConfig(ctx context.Context, tx *Tx, documentID uuid.UUID) (parser.Config, error) {
	var body []byte
	err := r.q(tx).QueryRow(ctx, `SELECT config FROM parse_configs WHERE document_id = $1`, documentID).Scan(&body)
	if err != nil {
		if isNotFound(err) {
			return parser.Config{}, apperr.New(apperr.DoesNotExist, "no parse config for document %s", documentID)
		}
		return parser.Config{}, apperr.Wrap(apperr.Provider, err, "loading parse config")
	}

	var cfg parser.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		return parser.Config{}, apperr.Wrap(apperr.Provider, err, "decoding parse config")
	}
	return cfg, nil
}

// GetChunkConfig loads a document's chunk configuration.
func (r *Repository) GetChunkConfig(ctx context.Context, tx *Tx, documentID uuid.UUID) (chunk.Config, error) {
	var body []byte
	err := r.q(tx).QueryRow(ctx, `SELECT config FROM chunk_configs WHERE document_id = $1`, documentID).Scan(&body)
	if err != nil {
		if isNotFound(err) {
			return chunk.Config{}, apperr.New(apperr.DoesNotExist, "no chunk config for document %s", documentID)
		}
		return chunk.Config{}, apperr.Wrap(apperr.Provider, err, "loading chunk config")
	}

	var cfg chunk.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		return chunk.Config{}, apperr.Wrap(apperr.Provider, err, "decoding chunk config")
	}
	return cfg, nil
}

// HasConfigs reports whether a document has both a parse and a chunk
// config on file, the condition tested by D3/Ready.
func (r *Repository) HasConfigs(ctx context.Context, tx *Tx, documentID uuid.UUID) (hasParse, hasChunk bool, err error) {
	err = r.q(tx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM parse_configs WHERE document_id = $1)`, documentID).Scan(&hasParse)
	if err != nil {
		return false, false, apperr.Wrap(apperr.Provider, err, "checking parse config presence")
	}
	err = r.q(tx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM chunk_configs WHERE document_id = $1)`, documentID).Scan(&hasChunk)
	if err != nil {
		return false, false, apperr.Wrap(apperr.Provider, err, "checking chunk config presence")
	}
	return hasParse, hasChunk, nil
}
