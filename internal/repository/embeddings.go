package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

const embeddingColumns = `id, document_id, collection_id, created_at, updated_at`

// InsertEmbedding records that a document has been embedded into a
// collection. It fails with AlreadyExists if the (document,
// collection) pair already has an embedding on file (E1).
func (r *Repository) InsertEmbedding(ctx context.Context, tx *Tx, e Embedding) error {
	_, err := r.q(tx).Exec(ctx, `
INSERT INTO embeddings (id, document_id, collection_id, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())`, e.ID, e.DocumentID, e.CollectionID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.AlreadyExists, err, "document already embedded into this collection")
		}
		return apperr.Wrap(apperr.Provider, err, "inserting embedding")
	}
	return nil
}

// TouchEmbedding bumps an embedding's created_at and updated_at to
// now, so ListOutdatedEmbeddings no longer reports it. No service in
// this module calls it.
func (r *Repository) TouchEmbedding(ctx context.Context, tx *Tx, documentID, collectionID uuid.UUID) error {
	tag, err := r.q(tx).Exec(ctx, `
UPDATE embeddings SET created_at = NOW(), updated_at = NOW()
WHERE document_id = $1 AND collection_id = $2`, documentID, collectionID)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "touching embedding")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.DoesNotExist, "embedding for document %s in collection %s not found", documentID, collectionID)
	}
	return nil
}

func scanEmbedding(row rowScanner) (Embedding, error) {
	var e Embedding
	if err := row.Scan(&e.ID, &e.DocumentID, &e.CollectionID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if isNotFound(err) {
			return Embedding{}, apperr.New(apperr.DoesNotExist, "embedding not found")
		}
		return Embedding{}, apperr.Wrap(apperr.Provider, err, "scanning embedding")
	}
	return e, nil
}

// ListEmbeddingsByCollection lists every embedding presence row for a
// collection.
func (r *Repository) ListEmbeddingsByCollection(ctx context.Context, tx *Tx, collectionID uuid.UUID) ([]Embedding, error) {
	rows, err := r.q(tx).Query(ctx, `SELECT `+embeddingColumns+` FROM embeddings WHERE collection_id = $1`, collectionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing embeddings")
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, wrapRowsErr(rows.Err(), "listing embeddings")
}

// ListEmbeddingsByDocument lists every embedding presence row for a
// document, one per collection it has been embedded into.
func (r *Repository) ListEmbeddingsByDocument(ctx context.Context, tx *Tx, documentID uuid.UUID) ([]Embedding, error) {
	rows, err := r.q(tx).Query(ctx, `SELECT `+embeddingColumns+` FROM embeddings WHERE document_id = $1`, documentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing embeddings")
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, wrapRowsErr(rows.Err(), "listing embeddings")
}

// ListOutdatedEmbeddings returns every embedding in a collection whose
// created_at predates its document's updated_at (E3), the set a sync
// routine must re-embed.
func (r *Repository) ListOutdatedEmbeddings(ctx context.Context, tx *Tx, collectionID uuid.UUID) ([]Embedding, error) {
	rows, err := r.q(tx).Query(ctx, `
SELECT e.id, e.document_id, e.collection_id, e.created_at, e.updated_at
FROM embeddings e
JOIN documents d ON d.id = e.document_id
WHERE e.collection_id = $1 AND e.created_at < d.updated_at`, collectionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing outdated embeddings")
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, wrapRowsErr(rows.Err(), "listing outdated embeddings")
}

// DeleteEmbedding removes a single embedding presence row.
func (r *Repository) DeleteEmbedding(ctx context.Context, tx *Tx, documentID, collectionID uuid.UUID) error {
	tag, err := r.q(tx).Exec(ctx, `DELETE FROM embeddings WHERE document_id = $1 AND collection_id = $2`, documentID, collectionID)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting embedding")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.DoesNotExist, "embedding for document %s in collection %s not found", documentID, collectionID)
	}
	return nil
}

// DeleteEmbeddingsByCollection removes every embedding presence row
// for a collection, used when a collection is dropped (E2).
func (r *Repository) DeleteEmbeddingsByCollection(ctx context.Context, tx *Tx, collectionID uuid.UUID) error {
	_, err := r.q(tx).Exec(ctx, `DELETE FROM embeddings WHERE collection_id = $1`, collectionID)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting embeddings for collection")
	}
	return nil
}

// CountEmbeddings counts the embeddings recorded for a collection.
func (r *Repository) CountEmbeddings(ctx context.Context, tx *Tx, collectionID uuid.UUID) (int, error) {
	var count int
	err := r.q(tx).QueryRow(ctx, `SELECT COUNT(*) FROM embeddings WHERE collection_id = $1`, collectionID).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.Provider, err, "counting embeddings")
	}
	return count, nil
}
