package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

const collectionColumns = `id, name, model, embedder_id, vector_db_id, groups, created_at, updated_at`

// InsertCollection inserts a new collection row. It fails with
// AlreadyExists when (name, vector_db_id) already exists (C1).
func (r *Repository) InsertCollection(ctx context.Context, tx *Tx, c Collection) error {
	_, err := r.q(tx).Exec(ctx, `
INSERT INTO collections (id, name, model, embedder_id, vector_db_id, groups, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		c.ID, c.Name, c.Model, c.EmbedderID, c.VectorDBID, c.Groups)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.AlreadyExists, err, "collection %q already exists on this vector db", c.Name)
		}
		return apperr.Wrap(apperr.Provider, err, "inserting collection")
	}
	return nil
}

func scanCollection(row rowScanner) (Collection, error) {
	var c Collection
	if err := row.Scan(&c.ID, &c.Name, &c.Model, &c.EmbedderID, &c.VectorDBID, &c.Groups, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if isNotFound(err) {
			return Collection{}, apperr.New(apperr.DoesNotExist, "collection not found")
		}
		return Collection{}, apperr.Wrap(apperr.Provider, err, "scanning collection")
	}
	return c, nil
}

// GetCollectionByID loads a collection by id.
func (r *Repository) GetCollectionByID(ctx context.Context, tx *Tx, id uuid.UUID) (Collection, error) {
	row := r.q(tx).QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id)
	return scanCollection(row)
}

// GetCollectionByNameProvider loads a collection by its (name,
// vector_db_id) pair (C1).
func (r *Repository) GetCollectionByNameProvider(ctx context.Context, tx *Tx, name, vectorDBID string) (Collection, error) {
	row := r.q(tx).QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE name = $1 AND vector_db_id = $2`, name, vectorDBID)
	return scanCollection(row)
}

// ListCollections lists collections with pagination and sort.
func (r *Repository) ListCollections(ctx context.Context, tx *Tx, pag Pagination, sort Sort) ([]Collection, error) {
	if err := pag.Validate(); err != nil {
		return nil, err
	}
	if err := sort.Validate(); err != nil {
		return nil, err
	}

	limit, offset := pag.LimitOffset()
	rows, err := r.q(tx).Query(ctx, `
SELECT `+collectionColumns+` FROM collections
ORDER BY `+sort.Clause()+`
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing collections")
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, wrapRowsErr(rows.Err(), "listing collections")
}

// ListCollectionsDisplay lists collections joined with their embedded
// document count.
func (r *Repository) ListCollectionsDisplay(ctx context.Context, tx *Tx, pag Pagination, sort Sort) ([]CollectionDisplay, error) {
	if err := pag.Validate(); err != nil {
		return nil, err
	}
	if err := sort.Validate(); err != nil {
		return nil, err
	}

	limit, offset := pag.LimitOffset()
	rows, err := r.q(tx).Query(ctx, `
SELECT c.id, c.name, c.model, c.embedder_id, c.vector_db_id, c.groups, c.created_at, c.updated_at,
       COUNT(e.id) AS document_count
FROM collections c
LEFT JOIN embeddings e ON e.collection_id = c.id
GROUP BY c.id
ORDER BY `+sort.Clause()+`
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing collection displays")
	}
	defer rows.Close()

	var out []CollectionDisplay
	for rows.Next() {
		var d CollectionDisplay
		if err := rows.Scan(&d.ID, &d.Name, &d.Model, &d.EmbedderID, &d.VectorDBID, &d.Groups, &d.CreatedAt, &d.UpdatedAt, &d.DocumentCount); err != nil {
			return nil, apperr.Wrap(apperr.Provider, err, "scanning collection display")
		}
		out = append(out, d)
	}
	return out, wrapRowsErr(rows.Err(), "listing collection displays")
}

// DeleteCollection deletes a collection row, cascading its embedding
// presence rows. It does not touch the vector store; callers are
// responsible for deleting the remote collection first or
// compensating on failure.
func (r *Repository) DeleteCollection(ctx context.Context, tx *Tx, id uuid.UUID) error {
	tag, err := r.q(tx).Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting collection")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.DoesNotExist, "collection %s not found", id)
	}
	return nil
}
