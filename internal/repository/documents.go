package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/vectorkit/vectorkit/internal/apperr"
	"github.com/vectorkit/vectorkit/internal/chunk"
	"github.com/vectorkit/vectorkit/internal/parser"
)

const documentColumns = `id, name, path, ext, hash, source, label, tags, created_at, updated_at`

// InsertDocument inserts a single document row. It fails with
// AlreadyExists on a hash collision (D1) or a (path, source)
// collision (D2).
func (r *Repository) InsertDocument(ctx context.Context, tx *Tx, doc Document) error {
	_, err := r.q(tx).Exec(ctx, `
INSERT INTO documents (id, name, path, ext, hash, source, label, tags, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		doc.ID, doc.Name, doc.Path, doc.Ext, doc.Hash, doc.Source, doc.Label, doc.Tags)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.AlreadyExists, err, "document with this hash or (path, source) already exists")
		}
		return apperr.Wrap(apperr.Provider, err, "inserting document")
	}
	return nil
}

// InsertDocumentWithConfigs inserts a document along with its default
// parse and chunk configs as a single atomic unit (D3). If tx is nil,
// an internal transaction is opened and committed around all three
// inserts so the configs can never be observed without their
// document or vice versa; if tx is supplied, the inserts join the
// caller's transaction instead.
func (r *Repository) InsertDocumentWithConfigs(ctx context.Context, tx *Tx, doc Document, parseCfg parser.Config, chunkCfg chunk.Config) error {
	if tx != nil {
		return r.insertDocumentWithConfigs(ctx, tx, doc, parseCfg, chunkCfg)
	}

	owned, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = owned.Abort(ctx) }()

	if err := r.insertDocumentWithConfigs(ctx, owned, doc, parseCfg, chunkCfg); err != nil {
		return err
	}
	return owned.Commit(ctx)
}

func (r *Repository) insertDocumentWithConfigs(ctx context.Context, tx *Tx, doc Document, parseCfg parser.Config, chunkCfg chunk.Config) error {
	if err := r.InsertDocument(ctx, tx, doc); err != nil {
		return err
	}
	if err := r.UpsertParseConfig(ctx, tx, doc.ID, parseCfg); err != nil {
		return err
	}
	if err := r.UpsertChunkConfig(ctx, tx, doc.ID, chunkCfg); err != nil {
		return err
	}
	return nil
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	if err := row.Scan(&d.ID, &d.Name, &d.Path, &d.Ext, &d.Hash, &d.Source, &d.Label, &d.Tags, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if isNotFound(err) {
			return Document{}, apperr.New(apperr.DoesNotExist, "document not found")
		}
		return Document{}, apperr.Wrap(apperr.Provider, err, "scanning document")
	}
	return d, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetDocumentByID loads a document by id.
func (r *Repository) GetDocumentByID(ctx context.Context, tx *Tx, id uuid.UUID) (Document, error) {
	row := r.q(tx).QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// GetDocumentByHash loads a document by content hash.
func (r *Repository) GetDocumentByHash(ctx context.Context, tx *Tx, hash string) (Document, error) {
	row := r.q(tx).QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE hash = $1`, hash)
	return scanDocument(row)
}

// GetDocumentByPathSource loads a document by its (path, source) pair.
func (r *Repository) GetDocumentByPathSource(ctx context.Context, tx *Tx, path, source string) (Document, error) {
	row := r.q(tx).QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE path = $1 AND source = $2`, path, source)
	return scanDocument(row)
}

// ListDocumentsParams controls ListDocuments filtering.
type ListDocumentsParams struct {
	Pagination Pagination
	Sort       Sort
	Source     *string
	// Ready, when non-nil, filters to documents that do (true) or do
	// not (false) have both a parse and a chunk config on file.
	Ready *bool
}

// ListDocuments lists documents with pagination, sort, an optional
// source filter, and an optional "ready" filter.
func (r *Repository) ListDocuments(ctx context.Context, tx *Tx, p ListDocumentsParams) ([]Document, error) {
	if err := p.Pagination.Validate(); err != nil {
		return nil, err
	}
	if err := p.Sort.Validate(); err != nil {
		return nil, err
	}

	query := `
SELECT d.id, d.name, d.path, d.ext, d.hash, d.source, d.label, d.tags, d.created_at, d.updated_at
FROM documents d
WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if p.Source != nil {
		query += ` AND d.source = ` + arg(*p.Source)
	}
	if p.Ready != nil {
		readyClause := `EXISTS (SELECT 1 FROM parse_configs pc WHERE pc.document_id = d.id)
		  AND EXISTS (SELECT 1 FROM chunk_configs cc WHERE cc.document_id = d.id)`
		if *p.Ready {
			query += ` AND ` + readyClause
		} else {
			query += ` AND NOT (` + readyClause + `)`
		}
	}

	limit, offset := p.Pagination.LimitOffset()
	query += ` ORDER BY ` + p.Sort.Clause() + ` LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.q(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing documents")
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, wrapRowsErr(rows.Err(), "listing documents")
}

// ListDocumentsWithCollections lists documents joined with the names
// of every collection each has been embedded into.
func (r *Repository) ListDocumentsWithCollections(ctx context.Context, tx *Tx, p ListDocumentsParams) ([]DocumentWithCollections, error) {
	docs, err := r.ListDocuments(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentWithCollections, 0, len(docs))
	for _, d := range docs {
		rows, err := r.q(tx).Query(ctx, `
SELECT c.name FROM collections c
JOIN embeddings e ON e.collection_id = c.id
WHERE e.document_id = $1
ORDER BY c.name`, d.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Provider, err, "listing collections for document")
		}
		var names []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, apperr.Wrap(apperr.Provider, err, "scanning collection name")
			}
			names = append(names, name)
		}
		rows.Close()
		out = append(out, DocumentWithCollections{Document: d, Collections: names})
	}
	return out, nil
}

// UpdateDocumentMetadata updates a document's label and tags.
func (r *Repository) UpdateDocumentMetadata(ctx context.Context, tx *Tx, id uuid.UUID, label *string, tags []string) error {
	tag, err := r.q(tx).Exec(ctx, `
UPDATE documents SET label = $2, tags = $3, updated_at = NOW() WHERE id = $1`, id, label, tags)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "updating document metadata")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.DoesNotExist, "document %s not found", id)
	}
	return nil
}

// UpdateDocumentPathHash updates a document's path and hash, used by
// upload's overwrite path.
func (r *Repository) UpdateDocumentPathHash(ctx context.Context, tx *Tx, id uuid.UUID, path, hash string) error {
	tag, err := r.q(tx).Exec(ctx, `
UPDATE documents SET path = $2, hash = $3, updated_at = NOW() WHERE id = $1`, id, path, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.AlreadyExists, err, "path or hash already in use")
		}
		return apperr.Wrap(apperr.Provider, err, "updating document path/hash")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.DoesNotExist, "document %s not found", id)
	}
	return nil
}

// DeleteDocument deletes a document row, cascading its configs and
// embedding rows.
func (r *Repository) DeleteDocument(ctx context.Context, tx *Tx, id uuid.UUID) error {
	tag, err := r.q(tx).Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting document")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.DoesNotExist, "document %s not found", id)
	}
	return nil
}

// marshalJSON is a small helper shared by the config upserts.
func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "serializing config")
	}
	return b, nil
}
