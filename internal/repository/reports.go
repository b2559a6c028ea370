package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// InsertReport appends a report row. Reports are immutable and
// FK-free: the collection and document fields are denormalized names
// so the row survives deletion of either subject.
func (r *Repository) InsertReport(ctx context.Context, tx *Tx, rep Report) error {
	_, err := r.q(tx).Exec(ctx, `
INSERT INTO embedding_reports
    (id, kind, collection, document, embedder_id, model, vector_db_id, total_vectors, tokens_used, cache_hit, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rep.ID, rep.Kind, rep.Collection, rep.Document, rep.EmbedderID, rep.Model, rep.VectorDBID,
		rep.TotalVectors, rep.TokensUsed, rep.CacheHit, rep.StartedAt, rep.FinishedAt)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "inserting report")
	}
	return nil
}

// ListReportsParams filters ListReports.
type ListReportsParams struct {
	Pagination Pagination
	Collection *string
	Document   *string
}

// ListReports lists reports ordered by finished_at, most recent
// first, with an optional collection and/or document name filter.
func (r *Repository) ListReports(ctx context.Context, tx *Tx, p ListReportsParams) ([]Report, error) {
	if err := p.Pagination.Validate(); err != nil {
		return nil, err
	}

	query := `
SELECT id, kind, collection, document, embedder_id, model, vector_db_id, total_vectors, tokens_used, cache_hit, started_at, finished_at
FROM embedding_reports
WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if p.Collection != nil {
		query += ` AND collection = ` + arg(*p.Collection)
	}
	if p.Document != nil {
		query += ` AND document = ` + arg(*p.Document)
	}

	limit, offset := p.Pagination.LimitOffset()
	query += ` ORDER BY finished_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.q(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing reports")
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.Kind, &rep.Collection, &rep.Document, &rep.EmbedderID, &rep.Model,
			&rep.VectorDBID, &rep.TotalVectors, &rep.TokensUsed, &rep.CacheHit, &rep.StartedAt, &rep.FinishedAt); err != nil {
			return nil, apperr.Wrap(apperr.Provider, err, "scanning report")
		}
		out = append(out, rep)
	}
	return out, wrapRowsErr(rows.Err(), "listing reports")
}

// GetReportByID loads a single report.
func (r *Repository) GetReportByID(ctx context.Context, tx *Tx, id uuid.UUID) (Report, error) {
	var rep Report
	err := r.q(tx).QueryRow(ctx, `
SELECT id, kind, collection, document, embedder_id, model, vector_db_id, total_vectors, tokens_used, cache_hit, started_at, finished_at
FROM embedding_reports WHERE id = $1`, id).Scan(
		&rep.ID, &rep.Kind, &rep.Collection, &rep.Document, &rep.EmbedderID, &rep.Model,
		&rep.VectorDBID, &rep.TotalVectors, &rep.TokensUsed, &rep.CacheHit, &rep.StartedAt, &rep.FinishedAt)
	if err != nil {
		if isNotFound(err) {
			return Report{}, apperr.New(apperr.DoesNotExist, "report %s not found", id)
		}
		return Report{}, apperr.Wrap(apperr.Provider, err, "loading report")
	}
	return rep, nil
}
