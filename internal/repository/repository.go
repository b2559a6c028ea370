package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// placeholder renders the nth (1-based) positional parameter marker
// for a query built up incrementally with string concatenation.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// querier is the subset of pgxpool.Pool and pgx.Tx used by this
// package's statements, letting every method run either directly
// against the pool or inside a caller-supplied transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the relational metadata store described by the
// system's component design: documents, collections, embedding
// presence rows, their configs, and embedding reports.
type Repository struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Tx is an open transaction handle. Every mutating method in this
// package accepts an optional *Tx; a nil Tx runs directly against the
// pool.
type Tx struct {
	pgx pgx.Tx
}

// Begin opens a new transaction.
func (r *Repository) Begin(ctx context.Context) (*Tx, error) {
	pgxTx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "beginning transaction")
	}
	return &Tx{pgx: pgxTx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.pgx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.Provider, err, "committing transaction")
	}
	return nil
}

// Abort rolls the transaction back. Calling Abort after a successful
// Commit is a no-op that returns nil, so it can be deferred
// unconditionally.
func (t *Tx) Abort(ctx context.Context) error {
	if err := t.pgx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperr.Wrap(apperr.Provider, err, "aborting transaction")
	}
	return nil
}

func (r *Repository) q(tx *Tx) querier {
	if tx != nil {
		return tx.pgx
	}
	return r.pool
}

// isUniqueViolation reports whether err is a Postgres unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// wrapRowsErr translates a post-iteration rows.Err() check into the
// taxonomy, returning nil when there was nothing wrong.
func wrapRowsErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.Provider, err, format, args...)
}
