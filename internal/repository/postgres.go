package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/database"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTransaction runs fn in a read-committed transaction. Lock* queries use
// SELECT ... FOR UPDATE so concurrent transitions on one aggregate serialise.
func (s *PostgresStore) InTransaction(ctx context.Context, fn func(q Queries) error) error {
	return s.db.InTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&pgQueries{db: tx})
	})
}

// View runs fn directly on the pool.
func (s *PostgresStore) View(ctx context.Context, fn func(q Queries) error) error {
	return fn(&pgQueries{db: s.db.Pool})
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

type pgQueries struct {
	db querier
}

// notFoundOr maps pgx.ErrNoRows to NotFound and wraps anything else.
func notFoundOr(err error, resource, id, action string) error {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.NotFound(resource, id)
	}
	return errors.Wrap(err, errors.ErrCodeInternal, action)
}

// uniqueViolation reports a unique constraint failure.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, errors.ErrCodeInternal, "failed to parse stored amount")
	}
	return d, nil
}

func limitClause(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
