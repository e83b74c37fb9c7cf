package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// Querier is the subset of pgx operations the repositories need. Both
// pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxTransactor runs functions inside a database transaction carried in the
// context. Nested calls join the ambient transaction instead of opening a new
// one, so a service can compose repository calls into one atomic unit.
type PgxTransactor struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewPgxTransactor creates a transactor backed by the given pool. Transactions
// run at REPEATABLE READ: the capacity check and the hold sum must read one
// snapshot, and a conflicting commit (a hold converted mid-check) then fails
// with a serialization error the service layer retries.
func NewPgxTransactor(pool *pgxpool.Pool) *PgxTransactor {
	return &PgxTransactor{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.RepeatableRead},
	}
}

// WithTx executes fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (t *PgxTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, t.opts)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// querier returns the ambient transaction if one is in flight, else the pool.
func querier(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsSerializationFailure reports whether the error is a transient transaction
// conflict (serialization failure or deadlock) that the caller may retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
