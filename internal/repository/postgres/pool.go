// Package postgres implements the user repository and the session snapshot
// store on a pgx connection pool.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the slice of *pgxpool.Pool that UserRepo and SnapshotRepo
// actually call. pgxmock's PgxPoolIface implements it too, which is what the
// repository tests run against.
type PgxPool interface {
	// QueryRow runs a single-row lookup (user by id or email).
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// Query streams usage records and conversations when loading a snapshot.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// Exec runs inserts and plan updates outside a transaction.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// BeginTx opens the transaction a snapshot save replaces state inside.
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	// Close releases the pool on shutdown.
	Close()
}

// DB bundles the pool handed to repository constructors.
type DB struct{ Pool PgxPool }

// New connects a pool for the given DSN.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// isUniqueViolation detects the duplicate-email insert, which Create maps to
// ErrAlreadyExists.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}
