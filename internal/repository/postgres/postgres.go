package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/taskhub/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolIface is the subset of pgxpool.Pool the repositories depend on.
type PoolIface interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// uniqueViolation is the PostgreSQL class 23 code for unique constraint
// violations.
const uniqueViolation = "23505"

// mapWriteError converts driver-level errors into repository sentinels.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// TxManager adapts the pool to port.TxManager.
type TxManager struct {
	pool PoolIface
}

// NewTxManager wires a transaction manager over the pool.
func NewTxManager(pool PoolIface) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx implements port.TxManager.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return WithinTx(ctx, m.pool, fn)
}

// WithinTx runs fn inside a transaction, rolling back on error or panic.
// Cascading deletes (user plus owned tasks) go through here so the cascade is
// an explicit transactional step rather than a storage-engine side effect.
func WithinTx(ctx context.Context, pool PoolIface, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
