package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txKey struct{}

// txFromContext returns the transaction started by WithinTx, if any.
func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// conn returns the ambient transaction when there is one, otherwise the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return pool
}

// pgTransactor implements Transactor on top of a PostgreSQL transaction.
type pgTransactor struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTransactor creates a Transactor that runs units of work in a database transaction.
func NewTransactor(pool *pgxpool.Pool, logger zerolog.Logger) Transactor {
	return &pgTransactor{
		pool:   pool,
		logger: logger.With().Str("component", "transactor").Logger(),
	}
}

// WithinTx runs fn in a transaction, committing if fn succeeds and rolling back
// otherwise. Nested calls join the outer transaction.
func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				t.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		t.logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// inTx runs fn on the ambient transaction or, without one, in a transaction of its own.
func inTx(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, fn func(ctx context.Context, db DBTX) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(ctx, tx)
	}
	return NewTransactor(pool, logger).WithinTx(ctx, func(ctx context.Context) error {
		tx, _ := txFromContext(ctx)
		return fn(ctx, tx)
	})
}
