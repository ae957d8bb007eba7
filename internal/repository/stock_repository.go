package repository

import (
	"context"
	"errors"
	"fmt"

	"shopflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// stockLedger implements the StockLedger interface using PostgreSQL.
type stockLedger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStockLedger creates a new PostgreSQL-backed stock ledger.
func NewStockLedger(pool *pgxpool.Pool, logger zerolog.Logger) StockLedger {
	return &stockLedger{
		pool:   pool,
		logger: logger.With().Str("repository", "stock").Logger(),
	}
}

// Reserve decrements stock with a conditional UPDATE, so the check and the write
// happen atomically in the database.
func (r *stockLedger) Reserve(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	db := conn(ctx, r.pool)

	tag, err := db.Exec(ctx, `
		UPDATE stock_levels
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE product_id = $1 AND quantity >= $2
	`, productID, qty)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", productID).Int("quantity", qty).Msg("failed to reserve stock")
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if err := r.ensureExists(ctx, db, productID); err != nil {
			return err
		}
		r.logger.Debug().Int64("product_id", productID).Int("quantity", qty).Msg("insufficient stock")
		return model.ErrInsufficientStock
	}

	return nil
}

// Release increments stock for a product that has a stock level.
func (r *stockLedger) Release(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE stock_levels
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE product_id = $1
	`, productID, qty)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", productID).Int("quantity", qty).Msg("failed to release stock")
		return fmt.Errorf("failed to release stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// Get returns the current stock level of a product.
func (r *stockLedger) Get(ctx context.Context, productID int64) (*model.StockLevel, error) {
	var level model.StockLevel
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT product_id, quantity, updated_at
		FROM stock_levels
		WHERE product_id = $1
	`, productID).Scan(&level.ProductID, &level.Quantity, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		r.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to query stock level")
		return nil, fmt.Errorf("failed to query stock level: %w", err)
	}

	return &level, nil
}

func (r *stockLedger) ensureExists(ctx context.Context, db DBTX, productID int64) error {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_levels WHERE product_id = $1)`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check stock level: %w", err)
	}
	if !exists {
		return model.ErrProductNotFound
	}
	return nil
}
