package repository

import (
	"context"
	"fmt"

	"shopflow/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// LoadLines returns the user's cart lines among ids, ordered by line ID.
func (r *cartRepository) LoadLines(ctx context.Context, ids []int64, userID int64) ([]model.CartLine, error) {
	if len(ids) == 0 {
		return []model.CartLine{}, nil
	}

	query := `
		SELECT id, user_id, product_id, quantity
		FROM cart_lines
		WHERE id = ANY($1) AND user_id = $2
		ORDER BY id
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, ids, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query cart lines")
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var line model.CartLine
		if err := rows.Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart line row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart line rows")
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// DeleteLines removes the user's cart lines among ids. A line another transaction
// deleted concurrently is not counted.
func (r *cartRepository) DeleteLines(ctx context.Context, ids []int64, userID int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM cart_lines WHERE id = ANY($1) AND user_id = $2`, ids, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to delete cart lines")
		return 0, fmt.Errorf("failed to delete cart lines: %w", err)
	}

	r.logger.Debug().
		Int64("user_id", userID).
		Int64("deleted", tag.RowsAffected()).
		Msg("cart lines deleted")

	return int(tag.RowsAffected()), nil
}
