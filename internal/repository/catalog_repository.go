package repository

import (
	"context"
	"fmt"

	"shopflow/internal/model"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// catalogRepository implements the CatalogRepository interface using PostgreSQL.
type catalogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogRepository creates a new PostgreSQL-backed catalogue repository.
func NewCatalogRepository(pool *pgxpool.Pool, logger zerolog.Logger) CatalogRepository {
	return &catalogRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "catalog").Logger(),
	}
}

// LookupProducts retrieves multiple products by their IDs together with their stock.
func (r *catalogRepository) LookupProducts(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	if len(ids) == 0 {
		return map[int64]model.Product{}, nil
	}

	query := `
		SELECT p.id, p.name, p.image, p.spec_name, p.unit_name, p.sale_price, p.discount_price,
		       COALESCE(s.quantity, 0)
		FROM products p
		LEFT JOIN stock_levels s ON s.product_id = p.id
		WHERE p.id = ANY($1)
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]model.Product, len(ids))
	for rows.Next() {
		var (
			p              model.Product
			sale, discount pgtype.Numeric
		)
		err := rows.Scan(&p.ID, &p.Name, &p.Image, &p.SpecName, &p.UnitName, &sale, &discount, &p.StockQuantity)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.SalePrice = toDecimal(sale)
		p.DiscountPrice = toNullDecimal(discount)
		products[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if len(products) != len(ids) {
		r.logger.Debug().
			Int("expected", len(ids)).
			Int("found", len(products)).
			Msg("not all product IDs exist")
	}

	return products, nil
}
