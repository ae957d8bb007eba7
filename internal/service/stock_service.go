package service

import (
	"context"
	"errors"
	"fmt"

	"shopflow/internal/model"
	"shopflow/internal/repository"

	"github.com/rs/zerolog"
)

// Restocker applies bulk restock feeds.
type Restocker interface {
	Import(ctx context.Context, paths []string) (*model.RestockResult, error)
}

// stockService implements StockService.
type stockService struct {
	stock     repository.StockLedger
	restocker Restocker
	logger    zerolog.Logger
}

// NewStockService creates a new stock service.
func NewStockService(stock repository.StockLedger, restocker Restocker, logger zerolog.Logger) StockService {
	return &stockService{
		stock:     stock,
		restocker: restocker,
		logger:    logger.With().Str("service", "stock").Logger(),
	}
}

func (s *stockService) GetStock(ctx context.Context, productID int64) (*model.StockLevel, error) {
	level, err := s.stock.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to get stock level")
		return nil, fmt.Errorf("failed to get stock level: %w", err)
	}
	return level, nil
}

func (s *stockService) Restock(ctx context.Context, feeds []string) (*model.RestockResult, error) {
	result, err := s.restocker.Import(ctx, feeds)
	if err != nil {
		if _, ok := model.KindOf(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to restock: %w", err)
	}
	return result, nil
}
