package memory

import (
	"context"
	"fmt"

	"shopflow/internal/model"
	"shopflow/internal/saga"
)

type stock struct{ *Store }

func (s stock) Reserve(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	cell, ok := s.stockCell(productID)
	if !ok {
		return model.ErrProductNotFound
	}

	unlock := saga.Lock(ctx, &cell.mu)
	defer unlock()
	if cell.quantity < qty {
		return model.ErrInsufficientStock
	}
	cell.quantity -= qty
	cell.updatedAt = s.now()

	saga.Record(ctx, fmt.Sprintf("release %d of product %d", qty, productID), func(context.Context) error {
		cell.quantity += qty
		cell.updatedAt = s.now()
		return nil
	})
	return nil
}

func (s stock) Release(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	cell, ok := s.stockCell(productID)
	if !ok {
		return model.ErrProductNotFound
	}

	unlock := saga.Lock(ctx, &cell.mu)
	defer unlock()
	cell.quantity += qty
	cell.updatedAt = s.now()

	saga.Record(ctx, fmt.Sprintf("take back %d of product %d", qty, productID), func(context.Context) error {
		cell.quantity -= qty
		cell.updatedAt = s.now()
		return nil
	})
	return nil
}

func (s stock) Get(ctx context.Context, productID int64) (*model.StockLevel, error) {
	cell, ok := s.stockCell(productID)
	if !ok {
		return nil, model.ErrProductNotFound
	}

	unlock := saga.Peek(ctx, &cell.mu)
	defer unlock()
	return &model.StockLevel{ProductID: productID, Quantity: cell.quantity, UpdatedAt: cell.updatedAt}, nil
}
