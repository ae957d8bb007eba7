package memory

import (
	"cmp"
	"context"
	"slices"

	"shopflow/internal/model"
	"shopflow/internal/saga"
)

type catalog struct{ *Store }

func (c catalog) LookupProducts(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	c.catalogMu.RLock()
	products := make(map[int64]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			products[id] = p
		}
	}
	c.catalogMu.RUnlock()

	for id, p := range products {
		if cell, ok := c.stockCell(id); ok {
			unlock := saga.Peek(ctx, &cell.mu)
			p.StockQuantity = cell.quantity
			unlock()
			products[id] = p
		}
	}
	return products, nil
}

type carts struct{ *Store }

func (c carts) LoadLines(_ context.Context, ids []int64, userID int64) ([]model.CartLine, error) {
	c.cartMu.Lock()
	defer c.cartMu.Unlock()

	lines := []model.CartLine{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		line, ok := c.cartLines[id]
		if !ok || line.UserID != userID || seen[id] {
			continue
		}
		seen[id] = true
		lines = append(lines, line)
	}
	slices.SortFunc(lines, func(a, b model.CartLine) int { return cmp.Compare(a.ID, b.ID) })
	return lines, nil
}

func (c carts) DeleteLines(ctx context.Context, ids []int64, userID int64) (int, error) {
	c.cartMu.Lock()
	defer c.cartMu.Unlock()

	var removed []model.CartLine
	for _, id := range ids {
		if line, ok := c.cartLines[id]; ok && line.UserID == userID {
			removed = append(removed, line)
			delete(c.cartLines, id)
		}
	}

	if len(removed) > 0 {
		saga.Record(ctx, "restore cart lines", func(context.Context) error {
			c.cartMu.Lock()
			defer c.cartMu.Unlock()
			for _, line := range removed {
				c.cartLines[line.ID] = line
			}
			return nil
		})
	}
	return len(removed), nil
}
