package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"shopflow/internal/model"
	"shopflow/internal/saga"

	"github.com/google/uuid"
)

type orders struct{ *Store }

func (o orders) Create(ctx context.Context, order *model.Order) error {
	if len(order.Lines) == 0 {
		return model.ErrEmptyOrder
	}

	stored := cloneOrder(*order)
	cell := &orderCell{order: stored}
	unlock := saga.Lock(ctx, &cell.mu)
	defer unlock()

	o.orderMu.Lock()
	if _, ok := o.orders[order.ID]; ok {
		o.orderMu.Unlock()
		return fmt.Errorf("order %s already exists", order.ID)
	}
	if _, ok := o.orderNos[order.OrderNo]; ok {
		o.orderMu.Unlock()
		return fmt.Errorf("order number %s already exists", order.OrderNo)
	}
	o.orders[order.ID] = cell
	o.orderNos[order.OrderNo] = order.ID
	o.orderMu.Unlock()

	// Runs while the unit still holds cell.mu.
	saga.Record(ctx, "delete order "+order.OrderNo, func(context.Context) error {
		o.orderMu.Lock()
		defer o.orderMu.Unlock()
		delete(o.orders, stored.ID)
		delete(o.orderNos, stored.OrderNo)
		cell.removed = true
		return nil
	})
	return nil
}

func (o orders) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	cell, ok := o.orderCell(id)
	if !ok {
		return nil, model.ErrOrderNotFound
	}

	unlock := saga.Peek(ctx, &cell.mu)
	defer unlock()
	if cell.removed {
		return nil, model.ErrOrderNotFound
	}
	order := cloneOrder(cell.order)
	return &order, nil
}

func (o orders) Transition(ctx context.Context, id uuid.UUID, t model.Transition) (*model.Order, error) {
	cell, ok := o.orderCell(id)
	if !ok {
		return nil, model.ErrOrderNotFound
	}

	unlock := saga.Lock(ctx, &cell.mu)
	defer unlock()
	if cell.removed {
		return nil, model.ErrOrderNotFound
	}
	if !t.Matches(&cell.order) {
		return nil, model.ErrStateConflict
	}
	previous := cloneOrder(cell.order)
	t.Apply(&cell.order, o.now())
	if t.Stamp == model.StampPaid {
		method := model.PaymentMethodBalance
		cell.order.PaymentMethod = &method
	}
	applied := cloneOrder(cell.order)

	saga.Record(ctx, fmt.Sprintf("restore order %s to %s", previous.OrderNo, previous.OrderStatus), func(context.Context) error {
		cell.order = previous
		return nil
	})
	return &applied, nil
}

func (o orders) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	filter.Normalise()

	o.orderMu.RLock()
	cells := make([]*orderCell, 0, len(o.orders))
	for _, cell := range o.orders {
		cells = append(cells, cell)
	}
	o.orderMu.RUnlock()

	var matched []model.Order
	for _, cell := range cells {
		unlock := saga.Peek(ctx, &cell.mu)
		order, removed := cell.order, cell.removed
		unlock()

		if removed {
			continue
		}
		if filter.UserID != 0 && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.OrderStatus != filter.Status {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}

	slices.SortFunc(matched, func(a, b model.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.PageSize, total)

	page := make([]model.Order, 0, end-start)
	page = append(page, matched[start:end]...)
	return page, total, nil
}

func cloneOrder(o model.Order) model.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}
