package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopflow/internal/model"
	"shopflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	tx      repository.Transactor
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
	carts   repository.CartRepository
	stock   repository.StockLedger
	wallets repository.WalletLedger
	outbox  repository.OutboxRepository
	logger  zerolog.Logger
	now     func() time.Time
}

// NewOrderService creates a new order workflow coordinator.
func NewOrderService(
	tx repository.Transactor,
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	carts repository.CartRepository,
	stock repository.StockLedger,
	wallets repository.WalletLedger,
	outbox repository.OutboxRepository,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		tx:      tx,
		orders:  orders,
		catalog: catalog,
		carts:   carts,
		stock:   stock,
		wallets: wallets,
		outbox:  outbox,
		logger:  logger.With().Str("service", "order").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder snapshots the user's cart lines into a new pending order and reserves
// stock for it.
func (s *orderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResult, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	cartLines, err := s.carts.LoadLines(ctx, req.CartLineIDs, req.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("failed to load cart lines")
		return nil, fmt.Errorf("failed to load cart lines: %w", err)
	}
	if len(cartLines) == 0 {
		s.logger.Warn().Int64("user_id", req.UserID).Msg("no cart lines to order")
		return nil, model.ErrEmptyOrder
	}

	productIDs := make([]int64, 0, len(cartLines))
	for _, line := range cartLines {
		if line.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.catalog.LookupProducts(ctx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to look up products")
		return nil, fmt.Errorf("failed to look up products: %w", err)
	}

	order, err := s.buildOrder(req, cartLines, products)
	if err != nil {
		return nil, err
	}

	// Optimistic pre-check; Reserve is the authoritative guard.
	ids, quantities := model.ProductQuantities(order.Lines)
	for _, id := range ids {
		if products[id].StockQuantity < quantities[id] {
			s.logger.Warn().
				Int64("product_id", id).
				Int("requested", quantities[id]).
				Int("available", products[id].StockQuantity).
				Msg("insufficient stock")
			return nil, model.ErrInsufficientStock
		}
	}

	lineIDs := make([]int64, 0, len(cartLines))
	for _, line := range cartLines {
		lineIDs = append(lineIDs, line.ID)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Claiming the lines first makes a concurrent order over the same lines lose.
		deleted, err := s.carts.DeleteLines(ctx, lineIDs, req.UserID)
		if err != nil {
			return err
		}
		if deleted != len(lineIDs) {
			s.logger.Warn().
				Int64("user_id", req.UserID).
				Int("expected", len(lineIDs)).
				Int("deleted", deleted).
				Msg("cart lines already ordered")
			return model.ErrStateConflict
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.stock.Reserve(ctx, id, quantities[id]); err != nil {
				return err
			}
		}
		return s.outbox.Append(ctx, model.NewOrderEvent(model.EventOrderCreated, order, order.CreatedAt))
	})
	if err != nil {
		return nil, s.fail("create", order.ID, err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_no", order.OrderNo).
		Int64("user_id", order.UserID).
		Str("total_amount", order.TotalAmount.String()).
		Int("line_count", len(order.Lines)).
		Msg("order created successfully")

	return &model.CreateOrderResult{
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		TotalAmount: order.TotalAmount,
	}, nil
}

// PayOrder marks the owner's pending order paid and debits its amount from the wallet.
// A repeated call fails with model.ErrStateConflict and never debits twice.
func (s *orderService) PayOrder(ctx context.Context, orderID uuid.UUID, userID int64) (*model.Order, error) {
	var paid *model.Order

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return model.ErrUnauthorised
		}

		paid, err = s.orders.Transition(ctx, orderID, model.Transition{
			FromOrder:   []model.OrderStatus{model.OrderStatusPending},
			FromPayment: []model.PaymentStatus{model.PaymentStatusPending},
			ToOrder:     model.OrderStatusPaid,
			ToPayment:   model.PaymentStatusPaid,
			Stamp:       model.StampPaid,
		})
		if err != nil {
			return err
		}

		if paid.PaymentAmount.IsPositive() {
			_, err = s.wallets.Debit(ctx, userID, paid.PaymentAmount, model.LedgerReference{
				Source:        model.SourcePayment,
				ReferenceType: model.ReferenceOrder,
				ReferenceID:   paid.OrderNo,
				Description:   "Payment for order " + paid.OrderNo,
			})
			if err != nil {
				return err
			}
		}

		return s.outbox.Append(ctx, model.NewOrderEvent(model.EventOrderPaid, paid, paid.UpdatedAt))
	})
	if err != nil {
		return nil, s.fail("pay", orderID, err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("order_no", paid.OrderNo).
		Str("amount", paid.PaymentAmount.String()).
		Msg("order paid")

	return paid, nil
}

// CancelOrder cancels a pending or paid order. A paid order is refunded in full to its
// owner. Every line's stock is released.
func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error) {
	var cancelled *model.Order

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(order.UserID) {
			return model.ErrUnauthorised
		}

		// The refund decision is taken on the observed payment status, so the
		// transition only applies if that status is still current.
		refund := order.PaymentStatus == model.PaymentStatusPaid
		t := model.Transition{
			FromOrder:   []model.OrderStatus{model.OrderStatusPending, model.OrderStatusPaid},
			FromPayment: []model.PaymentStatus{order.PaymentStatus},
			ToOrder:     model.OrderStatusCancelled,
			Stamp:       model.StampCancelled,
		}
		if refund {
			t.ToPayment = model.PaymentStatusRefunded
		}

		cancelled, err = s.orders.Transition(ctx, orderID, t)
		if err != nil {
			return err
		}

		// Stock before the wallet: units lock the order, then stock, then the wallet.
		ids, quantities := model.ProductQuantities(cancelled.Lines)
		for _, id := range ids {
			if err := s.stock.Release(ctx, id, quantities[id]); err != nil {
				return err
			}
		}

		if refund && cancelled.PaymentAmount.IsPositive() {
			_, err = s.wallets.Credit(ctx, cancelled.UserID, cancelled.PaymentAmount, model.LedgerReference{
				Source:        model.SourceRefund,
				ReferenceType: model.ReferenceOrder,
				ReferenceID:   cancelled.OrderNo,
				Description:   "Refund for cancelled order " + cancelled.OrderNo,
			})
			if err != nil {
				return err
			}
		}

		return s.outbox.Append(ctx, model.NewOrderEvent(model.EventOrderCancelled, cancelled, cancelled.UpdatedAt))
	})
	if err != nil {
		return nil, s.fail("cancel", orderID, err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("order_no", cancelled.OrderNo).
		Int64("actor_id", actor.UserID).
		Str("payment_status", string(cancelled.PaymentStatus)).
		Msg("order cancelled")

	return cancelled, nil
}

// ShipOrder marks a paid order shipped. Legacy confirmed orders may be shipped too.
func (s *orderService) ShipOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.advance(ctx, "ship", orderID, 0, model.Transition{
		FromOrder: []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusConfirmed},
		ToOrder:   model.OrderStatusShipped,
		Stamp:     model.StampShipped,
	}, model.EventOrderShipped)
}

// ConfirmReceive marks the owner's shipped order delivered.
func (s *orderService) ConfirmReceive(ctx context.Context, orderID uuid.UUID, userID int64) (*model.Order, error) {
	return s.advance(ctx, "receive", orderID, userID, model.Transition{
		FromOrder: []model.OrderStatus{model.OrderStatusShipped},
		ToOrder:   model.OrderStatusDelivered,
		Stamp:     model.StampDelivered,
	}, model.EventOrderDelivered)
}

// advance applies a transition that touches nothing but the order. A non-zero ownerID
// restricts it to the order's owner.
func (s *orderService) advance(ctx context.Context, op string, orderID uuid.UUID, ownerID int64, t model.Transition, event model.EventType) (*model.Order, error) {
	var order *model.Order

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if ownerID != 0 {
			current, err := s.orders.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			if current.UserID != ownerID {
				return model.ErrUnauthorised
			}
		}

		var err error
		order, err = s.orders.Transition(ctx, orderID, t)
		if err != nil {
			return err
		}

		return s.outbox.Append(ctx, model.NewOrderEvent(event, order, order.UpdatedAt))
	})
	if err != nil {
		return nil, s.fail(op, orderID, err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("order_no", order.OrderNo).
		Str("order_status", string(order.OrderStatus)).
		Msg("order status changed")

	return order, nil
}

// GetOrder returns the order if the actor owns it or manages orders.
func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if !errors.Is(err, model.ErrOrderNotFound) {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		}
		return nil, err
	}

	if !actor.CanAccess(order.UserID) {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Int64("actor_id", actor.UserID).
			Msg("actor may not access order")
		return nil, model.ErrUnauthorised
	}

	return order, nil
}

// ListOrders returns one page of orders matching filter.
func (s *orderService) ListOrders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", model.ErrInvalidRequest, filter.Status)
	}
	filter.Normalise()

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &model.OrderPage{
		Orders:     orders,
		Pagination: model.NewPage(filter.Page, filter.PageSize, total),
	}, nil
}

// buildOrder prices every cart line at the product's current effective price.
func (s *orderService) buildOrder(req *model.CreateOrderRequest, cartLines []model.CartLine, products map[int64]model.Product) (*model.Order, error) {
	now := s.now()
	order := &model.Order{
		ID:            uuid.New(),
		OrderNo:       model.NewOrderNo(now),
		UserID:        req.UserID,
		OrderStatus:   model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Delivery:      req.Delivery,
		Remark:        req.Remark,
		CreatedAt:     now,
		UpdatedAt:     now,
		Lines:         make([]model.OrderLine, 0, len(cartLines)),
	}

	total := decimal.Zero
	for i, cartLine := range cartLines {
		product, ok := products[cartLine.ProductID]
		if !ok {
			s.logger.Warn().Int64("product_id", cartLine.ProductID).Msg("product not found")
			return nil, model.ErrProductNotFound
		}

		price := product.EffectivePrice()
		lineTotal := price.Mul(decimal.NewFromInt(int64(cartLine.Quantity)))
		total = total.Add(lineTotal)

		order.Lines = append(order.Lines, model.OrderLine{
			ID:           uuid.New(),
			OrderID:      order.ID,
			LineNo:       i + 1,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			SpecName:     product.SpecName,
			UnitName:     product.UnitName,
			UnitPrice:    price,
			Quantity:     cartLine.Quantity,
			LineTotal:    lineTotal,
		})
	}

	order.TotalAmount = total
	order.PaymentAmount = total

	return order, nil
}

// validateCreateRequest validates the order request.
func (s *orderService) validateCreateRequest(req *model.CreateOrderRequest) error {
	if req == nil {
		return model.ErrInvalidRequest
	}

	if len(req.CartLineIDs) == 0 {
		return model.ErrEmptyOrder
	}

	if err := req.Delivery.Validate(); err != nil {
		s.logger.Warn().Int64("user_id", req.UserID).Msg("delivery details incomplete")
		return err
	}

	return nil
}

// fail logs a failed unit of work. A failed compensation leaves the order's stock or
// balance torn and is logged at fatal level for manual reconciliation.
func (s *orderService) fail(op string, orderID uuid.UUID, err error) error {
	kind, ok := model.KindOf(err)
	switch {
	case ok && kind == model.KindCompensationFailed:
		s.logger.WithLevel(zerolog.FatalLevel).
			Err(err).
			Str("operation", op).
			Str("order_id", orderID.String()).
			Msg("rollback incomplete, order requires manual reconciliation")
	case ok:
		s.logger.Warn().
			Err(err).
			Str("operation", op).
			Str("order_id", orderID.String()).
			Str("kind", string(kind)).
			Msg("order operation rejected")
	default:
		s.logger.Error().
			Err(err).
			Str("operation", op).
			Str("order_id", orderID.String()).
			Msg("order operation failed")
		return fmt.Errorf("failed to %s order: %w", op, err)
	}
	return err
}
