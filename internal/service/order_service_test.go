package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopflow/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderMocks struct {
	tx      *MockTransactor
	orders  *MockOrderRepository
	catalog *MockCatalogRepository
	carts   *MockCartRepository
	stock   *MockStockLedger
	wallets *MockWalletLedger
	outbox  *MockOutboxRepository
}

func newMockedOrderService() (OrderService, *orderMocks) {
	m := &orderMocks{
		tx:      new(MockTransactor),
		orders:  new(MockOrderRepository),
		catalog: new(MockCatalogRepository),
		carts:   new(MockCartRepository),
		stock:   new(MockStockLedger),
		wallets: new(MockWalletLedger),
		outbox:  new(MockOutboxRepository),
	}
	m.tx.On("WithinTx", mock.Anything).Maybe()

	svc := NewOrderService(m.tx, m.orders, m.catalog, m.carts, m.stock, m.wallets, m.outbox, zerolog.Nop())
	return svc, m
}

func (m *orderMocks) assertExpectations(t *testing.T) {
	m.orders.AssertExpectations(t)
	m.catalog.AssertExpectations(t)
	m.carts.AssertExpectations(t)
	m.stock.AssertExpectations(t)
	m.wallets.AssertExpectations(t)
	m.outbox.AssertExpectations(t)
}

func validDelivery() model.Delivery {
	return model.Delivery{Name: "Ada", Phone: "555-0100", Address: "1 Main St"}
}

func pendingOrder(userID int64, amount string) *model.Order {
	return &model.Order{
		ID:            uuid.New(),
		OrderNo:       "ORD1700000000000ABCD",
		UserID:        userID,
		TotalAmount:   decimal.RequireFromString(amount),
		PaymentAmount: decimal.RequireFromString(amount),
		OrderStatus:   model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Lines: []model.OrderLine{
			{ProductID: 2, Quantity: 1},
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
	}
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	svc, m := newMockedOrderService()
	ctx := context.Background()

	req := &model.CreateOrderRequest{UserID: 7, CartLineIDs: []int64{11, 12}, Delivery: validDelivery()}

	m.carts.On("LoadLines", mock.Anything, []int64{11, 12}, int64(7)).Return([]model.CartLine{
		{ID: 11, UserID: 7, ProductID: 2, Quantity: 1},
		{ID: 12, UserID: 7, ProductID: 1, Quantity: 3},
	}, nil)
	m.catalog.On("LookupProducts", mock.Anything, []int64{2, 1}).Return(map[int64]model.Product{
		1: {ID: 1, Name: "Tea", SalePrice: decimal.RequireFromString("4.50"), StockQuantity: 5},
		2: {ID: 2, Name: "Mug", SalePrice: decimal.RequireFromString("8.00"),
			DiscountPrice: decimal.NewNullDecimal(decimal.RequireFromString("6.00")), StockQuantity: 1},
	}, nil)

	deleted := m.carts.On("DeleteLines", mock.Anything, []int64{11, 12}, int64(7)).Return(2, nil)

	var created *model.Order
	m.orders.On("Create", mock.Anything, mock.AnythingOfType("*model.Order")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*model.Order) }).
		Return(nil)
	reserve1 := m.stock.On("Reserve", mock.Anything, int64(1), 3).Return(nil).NotBefore(deleted)
	m.stock.On("Reserve", mock.Anything, int64(2), 1).Return(nil).NotBefore(reserve1)
	m.outbox.On("Append", mock.Anything, mock.MatchedBy(func(e model.OrderEvent) bool {
		return e.Type == model.EventOrderCreated
	})).Return(nil)

	result, err := svc.CreateOrder(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("19.5")))
	assert.Regexp(t, `^ORD\d{13}[0-9A-Z]{4}$`, result.OrderNo)

	require.NotNil(t, created)
	assert.Equal(t, result.OrderID, created.ID)
	assert.Equal(t, model.OrderStatusPending, created.OrderStatus)
	require.Len(t, created.Lines, 2)
	assert.Equal(t, "Mug", created.Lines[0].ProductName)
	assert.True(t, created.Lines[0].UnitPrice.Equal(decimal.RequireFromString("6")))
	assert.True(t, created.Lines[1].LineTotal.Equal(decimal.RequireFromString("13.5")))
	m.assertExpectations(t)
}

func TestOrderService_CreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     *model.CreateOrderRequest
		wantErr error
	}{
		{name: "Nil request", req: nil, wantErr: model.ErrInvalidRequest},
		{name: "No cart lines", req: &model.CreateOrderRequest{UserID: 7, Delivery: validDelivery()}, wantErr: model.ErrEmptyOrder},
		{
			name:    "Missing delivery address",
			req:     &model.CreateOrderRequest{UserID: 7, CartLineIDs: []int64{1}, Delivery: model.Delivery{Name: "Ada", Phone: "1"}},
			wantErr: model.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMockedOrderService()

			result, err := svc.CreateOrder(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
			m.carts.AssertNotCalled(t, "LoadLines", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_CartLinesOfAnotherUser(t *testing.T) {
	svc, m := newMockedOrderService()

	m.carts.On("LoadLines", mock.Anything, []int64{5}, int64(7)).Return([]model.CartLine{}, nil)

	_, err := svc.CreateOrder(context.Background(), &model.CreateOrderRequest{
		UserID: 7, CartLineIDs: []int64{5}, Delivery: validDelivery(),
	})

	assert.ErrorIs(t, err, model.ErrEmptyOrder)
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_UnknownProduct(t *testing.T) {
	svc, m := newMockedOrderService()

	m.carts.On("LoadLines", mock.Anything, []int64{5}, int64(7)).Return([]model.CartLine{
		{ID: 5, UserID: 7, ProductID: 99, Quantity: 1},
	}, nil)
	m.catalog.On("LookupProducts", mock.Anything, []int64{99}).Return(map[int64]model.Product{}, nil)

	_, err := svc.CreateOrder(context.Background(), &model.CreateOrderRequest{
		UserID: 7, CartLineIDs: []int64{5}, Delivery: validDelivery(),
	})

	assert.ErrorIs(t, err, model.ErrProductNotFound)
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_PreCheckSumsRepeatedProducts(t *testing.T) {
	svc, m := newMockedOrderService()

	m.carts.On("LoadLines", mock.Anything, []int64{1, 2}, int64(7)).Return([]model.CartLine{
		{ID: 1, UserID: 7, ProductID: 3, Quantity: 2},
		{ID: 2, UserID: 7, ProductID: 3, Quantity: 2},
	}, nil)
	m.catalog.On("LookupProducts", mock.Anything, []int64{3, 3}).Return(map[int64]model.Product{
		3: {ID: 3, Name: "Tea", SalePrice: decimal.NewFromInt(1), StockQuantity: 3},
	}, nil)

	_, err := svc.CreateOrder(context.Background(), &model.CreateOrderRequest{
		UserID: 7, CartLineIDs: []int64{1, 2}, Delivery: validDelivery(),
	})

	assert.ErrorIs(t, err, model.ErrInsufficientStock)
	m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestOrderService_CreateOrder_ReservationFailsAbortsUnitOfWork(t *testing.T) {
	svc, m := newMockedOrderService()

	m.carts.On("LoadLines", mock.Anything, []int64{1}, int64(7)).Return([]model.CartLine{
		{ID: 1, UserID: 7, ProductID: 3, Quantity: 2},
	}, nil)
	m.catalog.On("LookupProducts", mock.Anything, []int64{3}).Return(map[int64]model.Product{
		3: {ID: 3, Name: "Tea", SalePrice: decimal.NewFromInt(1), StockQuantity: 5},
	}, nil)
	m.carts.On("DeleteLines", mock.Anything, []int64{1}, int64(7)).Return(1, nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.stock.On("Reserve", mock.Anything, int64(3), 2).Return(model.ErrInsufficientStock)

	_, err := svc.CreateOrder(context.Background(), &model.CreateOrderRequest{
		UserID: 7, CartLineIDs: []int64{1}, Delivery: validDelivery(),
	})

	assert.ErrorIs(t, err, model.ErrInsufficientStock)
	m.outbox.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_CartLinesAlreadyOrdered(t *testing.T) {
	svc, m := newMockedOrderService()

	m.carts.On("LoadLines", mock.Anything, []int64{1, 2, 9}, int64(7)).Return([]model.CartLine{
		{ID: 1, UserID: 7, ProductID: 3, Quantity: 2},
		{ID: 2, UserID: 7, ProductID: 4, Quantity: 1},
	}, nil)
	m.catalog.On("LookupProducts", mock.Anything, []int64{3, 4}).Return(map[int64]model.Product{
		3: {ID: 3, Name: "Tea", SalePrice: decimal.NewFromInt(1), StockQuantity: 5},
		4: {ID: 4, Name: "Mug", SalePrice: decimal.NewFromInt(6), StockQuantity: 5},
	}, nil)
	// Another order claimed line 2 between loading and deleting.
	m.carts.On("DeleteLines", mock.Anything, []int64{1, 2}, int64(7)).Return(1, nil)

	_, err := svc.CreateOrder(context.Background(), &model.CreateOrderRequest{
		UserID: 7, CartLineIDs: []int64{1, 2, 9}, Delivery: validDelivery(),
	})

	assert.ErrorIs(t, err, model.ErrStateConflict)
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.stock.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	m.outbox.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestOrderService_PayOrder_Success(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "80.00")

	paid := *order
	paid.OrderStatus, paid.PaymentStatus = model.OrderStatusPaid, model.PaymentStatusPaid

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Transition", mock.Anything, order.ID, mock.MatchedBy(func(t model.Transition) bool {
		return t.ToOrder == model.OrderStatusPaid && t.Stamp == model.StampPaid
	})).Return(&paid, nil)
	m.wallets.On("Debit", mock.Anything, int64(7), order.PaymentAmount, mock.MatchedBy(func(ref model.LedgerReference) bool {
		return ref.Source == model.SourcePayment && ref.ReferenceID == order.OrderNo
	})).Return(&model.WalletLedgerEntry{}, nil)
	m.outbox.On("Append", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.PayOrder(context.Background(), order.ID, 7)

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, result.OrderStatus)
	m.assertExpectations(t)
}

func TestOrderService_PayOrder_NotOwner(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "80.00")

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	_, err := svc.PayOrder(context.Background(), order.ID, 8)

	assert.ErrorIs(t, err, model.ErrUnauthorised)
	m.orders.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
	m.wallets.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_PayOrder_AlreadyPaid(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "80.00")

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Transition", mock.Anything, order.ID, mock.Anything).Return(nil, model.ErrStateConflict)

	_, err := svc.PayOrder(context.Background(), order.ID, 7)

	assert.ErrorIs(t, err, model.ErrStateConflict)
	m.wallets.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_PayOrder_ZeroAmountSkipsDebit(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "0")

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Transition", mock.Anything, order.ID, mock.Anything).Return(order, nil)
	m.outbox.On("Append", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.PayOrder(context.Background(), order.ID, 7)

	require.NoError(t, err)
	m.wallets.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_PayOrder_UnexpectedErrorIsWrapped(t *testing.T) {
	svc, m := newMockedOrderService()
	errDB := errors.New("connection reset")
	id := uuid.New()

	m.orders.On("GetByID", mock.Anything, id).Return(nil, errDB)

	_, err := svc.PayOrder(context.Background(), id, 7)

	assert.ErrorIs(t, err, errDB)
	assert.Contains(t, err.Error(), "failed to pay order")
}

func TestOrderService_CancelOrder_PaidOrderIsRefunded(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "50.00")
	order.OrderStatus, order.PaymentStatus = model.OrderStatusPaid, model.PaymentStatusPaid

	cancelled := *order
	cancelled.OrderStatus, cancelled.PaymentStatus = model.OrderStatusCancelled, model.PaymentStatusRefunded

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Transition", mock.Anything, order.ID, model.Transition{
		FromOrder:   []model.OrderStatus{model.OrderStatusPending, model.OrderStatusPaid},
		FromPayment: []model.PaymentStatus{model.PaymentStatusPaid},
		ToOrder:     model.OrderStatusCancelled,
		ToPayment:   model.PaymentStatusRefunded,
		Stamp:       model.StampCancelled,
	}).Return(&cancelled, nil)
	release1 := m.stock.On("Release", mock.Anything, int64(1), 2).Return(nil)
	release2 := m.stock.On("Release", mock.Anything, int64(2), 4).Return(nil).NotBefore(release1)
	m.wallets.On("Credit", mock.Anything, int64(7), order.PaymentAmount, mock.MatchedBy(func(ref model.LedgerReference) bool {
		return ref.Source == model.SourceRefund
	})).Return(&model.WalletLedgerEntry{}, nil).NotBefore(release2)
	m.outbox.On("Append", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.CancelOrder(context.Background(), order.ID, model.Actor{UserID: 7})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, result.PaymentStatus)
	m.assertExpectations(t)
}

func TestOrderService_CancelOrder_PendingOrderIsNotRefunded(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "50.00")

	cancelled := *order
	cancelled.OrderStatus = model.OrderStatusCancelled

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Transition", mock.Anything, order.ID, mock.MatchedBy(func(t model.Transition) bool {
		return t.ToPayment == "" && t.FromPayment[0] == model.PaymentStatusPending
	})).Return(&cancelled, nil)
	m.stock.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.outbox.On("Append", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.CancelOrder(context.Background(), order.ID, model.Actor{UserID: 1, Permissions: []string{model.PermOrderManage}})

	require.NoError(t, err)
	m.wallets.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CancelOrder_ForeignActor(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "50.00")

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	_, err := svc.CancelOrder(context.Background(), order.ID, model.Actor{UserID: 8})

	assert.ErrorIs(t, err, model.ErrUnauthorised)
}

func TestOrderService_CancelOrder_CompensationFailureIsReported(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "50.00")

	compErr := fmt.Errorf("%w: release failed", model.ErrCompensationFailed)
	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Transition", mock.Anything, order.ID, mock.Anything).Return(order, nil)
	m.stock.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(compErr)

	_, err := svc.CancelOrder(context.Background(), order.ID, model.Actor{UserID: 7})

	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.KindCompensationFailed, kind)
}

func TestOrderService_ShipOrder(t *testing.T) {
	svc, m := newMockedOrderService()
	id := uuid.New()
	shipped := pendingOrder(7, "10")
	shipped.OrderStatus = model.OrderStatusShipped

	m.orders.On("Transition", mock.Anything, id, model.Transition{
		FromOrder: []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusConfirmed},
		ToOrder:   model.OrderStatusShipped,
		Stamp:     model.StampShipped,
	}).Return(shipped, nil)
	m.outbox.On("Append", mock.Anything, mock.MatchedBy(func(e model.OrderEvent) bool {
		return e.Type == model.EventOrderShipped
	})).Return(nil)

	result, err := svc.ShipOrder(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, result.OrderStatus)
	m.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestOrderService_ConfirmReceive(t *testing.T) {
	tests := []struct {
		name    string
		userID  int64
		wantErr error
	}{
		{name: "Owner confirms", userID: 7},
		{name: "Other user is rejected", userID: 8, wantErr: model.ErrUnauthorised},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMockedOrderService()
			order := pendingOrder(7, "10")
			order.OrderStatus = model.OrderStatusShipped

			delivered := *order
			delivered.OrderStatus = model.OrderStatusDelivered

			m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
			m.orders.On("Transition", mock.Anything, order.ID, mock.Anything).Return(&delivered, nil).Maybe()
			m.outbox.On("Append", mock.Anything, mock.Anything).Return(nil).Maybe()

			result, err := svc.ConfirmReceive(context.Background(), order.ID, tt.userID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				m.orders.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.OrderStatusDelivered, result.OrderStatus)
		})
	}
}

func TestOrderService_GetOrder(t *testing.T) {
	svc, m := newMockedOrderService()
	order := pendingOrder(7, "10")
	missing := uuid.New()

	m.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("GetByID", mock.Anything, missing).Return(nil, model.ErrOrderNotFound)
	ctx := context.Background()

	got, err := svc.GetOrder(ctx, order.ID, model.Actor{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.GetOrder(ctx, order.ID, model.Actor{UserID: 8})
	assert.ErrorIs(t, err, model.ErrUnauthorised)

	_, err = svc.GetOrder(ctx, order.ID, model.Actor{UserID: 8, Permissions: []string{model.PermOrderManage}})
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, missing, model.Actor{UserID: 7})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderService_ListOrders(t *testing.T) {
	svc, m := newMockedOrderService()
	now := time.Now()

	m.orders.On("List", mock.Anything, model.OrderFilter{UserID: 7, Page: 1, PageSize: 10}).
		Return([]model.Order{{ID: uuid.New(), CreatedAt: now}}, 21, nil)

	page, err := svc.ListOrders(context.Background(), model.OrderFilter{UserID: 7})

	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)
	assert.Equal(t, model.Page{Page: 1, PageSize: 10, Total: 21, TotalPages: 3}, page.Pagination)

	_, err = svc.ListOrders(context.Background(), model.OrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}
