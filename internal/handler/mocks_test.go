package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"shopflow/internal/middleware"
	"shopflow/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreateOrderResult), args.Error(1)
}

func (m *MockOrderService) PayOrder(ctx context.Context, orderID uuid.UUID, userID int64) (*model.Order, error) {
	return m.order(m.Called(ctx, orderID, userID))
}

func (m *MockOrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error) {
	return m.order(m.Called(ctx, orderID, actor))
}

func (m *MockOrderService) ShipOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockOrderService) ConfirmReceive(ctx context.Context, orderID uuid.UUID, userID int64) (*model.Order, error) {
	return m.order(m.Called(ctx, orderID, userID))
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error) {
	return m.order(m.Called(ctx, orderID, actor))
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderPage), args.Error(1)
}

func (m *MockOrderService) order(args mock.Arguments) (*model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockWalletService is a mock implementation of WalletService.
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetWallet(ctx context.Context, userID int64) (*model.WalletAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletAccount), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) (*model.LedgerPage, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LedgerPage), args.Error(1)
}

func (m *MockWalletService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*model.WalletLedgerEntry, error) {
	args := m.Called(ctx, userID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletLedgerEntry), args.Error(1)
}

// MockStockService is a mock implementation of StockService.
type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) GetStock(ctx context.Context, productID int64) (*model.StockLevel, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StockLevel), args.Error(1)
}

func (m *MockStockService) Restock(ctx context.Context, feeds []string) (*model.RestockResult, error) {
	args := m.Called(ctx, feeds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RestockResult), args.Error(1)
}

// newRequest builds a request as the router would hand it to a handler: with the
// caller's identity and the route's path parameters in its context.
func newRequest(method, target string, body io.Reader, actor *model.Actor, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	return req.WithContext(ctx)
}
