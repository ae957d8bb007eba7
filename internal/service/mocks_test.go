package service

import (
	"context"

	"shopflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockTransactor runs the unit of work inline.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Transition(ctx context.Context, id uuid.UUID, t model.Transition) (*model.Order, error) {
	args := m.Called(ctx, id, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Order), args.Int(1), args.Error(2)
}

// MockCatalogRepository is a mock implementation of CatalogRepository.
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) LookupProducts(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]model.Product), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) LoadLines(ctx context.Context, ids []int64, userID int64) ([]model.CartLine, error) {
	args := m.Called(ctx, ids, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) DeleteLines(ctx context.Context, ids []int64, userID int64) (int, error) {
	args := m.Called(ctx, ids, userID)
	return args.Int(0), args.Error(1)
}

// MockStockLedger is a mock implementation of StockLedger.
type MockStockLedger struct {
	mock.Mock
}

func (m *MockStockLedger) Reserve(ctx context.Context, productID int64, qty int) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *MockStockLedger) Release(ctx context.Context, productID int64, qty int) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *MockStockLedger) Get(ctx context.Context, productID int64) (*model.StockLevel, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StockLevel), args.Error(1)
}

// MockWalletLedger is a mock implementation of WalletLedger.
type MockWalletLedger struct {
	mock.Mock
}

func (m *MockWalletLedger) GetOrCreateAccount(ctx context.Context, userID int64) (*model.WalletAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletAccount), args.Error(1)
}

func (m *MockWalletLedger) Debit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error) {
	args := m.Called(ctx, userID, amount, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletLedgerEntry), args.Error(1)
}

func (m *MockWalletLedger) Credit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error) {
	args := m.Called(ctx, userID, amount, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletLedgerEntry), args.Error(1)
}

func (m *MockWalletLedger) ListEntries(ctx context.Context, userID int64, limit, offset int) ([]model.WalletLedgerEntry, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.WalletLedgerEntry), args.Int(1), args.Error(2)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Append(ctx context.Context, event model.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) Pending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}
