package repository

import (
	"context"
	"testing"
	"time"

	"shopflow/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(userID int64) *model.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	orderID := uuid.New()

	return &model.Order{
		ID:            orderID,
		OrderNo:       model.NewOrderNo(now),
		UserID:        userID,
		TotalAmount:   decimal.RequireFromString("21.00"),
		PaymentAmount: decimal.RequireFromString("21.00"),
		OrderStatus:   model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Delivery:      model.Delivery{Name: "Ada", Phone: "555-0100", Address: "1 Main St"},
		Remark:        "leave at door",
		CreatedAt:     now,
		UpdatedAt:     now,
		Lines: []model.OrderLine{
			{
				ID: uuid.New(), OrderID: orderID, LineNo: 1, ProductID: 1, ProductName: "Tea",
				UnitPrice: decimal.RequireFromString("4.50"), Quantity: 2, LineTotal: decimal.RequireFromString("9.00"),
			},
			{
				ID: uuid.New(), OrderID: orderID, LineNo: 2, ProductID: 2, ProductName: "Mug",
				UnitPrice: decimal.RequireFromString("12.00"), Quantity: 1, LineTotal: decimal.RequireFromString("12.00"),
			},
		},
	}
}

func TestOrderRepository_CreateAndGetByID(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder(7)
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.OrderNo, got.OrderNo)
	assert.Equal(t, int64(7), got.UserID)
	assert.True(t, got.TotalAmount.Equal(order.TotalAmount))
	assert.Equal(t, model.OrderStatusPending, got.OrderStatus)
	assert.Equal(t, model.PaymentStatusPending, got.PaymentStatus)
	assert.Equal(t, order.Delivery, got.Delivery)
	assert.Nil(t, got.PaidAt)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 1, got.Lines[0].LineNo)
	assert.Equal(t, "Tea", got.Lines[0].ProductName)
	assert.True(t, got.Lines[1].LineTotal.Equal(decimal.RequireFromString("12")))
}

func TestOrderRepository_CreateRejectsEmptyOrder(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())

	order := newTestOrder(7)
	order.Lines = nil

	assert.ErrorIs(t, repo.Create(context.Background(), order), model.ErrEmptyOrder)
}

func TestOrderRepository_CreateRejectsDuplicateOrderNo(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	first := newTestOrder(7)
	require.NoError(t, repo.Create(ctx, first))

	second := newTestOrder(7)
	second.OrderNo = first.OrderNo
	assert.Error(t, repo.Create(ctx, second))

	_, err := repo.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderRepository_GetByIDNotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())

	order, err := repo.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	assert.Nil(t, order)
}

func TestOrderRepository_Transition(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder(7)
	require.NoError(t, repo.Create(ctx, order))

	pay := model.Transition{
		FromOrder:   []model.OrderStatus{model.OrderStatusPending},
		FromPayment: []model.PaymentStatus{model.PaymentStatusPending},
		ToOrder:     model.OrderStatusPaid,
		ToPayment:   model.PaymentStatusPaid,
		Stamp:       model.StampPaid,
	}

	paid, err := repo.Transition(ctx, order.ID, pay)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, paid.OrderStatus)
	assert.Equal(t, model.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, model.PaymentMethodBalance, *paid.PaymentMethod)
	assert.Len(t, paid.Lines, 2)

	t.Run("Repeated transition conflicts", func(t *testing.T) {
		_, err := repo.Transition(ctx, order.ID, pay)
		assert.ErrorIs(t, err, model.ErrStateConflict)
	})

	t.Run("Unknown order is not found", func(t *testing.T) {
		_, err := repo.Transition(ctx, uuid.New(), pay)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("Transition without payment guard keeps payment status", func(t *testing.T) {
		ship := model.Transition{
			FromOrder: []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusConfirmed},
			ToOrder:   model.OrderStatusShipped,
			Stamp:     model.StampShipped,
		}

		shipped, err := repo.Transition(ctx, order.ID, ship)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusShipped, shipped.OrderStatus)
		assert.Equal(t, model.PaymentStatusPaid, shipped.PaymentStatus)
		assert.NotNil(t, shipped.ShippedAt)
		assert.NotNil(t, shipped.PaidAt)
	})
}

func TestOrderRepository_List(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	for range 3 {
		require.NoError(t, repo.Create(ctx, newTestOrder(7)))
	}
	require.NoError(t, repo.Create(ctx, newTestOrder(8)))

	tests := []struct {
		name      string
		filter    model.OrderFilter
		wantLen   int
		wantTotal int
	}{
		{name: "All orders", filter: model.OrderFilter{}, wantLen: 4, wantTotal: 4},
		{name: "One user's orders", filter: model.OrderFilter{UserID: 7}, wantLen: 3, wantTotal: 3},
		{name: "Paged", filter: model.OrderFilter{UserID: 7, Page: 2, PageSize: 2}, wantLen: 1, wantTotal: 3},
		{name: "By status", filter: model.OrderFilter{Status: model.OrderStatusPaid}, wantLen: 0, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, total, err := repo.List(ctx, tt.filter)

			require.NoError(t, err)
			assert.Len(t, orders, tt.wantLen)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
