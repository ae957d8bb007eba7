package service

import (
	"context"

	"shopflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService coordinates the order lifecycle across the order store, the stock
// ledger and the wallet ledger. Every operation is one all-or-nothing unit of work.
type OrderService interface {
	// CreateOrder turns the user's cart lines into a pending order and reserves its stock.
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResult, error)

	// PayOrder debits the owner's wallet and marks a pending order paid.
	PayOrder(ctx context.Context, orderID uuid.UUID, userID int64) (*model.Order, error)

	// CancelOrder cancels a pending or paid order, refunding and releasing stock as needed.
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error)

	// ShipOrder marks a paid order shipped.
	ShipOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)

	// ConfirmReceive marks a shipped order delivered on behalf of its owner.
	ConfirmReceive(ctx context.Context, orderID uuid.UUID, userID int64) (*model.Order, error)

	// GetOrder returns an order the actor may see.
	GetOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error)

	// ListOrders returns one page of orders, newest first.
	ListOrders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error)
}

// WalletService exposes wallet balances and history.
type WalletService interface {
	// GetWallet returns the user's account, opening an empty one on first access.
	GetWallet(ctx context.Context, userID int64) (*model.WalletAccount, error)

	// ListTransactions returns one page of the user's ledger, newest first.
	ListTransactions(ctx context.Context, userID int64, page, pageSize int) (*model.LedgerPage, error)

	// Deposit credits the user's wallet as an administrative top-up.
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*model.WalletLedgerEntry, error)
}

// StockService exposes stock levels and bulk restocking.
type StockService interface {
	// GetStock returns the current stock level of a product.
	GetStock(ctx context.Context, productID int64) (*model.StockLevel, error)

	// Restock applies the given restock feeds as one unit of work.
	Restock(ctx context.Context, feeds []string) (*model.RestockResult, error)
}
