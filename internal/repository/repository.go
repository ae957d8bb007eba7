package repository

import (
	"context"

	"shopflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transactor runs a function as one all-or-nothing unit of work. Repositories called
// with the context passed to fn take part in that unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogRepository is the read-only product lookup of the catalogue collaborator.
type CatalogRepository interface {
	// LookupProducts returns the products with the given IDs keyed by ID.
	// Unknown IDs are absent from the result.
	LookupProducts(ctx context.Context, ids []int64) (map[int64]model.Product, error)
}

// CartRepository gives the order workflow access to the cart collaborator.
type CartRepository interface {
	// LoadLines returns the cart lines with the given IDs that belong to userID.
	LoadLines(ctx context.Context, ids []int64, userID int64) ([]model.CartLine, error)

	// DeleteLines removes the cart lines with the given IDs that belong to userID
	// and returns how many it removed.
	DeleteLines(ctx context.Context, ids []int64, userID int64) (int, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts an order together with its lines.
	// Returns model.ErrEmptyOrder if the order has no lines.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its ID along with its lines.
	// Returns model.ErrOrderNotFound if the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// Transition applies t only if the order's current statuses match it and returns
	// the updated order. Returns model.ErrStateConflict when they do not match.
	Transition(ctx context.Context, id uuid.UUID, t model.Transition) (*model.Order, error)

	// List returns one page of orders, newest first, and the total number of matches.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)
}

// StockLedger owns per-product available quantity.
type StockLedger interface {
	// Reserve decrements the product's quantity by qty only if enough is available.
	// Returns model.ErrInsufficientStock otherwise, leaving the quantity untouched.
	Reserve(ctx context.Context, productID int64, qty int) error

	// Release increments the product's quantity by qty.
	Release(ctx context.Context, productID int64, qty int) error

	// Get returns the product's current stock level.
	Get(ctx context.Context, productID int64) (*model.StockLevel, error)
}

// WalletLedger owns per-user balances and their append-only history.
type WalletLedger interface {
	// GetOrCreateAccount returns the user's account, creating it with a zero balance.
	GetOrCreateAccount(ctx context.Context, userID int64) (*model.WalletAccount, error)

	// Debit withdraws amount only if the balance covers it and records an expense entry.
	// Returns model.ErrInsufficientBalance otherwise, leaving the account untouched.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error)

	// Credit deposits amount and records an income entry.
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error)

	// ListEntries returns one page of the user's ledger, newest first, and the total count.
	ListEntries(ctx context.Context, userID int64, limit, offset int) ([]model.WalletLedgerEntry, int, error)
}

// OutboxRepository stores order events until they are relayed to the broker.
type OutboxRepository interface {
	// Append stores an event as part of the current unit of work.
	Append(ctx context.Context, event model.OrderEvent) error

	// Pending returns up to limit unpublished messages, oldest first.
	Pending(ctx context.Context, limit int) ([]model.OutboxMessage, error)

	// MarkPublished flags the messages with the given IDs as delivered.
	MarkPublished(ctx context.Context, ids []int64) error
}
