// Package memory is an in-process implementation of every repository, used when the
// service runs without PostgreSQL and by tests.
//
// Each stock level, wallet and order lives in its own cell with its own mutex; the maps
// holding the cells are locked only to look a cell up or insert one. A unit of work is
// made all-or-nothing by the compensation log of package saga: every mutation records
// its inverse, and Transactor undoes them in reverse order when the unit fails.
//
// A cell written inside a unit stays locked until the unit commits or rolls back, the
// way PostgreSQL keeps row locks until the end of a transaction. Units lock cells in
// one order to stay deadlock free: the order first, then stock by ascending product
// ID, then the wallet.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"shopflow/internal/model"
	"shopflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stockCell struct {
	mu        sync.Mutex
	quantity  int
	updatedAt time.Time
}

type walletCell struct {
	mu      sync.Mutex
	account model.WalletAccount
	entries []model.WalletLedgerEntry
}

type orderCell struct {
	mu    sync.Mutex
	order model.Order
	// removed is set when the unit that created the order rolled back.
	removed bool
}

// Store holds the complete in-memory state.
type Store struct {
	logger zerolog.Logger
	now    func() time.Time

	catalogMu sync.RWMutex
	products  map[int64]model.Product

	cartMu    sync.Mutex
	cartLines map[int64]model.CartLine
	nextCart  int64

	stockMu sync.RWMutex
	stock   map[int64]*stockCell

	walletMu  sync.RWMutex
	wallets   map[int64]*walletCell
	nextEntry atomic.Int64

	orderMu  sync.RWMutex
	orders   map[uuid.UUID]*orderCell
	orderNos map[string]uuid.UUID

	outboxMu   sync.Mutex
	outbox     []model.OutboxMessage
	nextOutbox int64
}

// NewStore creates an empty store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		logger:    logger.With().Str("component", "memory").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
		products:  make(map[int64]model.Product),
		cartLines: make(map[int64]model.CartLine),
		stock:     make(map[int64]*stockCell),
		wallets:   make(map[int64]*walletCell),
		orders:    make(map[uuid.UUID]*orderCell),
		orderNos:  make(map[string]uuid.UUID),
	}
}

// Repositories bundles the repository implementations backed by one Store.
type Repositories struct {
	Transactor repository.Transactor
	Catalog    repository.CatalogRepository
	Carts      repository.CartRepository
	Orders     repository.OrderRepository
	Stock      repository.StockLedger
	Wallets    repository.WalletLedger
	Outbox     repository.OutboxRepository
}

// Repositories returns the repository views of s.
func (s *Store) Repositories() Repositories {
	return Repositories{
		Transactor: &Transactor{logger: s.logger},
		Catalog:    catalog{s},
		Carts:      carts{s},
		Orders:     orders{s},
		Stock:      stock{s},
		Wallets:    wallets{s},
		Outbox:     outbox{s},
	}
}

// PutProduct adds or replaces a catalogue product. Its StockQuantity seeds the stock
// level when the product has none yet.
func (s *Store) PutProduct(p model.Product) {
	s.catalogMu.Lock()
	s.products[p.ID] = p
	s.catalogMu.Unlock()

	s.stockMu.Lock()
	if _, ok := s.stock[p.ID]; !ok {
		s.stock[p.ID] = &stockCell{quantity: p.StockQuantity, updatedAt: s.now()}
	}
	s.stockMu.Unlock()
}

// PutCartLine adds a cart line, assigning an ID when line.ID is zero.
func (s *Store) PutCartLine(line model.CartLine) model.CartLine {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	if line.ID == 0 {
		s.nextCart++
		line.ID = s.nextCart
	} else if line.ID > s.nextCart {
		s.nextCart = line.ID
	}
	s.cartLines[line.ID] = line
	return line
}

// Fund credits amount to the user's wallet as an admin recharge, so the opening
// balance is backed by a ledger entry like any other.
func (s *Store) Fund(userID int64, amount decimal.Decimal) error {
	_, err := wallets{s}.Credit(context.Background(), userID, amount, model.LedgerReference{
		Source:        model.SourceRecharge,
		ReferenceType: model.ReferenceAdmin,
		ReferenceID:   strconv.FormatInt(userID, 10),
		Description:   "Opening balance",
	})
	if err != nil {
		return fmt.Errorf("failed to fund wallet of user %d: %w", userID, err)
	}
	return nil
}

func (s *Store) stockCell(productID int64) (*stockCell, bool) {
	s.stockMu.RLock()
	defer s.stockMu.RUnlock()
	cell, ok := s.stock[productID]
	return cell, ok
}

// wallet returns the user's cell, creating an empty account on first use.
func (s *Store) wallet(userID int64) *walletCell {
	s.walletMu.RLock()
	cell, ok := s.wallets[userID]
	s.walletMu.RUnlock()
	if ok {
		return cell
	}

	s.walletMu.Lock()
	defer s.walletMu.Unlock()
	if cell, ok := s.wallets[userID]; ok {
		return cell
	}
	now := s.now()
	cell = &walletCell{account: model.WalletAccount{
		UserID:       userID,
		Balance:      decimal.Zero,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
	s.wallets[userID] = cell
	return cell
}

func (s *Store) orderCell(id uuid.UUID) (*orderCell, bool) {
	s.orderMu.RLock()
	defer s.orderMu.RUnlock()
	cell, ok := s.orders[id]
	return cell, ok
}
