package memory

import (
	"context"
	"fmt"
	"slices"

	"shopflow/internal/model"
	"shopflow/internal/saga"

	"github.com/shopspring/decimal"
)

type wallets struct{ *Store }

func (w wallets) GetOrCreateAccount(ctx context.Context, userID int64) (*model.WalletAccount, error) {
	cell := w.wallet(userID)
	unlock := saga.Peek(ctx, &cell.mu)
	defer unlock()
	account := cell.account
	return &account, nil
}

func (w wallets) Debit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}

	cell := w.wallet(userID)
	unlock := saga.Lock(ctx, &cell.mu)
	defer unlock()
	if cell.account.Balance.LessThan(amount) {
		return nil, model.ErrInsufficientBalance
	}
	entry := w.apply(cell, model.DirectionExpense, amount, ref)

	saga.Record(ctx, fmt.Sprintf("refund %s to user %d", amount, userID), func(context.Context) error {
		w.revert(cell, entry)
		return nil
	})
	return &entry, nil
}

func (w wallets) Credit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}

	cell := w.wallet(userID)
	unlock := saga.Lock(ctx, &cell.mu)
	defer unlock()
	entry := w.apply(cell, model.DirectionIncome, amount, ref)

	saga.Record(ctx, fmt.Sprintf("withdraw %s from user %d", amount, userID), func(context.Context) error {
		w.revert(cell, entry)
		return nil
	})
	return &entry, nil
}

func (w wallets) ListEntries(ctx context.Context, userID int64, limit, offset int) ([]model.WalletLedgerEntry, int, error) {
	cell := w.wallet(userID)
	unlock := saga.Peek(ctx, &cell.mu)
	defer unlock()

	total := len(cell.entries)
	page := []model.WalletLedgerEntry{}
	for i := total - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, cell.entries[i])
	}
	return page, total, nil
}

// apply changes the balance and appends the entry. The caller holds cell.mu.
func (w wallets) apply(cell *walletCell, direction model.Direction, amount decimal.Decimal, ref model.LedgerReference) model.WalletLedgerEntry {
	now := w.now()
	before := cell.account.Balance

	entry := model.WalletLedgerEntry{
		ID:            w.nextEntry.Add(1),
		UserID:        cell.account.UserID,
		Direction:     direction,
		Amount:        amount,
		BalanceBefore: before,
		Source:        ref.Source,
		ReferenceType: ref.ReferenceType,
		ReferenceID:   ref.ReferenceID,
		Description:   ref.Description,
		CreatedAt:     now,
	}
	entry.BalanceAfter = before.Add(entry.Delta())

	cell.account.Balance = entry.BalanceAfter
	if direction == model.DirectionIncome {
		cell.account.TotalIncome = cell.account.TotalIncome.Add(amount)
	} else {
		cell.account.TotalExpense = cell.account.TotalExpense.Add(amount)
	}
	cell.account.UpdatedAt = now
	cell.entries = append(cell.entries, entry)
	return entry
}

// revert takes an entry written by an undone unit of work back out of the ledger.
// The unit has held cell.mu since it wrote the entry, so no committed entry was
// written after it and nobody read it. The caller holds cell.mu.
func (w wallets) revert(cell *walletCell, entry model.WalletLedgerEntry) {
	cell.account.Balance = cell.account.Balance.Sub(entry.Delta())
	if entry.Direction == model.DirectionIncome {
		cell.account.TotalIncome = cell.account.TotalIncome.Sub(entry.Amount)
	} else {
		cell.account.TotalExpense = cell.account.TotalExpense.Sub(entry.Amount)
	}
	cell.account.UpdatedAt = w.now()
	cell.entries = slices.DeleteFunc(cell.entries, func(e model.WalletLedgerEntry) bool {
		return e.ID == entry.ID
	})
}
