package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletAccount is a user's balance together with its running totals.
type WalletAccount struct {
	UserID       int64           `json:"userId" db:"user_id"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	TotalIncome  decimal.Decimal `json:"totalIncome" db:"total_income"`
	TotalExpense decimal.Decimal `json:"totalExpense" db:"total_expense"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// Direction is the sign of a ledger entry.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// LedgerSource tags why a balance changed.
type LedgerSource string

const (
	SourcePayment  LedgerSource = "payment"
	SourceRefund   LedgerSource = "refund"
	SourceRecharge LedgerSource = "recharge"
)

// Reference types of ledger entries.
const (
	ReferenceOrder = "order"
	ReferenceAdmin = "admin"
)

// LedgerReference links a balance change to what caused it.
type LedgerReference struct {
	Source        LedgerSource
	ReferenceType string
	ReferenceID   string
	Description   string
}

// WalletLedgerEntry is an immutable record of a single balance change.
type WalletLedgerEntry struct {
	ID            int64           `json:"id" db:"id"`
	UserID        int64           `json:"userId" db:"user_id"`
	Direction     Direction       `json:"type" db:"direction"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore" db:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter" db:"balance_after"`
	Source        LedgerSource    `json:"source" db:"source"`
	ReferenceType string          `json:"referenceType,omitempty" db:"reference_type"`
	ReferenceID   string          `json:"referenceId,omitempty" db:"reference_id"`
	Description   string          `json:"description,omitempty" db:"description"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// Delta is the signed balance change recorded by the entry.
func (e WalletLedgerEntry) Delta() decimal.Decimal {
	if e.Direction == DirectionExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// LedgerPage is one page of a wallet's ledger history.
type LedgerPage struct {
	Transactions []WalletLedgerEntry `json:"transactions"`
	Pagination   Page                `json:"pagination"`
}

// DepositRequest represents an administrative wallet top-up.
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}
