package repository

import (
	"context"
	"errors"
	"fmt"

	"shopflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// walletLedger implements the WalletLedger interface using PostgreSQL.
type walletLedger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWalletLedger creates a new PostgreSQL-backed wallet ledger.
func NewWalletLedger(pool *pgxpool.Pool, logger zerolog.Logger) WalletLedger {
	return &walletLedger{
		pool:   pool,
		logger: logger.With().Str("repository", "wallet").Logger(),
	}
}

// GetOrCreateAccount returns the user's account, inserting an empty one on first use.
func (r *walletLedger) GetOrCreateAccount(ctx context.Context, userID int64) (*model.WalletAccount, error) {
	db := conn(ctx, r.pool)

	if _, err := db.Exec(ctx, `
		INSERT INTO wallet_accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to create wallet account")
		return nil, fmt.Errorf("failed to create wallet account: %w", err)
	}

	var (
		account                  model.WalletAccount
		balance, income, expense pgtype.Numeric
	)
	err := db.QueryRow(ctx, `
		SELECT user_id, balance, total_income, total_expense, created_at, updated_at
		FROM wallet_accounts
		WHERE user_id = $1
	`, userID).Scan(&account.UserID, &balance, &income, &expense, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query wallet account")
		return nil, fmt.Errorf("failed to query wallet account: %w", err)
	}
	account.Balance = toDecimal(balance)
	account.TotalIncome = toDecimal(income)
	account.TotalExpense = toDecimal(expense)

	return &account, nil
}

// Debit withdraws amount with a conditional UPDATE and records the expense entry
// from the balance the UPDATE returned.
func (r *walletLedger) Debit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}

	var entry *model.WalletLedgerEntry
	err := inTx(ctx, r.pool, r.logger, func(ctx context.Context, db DBTX) error {
		var after pgtype.Numeric
		err := db.QueryRow(ctx, `
			UPDATE wallet_accounts
			SET balance = balance - $2, total_expense = total_expense + $2, updated_at = NOW()
			WHERE user_id = $1 AND balance >= $2
			RETURNING balance
		`, userID, numeric(amount)).Scan(&after)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				r.logger.Debug().
					Int64("user_id", userID).
					Str("amount", amount.String()).
					Msg("insufficient wallet balance")
				return model.ErrInsufficientBalance
			}
			r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to debit wallet")
			return fmt.Errorf("failed to debit wallet: %w", err)
		}

		balanceAfter := toDecimal(after)
		entry, err = r.appendEntry(ctx, db, model.WalletLedgerEntry{
			UserID:        userID,
			Direction:     model.DirectionExpense,
			Amount:        amount,
			BalanceBefore: balanceAfter.Add(amount),
			BalanceAfter:  balanceAfter,
			Source:        ref.Source,
			ReferenceType: ref.ReferenceType,
			ReferenceID:   ref.ReferenceID,
			Description:   ref.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Credit deposits amount, creating the account if needed, and records the income entry.
func (r *walletLedger) Credit(ctx context.Context, userID int64, amount decimal.Decimal, ref model.LedgerReference) (*model.WalletLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}

	var entry *model.WalletLedgerEntry
	err := inTx(ctx, r.pool, r.logger, func(ctx context.Context, db DBTX) error {
		var after pgtype.Numeric
		err := db.QueryRow(ctx, `
			INSERT INTO wallet_accounts (user_id, balance, total_income)
			VALUES ($1, $2, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET balance = wallet_accounts.balance + EXCLUDED.balance,
			    total_income = wallet_accounts.total_income + EXCLUDED.total_income,
			    updated_at = NOW()
			RETURNING balance
		`, userID, numeric(amount)).Scan(&after)
		if err != nil {
			r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to credit wallet")
			return fmt.Errorf("failed to credit wallet: %w", err)
		}

		balanceAfter := toDecimal(after)
		entry, err = r.appendEntry(ctx, db, model.WalletLedgerEntry{
			UserID:        userID,
			Direction:     model.DirectionIncome,
			Amount:        amount,
			BalanceBefore: balanceAfter.Sub(amount),
			BalanceAfter:  balanceAfter,
			Source:        ref.Source,
			ReferenceType: ref.ReferenceType,
			ReferenceID:   ref.ReferenceID,
			Description:   ref.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ListEntries returns one page of the user's ledger, newest first.
func (r *walletLedger) ListEntries(ctx context.Context, userID int64, limit, offset int) ([]model.WalletLedgerEntry, int, error) {
	db := conn(ctx, r.pool)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_ledger_entries WHERE user_id = $1`, userID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to count ledger entries")
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT id, user_id, direction, amount, balance_before, balance_after, source,
		       reference_type, reference_id, description, created_at
		FROM wallet_ledger_entries
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query ledger entries")
		return nil, 0, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []model.WalletLedgerEntry{}
	for rows.Next() {
		var (
			e                     model.WalletLedgerEntry
			direction, source     string
			amount, before, after pgtype.Numeric
		)
		err := rows.Scan(&e.ID, &e.UserID, &direction, &amount, &before, &after, &source,
			&e.ReferenceType, &e.ReferenceID, &e.Description, &e.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan ledger entry row")
			return nil, 0, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Direction = model.Direction(direction)
		e.Source = model.LedgerSource(source)
		e.Amount = toDecimal(amount)
		e.BalanceBefore = toDecimal(before)
		e.BalanceAfter = toDecimal(after)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating ledger entry rows")
		return nil, 0, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, total, nil
}

func (r *walletLedger) appendEntry(ctx context.Context, db DBTX, e model.WalletLedgerEntry) (*model.WalletLedgerEntry, error) {
	err := db.QueryRow(ctx, `
		INSERT INTO wallet_ledger_entries (
			user_id, direction, amount, balance_before, balance_after, source,
			reference_type, reference_id, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		e.UserID, string(e.Direction), numeric(e.Amount), numeric(e.BalanceBefore), numeric(e.BalanceAfter),
		string(e.Source), e.ReferenceType, e.ReferenceID, e.Description,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", e.UserID).Msg("failed to append ledger entry")
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	r.logger.Debug().
		Int64("user_id", e.UserID).
		Str("direction", string(e.Direction)).
		Str("amount", e.Amount.String()).
		Str("balance_after", e.BalanceAfter.String()).
		Msg("ledger entry appended")

	return &e, nil
}
