package service

import (
	"context"
	"fmt"
	"strconv"

	"shopflow/internal/model"
	"shopflow/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// walletService implements WalletService.
type walletService struct {
	wallets repository.WalletLedger
	logger  zerolog.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(wallets repository.WalletLedger, logger zerolog.Logger) WalletService {
	return &walletService{
		wallets: wallets,
		logger:  logger.With().Str("service", "wallet").Logger(),
	}
}

func (s *walletService) GetWallet(ctx context.Context, userID int64) (*model.WalletAccount, error) {
	account, err := s.wallets.GetOrCreateAccount(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get wallet")
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return account, nil
}

func (s *walletService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) (*model.LedgerPage, error) {
	page, pageSize = model.NormalisePage(page, pageSize)

	entries, total, err := s.wallets.ListEntries(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list wallet transactions")
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}

	return &model.LedgerPage{
		Transactions: entries,
		Pagination:   model.NewPage(page, pageSize, total),
	}, nil
}

// Deposit records an administrative top-up as a recharge.
func (s *walletService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*model.WalletLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}
	if description == "" {
		description = "Wallet top-up"
	}

	entry, err := s.wallets.Credit(ctx, userID, amount, model.LedgerReference{
		Source:        model.SourceRecharge,
		ReferenceType: model.ReferenceAdmin,
		ReferenceID:   strconv.FormatInt(userID, 10),
		Description:   description,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to deposit")
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}

	s.logger.Info().
		Int64("user_id", userID).
		Str("amount", amount.String()).
		Str("balance", entry.BalanceAfter.String()).
		Msg("wallet topped up")

	return entry, nil
}
