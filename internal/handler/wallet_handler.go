package handler

import (
	"net/http"

	"shopflow/internal/model"
	"shopflow/internal/service"

	"github.com/rs/zerolog"
)

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	service service.WalletService
	logger  zerolog.Logger
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(service service.WalletService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		service: service,
		logger:  logger.With().Str("handler", "wallet").Logger(),
	}
}

// Get handles GET /api/wallet requests.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}

	account, err := h.service.GetWallet(r.Context(), actor.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// Transactions handles GET /api/wallet/transactions requests.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}

	page, err := h.service.ListTransactions(r.Context(), actor.UserID, queryInt(r, "page"), queryInt(r, "pageSize"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Deposit handles POST /api/admin/wallets/{userID}/deposit requests.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := int64Param(w, r, "userID", h.logger)
	if !ok {
		return
	}

	var req model.DepositRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	entry, err := h.service.Deposit(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}
