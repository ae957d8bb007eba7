package handler

import (
	"net/http"

	"shopflow/internal/model"
	"shopflow/internal/service"

	"github.com/rs/zerolog"
)

// StockHandler handles stock-related HTTP requests.
type StockHandler struct {
	service service.StockService
	logger  zerolog.Logger
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(service service.StockService, logger zerolog.Logger) *StockHandler {
	return &StockHandler{
		service: service,
		logger:  logger.With().Str("handler", "stock").Logger(),
	}
}

// Get handles GET /api/admin/stock/{productID} requests.
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := int64Param(w, r, "productID", h.logger)
	if !ok {
		return
	}

	level, err := h.service.GetStock(r.Context(), productID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, level)
}

// Restock handles POST /api/admin/stock/restock requests.
func (h *StockHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req model.RestockRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Restock(r.Context(), req.Feeds)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
