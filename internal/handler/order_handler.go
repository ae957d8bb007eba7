package handler

import (
	"net/http"
	"strconv"

	"shopflow/internal/model"
	"shopflow/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	req.UserID = actor.UserID

	result, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /api/orders requests: the caller's own orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	h.list(w, r, actor.UserID)
}

// AdminList handles GET /api/admin/orders requests, optionally filtered by ?userId=.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidRequest, "invalid userId", h.logger)
			return
		}
		userID = v
	}
	h.list(w, r, userID)
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, userID int64) {
	page, err := h.service.ListOrders(r.Context(), model.OrderFilter{
		UserID:   userID,
		Status:   model.OrderStatus(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	})
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/orders/{id} and GET /api/admin/orders/{id} requests.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID, actor)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Pay handles POST /api/orders/{id}/pay requests.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.PayOrder(r.Context(), orderID, actor.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles PUT /api/orders/{id}/cancel and PUT /api/admin/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), orderID, actor)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Ship handles PUT /api/admin/orders/{id}/ship requests.
func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.ShipOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Receive handles PUT /api/orders/{id}/receive requests.
func (h *OrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.ConfirmReceive(r.Context(), orderID, actor.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
