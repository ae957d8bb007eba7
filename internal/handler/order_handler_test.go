package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopflow/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var customer = &model.Actor{UserID: 7}

func TestOrderHandler_Create(t *testing.T) {
	result := &model.CreateOrderResult{
		OrderID:     uuid.New(),
		OrderNo:     "ORD1700000000000ABCD",
		TotalAmount: decimal.RequireFromString("19.50"),
	}

	tests := []struct {
		name           string
		body           string
		actor          *model.Actor
		mockReturn     *model.CreateOrderResult
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           `{"cartItems":[1,2],"delivery":{"name":"Ada","phone":"1","address":"Main St"}}`,
			actor:          customer,
			mockReturn:     result,
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Insufficient stock",
			body:           `{"cartItems":[1],"delivery":{"name":"Ada","phone":"1","address":"Main St"}}`,
			actor:          customer,
			mockError:      model.ErrInsufficientStock,
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Empty order",
			body:           `{"cartItems":[]}`,
			actor:          customer,
			mockError:      model.ErrEmptyOrder,
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			body:           `{"cartItems":`,
			actor:          customer,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing identity",
			body:           `{}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Unexpected error",
			body:           `{"cartItems":[1]}`,
			actor:          customer,
			mockError:      errors.New("database unavailable"),
			expectedStatus: http.StatusInternalServerError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			if tt.expectService {
				mockService.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *model.CreateOrderRequest) bool {
					return req.UserID == tt.actor.UserID
				})).Return(tt.mockReturn, tt.mockError)
			}

			req := newRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body), tt.actor, nil)
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectService {
				mockService.AssertExpectations(t)
			} else {
				mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
			}
			if tt.expectedStatus == http.StatusCreated {
				var got model.CreateOrderResult
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, result.OrderNo, got.OrderNo)
				assert.True(t, result.TotalAmount.Equal(got.TotalAmount))
			}
		})
	}
}

func TestOrderHandler_Actions(t *testing.T) {
	orderID := uuid.New()
	admin := &model.Actor{UserID: 1, Permissions: []string{model.PermOrderManage}}
	order := &model.Order{ID: orderID, UserID: 7}

	tests := []struct {
		name           string
		call           func(h *OrderHandler, w http.ResponseWriter, r *http.Request)
		setup          func(m *MockOrderService)
		actor          *model.Actor
		id             string
		expectedStatus int
	}{
		{
			name:           "Pay success",
			call:           (*OrderHandler).Pay,
			setup:          func(m *MockOrderService) { m.On("PayOrder", mock.Anything, orderID, int64(7)).Return(order, nil) },
			actor:          customer,
			id:             orderID.String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Pay with insufficient balance",
			call:           (*OrderHandler).Pay,
			setup:          func(m *MockOrderService) { m.On("PayOrder", mock.Anything, orderID, int64(7)).Return(nil, model.ErrInsufficientBalance) },
			actor:          customer,
			id:             orderID.String(),
			expectedStatus: http.StatusPaymentRequired,
		},
		{
			name:           "Pay twice",
			call:           (*OrderHandler).Pay,
			setup:          func(m *MockOrderService) { m.On("PayOrder", mock.Anything, orderID, int64(7)).Return(nil, model.ErrStateConflict) },
			actor:          customer,
			id:             orderID.String(),
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Pay with malformed id",
			call:           (*OrderHandler).Pay,
			setup:          func(*MockOrderService) {},
			actor:          customer,
			id:             "not-a-uuid",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Cancel by owner",
			call:           (*OrderHandler).Cancel,
			setup:          func(m *MockOrderService) { m.On("CancelOrder", mock.Anything, orderID, *customer).Return(order, nil) },
			actor:          customer,
			id:             orderID.String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Cancel by admin",
			call:           (*OrderHandler).Cancel,
			setup:          func(m *MockOrderService) { m.On("CancelOrder", mock.Anything, orderID, *admin).Return(order, nil) },
			actor:          admin,
			id:             orderID.String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Cancel foreign order",
			call:           (*OrderHandler).Cancel,
			setup:          func(m *MockOrderService) { m.On("CancelOrder", mock.Anything, orderID, mock.Anything).Return(nil, model.ErrUnauthorised) },
			actor:          &model.Actor{UserID: 8},
			id:             orderID.String(),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Ship",
			call:           (*OrderHandler).Ship,
			setup:          func(m *MockOrderService) { m.On("ShipOrder", mock.Anything, orderID).Return(order, nil) },
			actor:          admin,
			id:             orderID.String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Ship missing order",
			call:           (*OrderHandler).Ship,
			setup:          func(m *MockOrderService) { m.On("ShipOrder", mock.Anything, orderID).Return(nil, model.ErrOrderNotFound) },
			actor:          admin,
			id:             orderID.String(),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Receive",
			call:           (*OrderHandler).Receive,
			setup:          func(m *MockOrderService) { m.On("ConfirmReceive", mock.Anything, orderID, int64(7)).Return(order, nil) },
			actor:          customer,
			id:             orderID.String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Get",
			call:           (*OrderHandler).Get,
			setup:          func(m *MockOrderService) { m.On("GetOrder", mock.Anything, orderID, *customer).Return(order, nil) },
			actor:          customer,
			id:             orderID.String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Get without identity",
			call:           (*OrderHandler).Get,
			setup:          func(*MockOrderService) {},
			id:             orderID.String(),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			tt.setup(mockService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			req := newRequest(http.MethodPut, "/api/orders/"+tt.id, nil, tt.actor, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()

			tt.call(handler, w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_List(t *testing.T) {
	page := &model.OrderPage{Orders: []model.Order{{ID: uuid.New()}}, Pagination: model.NewPage(2, 5, 6)}

	t.Run("Own orders", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("ListOrders", mock.Anything, model.OrderFilter{
			UserID: 7, Status: model.OrderStatusPaid, Page: 2, PageSize: 5,
		}).Return(page, nil)
		handler := NewOrderHandler(mockService, zerolog.Nop())

		req := newRequest(http.MethodGet, "/api/orders?status=paid&page=2&pageSize=5", nil, customer, nil)
		w := httptest.NewRecorder()

		handler.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got model.OrderPage
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, 2, got.Pagination.TotalPages)
		mockService.AssertExpectations(t)
	})

	t.Run("Admin filtered by user", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("ListOrders", mock.Anything, model.OrderFilter{UserID: 9}).Return(page, nil)
		handler := NewOrderHandler(mockService, zerolog.Nop())

		req := newRequest(http.MethodGet, "/api/admin/orders?userId=9", nil, nil, nil)
		w := httptest.NewRecorder()

		handler.AdminList(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Admin with malformed user", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())

		req := newRequest(http.MethodGet, "/api/admin/orders?userId=abc", nil, nil, nil)
		w := httptest.NewRecorder()

		handler.AdminList(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
	})

	t.Run("Unknown status", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("ListOrders", mock.Anything, mock.Anything).Return(nil, model.ErrInvalidRequest)
		handler := NewOrderHandler(mockService, zerolog.Nop())

		req := newRequest(http.MethodGet, "/api/orders?status=lost", nil, customer, nil)
		w := httptest.NewRecorder()

		handler.List(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_Create_IgnoresUserIDInBody(t *testing.T) {
	mockService := new(MockOrderService)
	mockService.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *model.CreateOrderRequest) bool {
		return req.UserID == 7
	})).Return(&model.CreateOrderResult{}, nil)
	handler := NewOrderHandler(mockService, zerolog.Nop())

	body, _ := json.Marshal(map[string]any{"userId": 99, "cartItems": []int{1}})
	req := newRequest(http.MethodPost, "/api/orders", bytes.NewReader(body), customer, nil)
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}
