package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// ErrorKind groups domain errors by how callers should react to them.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindInsufficientStock   ErrorKind = "insufficient_stock"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindStateConflict       ErrorKind = "state_conflict"
	KindUnauthorised        ErrorKind = "unauthorized"
	KindCompensationFailed  ErrorKind = "compensation_failed"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeEmptyOrder          = "EMPTY_ORDER"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeStateConflict       = "STATE_CONFLICT"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeCompensationFailed  = "COMPENSATION_FAILED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidRequest      = NewDomainError(KindValidation, ErrCodeInvalidRequest, "Request is missing required fields")
	ErrEmptyOrder          = NewDomainError(KindValidation, ErrCodeEmptyOrder, "Order must contain at least one line")
	ErrInvalidQuantity     = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidAmount       = NewDomainError(KindValidation, ErrCodeInvalidAmount, "Amount must be greater than zero")
	ErrOrderNotFound       = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrProductNotFound     = NewDomainError(KindNotFound, ErrCodeProductNotFound, "One or more products not found")
	ErrInsufficientStock   = NewDomainError(KindInsufficientStock, ErrCodeInsufficientStock, "Insufficient stock")
	ErrInsufficientBalance = NewDomainError(KindInsufficientBalance, ErrCodeInsufficientBalance, "Insufficient wallet balance")
	ErrStateConflict       = NewDomainError(KindStateConflict, ErrCodeStateConflict, "Order is not in a state that allows this operation")
	ErrUnauthorised        = NewDomainError(KindUnauthorised, ErrCodeUnauthorised, "Actor is not allowed to access this order")
	ErrCompensationFailed  = NewDomainError(KindCompensationFailed, ErrCodeCompensationFailed, "Rollback of a partially applied operation failed")
)

// KindOf returns the kind of the most specific domain error in err's chain.
// Compensation failures win over any other kind because they denote torn state.
func KindOf(err error) (ErrorKind, bool) {
	if errors.Is(err, ErrCompensationFailed) {
		return KindCompensationFailed, true
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
