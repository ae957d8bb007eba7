package model

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusConfirmed OrderStatus = "confirmed" // legacy rows only; nothing transitions into it
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusConfirmed,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethodBalance is the only supported payment method: the internal wallet.
const PaymentMethodBalance = "balance"

// TimestampField names the per-transition timestamp stamped by a Transition.
type TimestampField string

const (
	StampNone      TimestampField = ""
	StampPaid      TimestampField = "paid_at"
	StampShipped   TimestampField = "shipped_at"
	StampDelivered TimestampField = "delivered_at"
	StampCancelled TimestampField = "cancelled_at"
)

// Delivery holds the contact details an order is shipped to.
type Delivery struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Validate checks that every delivery field is present.
func (d Delivery) Validate() error {
	if strings.TrimSpace(d.Name) == "" ||
		strings.TrimSpace(d.Phone) == "" ||
		strings.TrimSpace(d.Address) == "" {
		return fmt.Errorf("%w: delivery name, phone and address are required", ErrInvalidRequest)
	}
	return nil
}

// Order represents a customer order.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OrderNo       string          `json:"orderNo" db:"order_no"`
	UserID        int64           `json:"userId" db:"user_id"`
	TotalAmount   decimal.Decimal `json:"totalAmount" db:"total_amount"`
	PaymentAmount decimal.Decimal `json:"paymentAmount" db:"payment_amount"`
	OrderStatus   OrderStatus     `json:"orderStatus" db:"order_status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	PaymentMethod *string         `json:"paymentMethod,omitempty" db:"payment_method"`
	Delivery      Delivery        `json:"delivery"`
	Remark        string          `json:"remark,omitempty" db:"remark"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
	PaidAt        *time.Time      `json:"paidAt,omitempty" db:"paid_at"`
	ShippedAt     *time.Time      `json:"shippedAt,omitempty" db:"shipped_at"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	CancelledAt   *time.Time      `json:"cancelledAt,omitempty" db:"cancelled_at"`
	Lines         []OrderLine     `json:"lines"`
}

// Stamp sets the timestamp named by field.
func (o *Order) Stamp(field TimestampField, at time.Time) {
	t := at
	switch field {
	case StampPaid:
		o.PaidAt = &t
	case StampShipped:
		o.ShippedAt = &t
	case StampDelivered:
		o.DeliveredAt = &t
	case StampCancelled:
		o.CancelledAt = &t
	}
}

// OrderLine is a snapshot of a purchased product taken when the order was created.
type OrderLine struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"-" db:"order_id"`
	LineNo       int             `json:"lineNo" db:"line_no"`
	ProductID    int64           `json:"productId" db:"product_id"`
	ProductName  string          `json:"productName" db:"product_name"`
	ProductImage string          `json:"productImage,omitempty" db:"product_image"`
	SpecName     string          `json:"specName,omitempty" db:"spec_name"`
	UnitName     string          `json:"unitName,omitempty" db:"unit_name"`
	UnitPrice    decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity     int             `json:"quantity" db:"quantity"`
	LineTotal    decimal.Decimal `json:"lineTotal" db:"line_total"`
}

// ProductQuantities sums line quantities per product and returns the product ids in
// ascending order, which is the order every stock mutation for an order is applied in.
func ProductQuantities(lines []OrderLine) ([]int64, map[int64]int) {
	qty := make(map[int64]int, len(lines))
	for _, line := range lines {
		qty[line.ProductID] += line.Quantity
	}
	ids := make([]int64, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, qty
}

// Transition describes a conditional order state change. The change applies only when
// the current order status is one of FromOrder and, if FromPayment is non-empty, the
// current payment status is one of FromPayment.
type Transition struct {
	FromOrder   []OrderStatus
	FromPayment []PaymentStatus
	ToOrder     OrderStatus
	ToPayment   PaymentStatus // empty keeps the current payment status
	Stamp       TimestampField
}

// Matches reports whether the transition may be applied to o.
func (t Transition) Matches(o *Order) bool {
	if !slices.Contains(t.FromOrder, o.OrderStatus) {
		return false
	}
	if len(t.FromPayment) > 0 && !slices.Contains(t.FromPayment, o.PaymentStatus) {
		return false
	}
	return true
}

// Apply mutates o to the transition's target state.
func (t Transition) Apply(o *Order, at time.Time) {
	o.OrderStatus = t.ToOrder
	if t.ToPayment != "" {
		o.PaymentStatus = t.ToPayment
	}
	o.Stamp(t.Stamp, at)
	o.UpdatedAt = at
}

// CreateOrderRequest represents the request payload for creating an order.
type CreateOrderRequest struct {
	UserID      int64    `json:"-"`
	CartLineIDs []int64  `json:"cartItems"`
	Delivery    Delivery `json:"delivery"`
	Remark      string   `json:"remark,omitempty"`
}

// CreateOrderResult is returned after an order has been created.
type CreateOrderResult struct {
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNo     string          `json:"orderNo"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// OrderFilter narrows an order listing. A zero UserID lists every user's orders.
type OrderFilter struct {
	UserID   int64
	Status   OrderStatus
	Page     int
	PageSize int
}

// Normalise applies paging defaults.
func (f *OrderFilter) Normalise() {
	f.Page, f.PageSize = NormalisePage(f.Page, f.PageSize)
}

// Offset returns the row offset of the requested page.
func (f OrderFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// OrderPage is one page of an order listing.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	Pagination Page    `json:"pagination"`
}

// Page describes the position of a listing page.
type Page struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPage builds the pagination block for a listing of total rows.
func NewPage(page, pageSize, total int) Page {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Page{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// NormalisePage defaults page to 1 and pageSize to 10, capping pageSize at 100.
func NormalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

const orderNoAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNo generates a human-traceable order number: "ORD", the creation time in
// unix milliseconds and four random base36 characters.
func NewOrderNo(now time.Time) string {
	var b strings.Builder
	b.WriteString("ORD")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	for range 4 {
		b.WriteByte(orderNoAlphabet[rand.IntN(len(orderNoAlphabet))])
	}
	return b.String()
}
