package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an order lifecycle event.
type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderPaid      EventType = "order.paid"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderShipped   EventType = "order.shipped"
	EventOrderDelivered EventType = "order.delivered"
)

// OrderEvent is published for every committed order state change.
type OrderEvent struct {
	ID            uuid.UUID       `json:"eventId"`
	Type          EventType       `json:"type"`
	OrderID       uuid.UUID       `json:"orderId"`
	OrderNo       string          `json:"orderNo"`
	UserID        int64           `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	OrderStatus   OrderStatus     `json:"orderStatus"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewOrderEvent snapshots o as an event of the given type.
func NewOrderEvent(eventType EventType, o *Order, at time.Time) OrderEvent {
	return OrderEvent{
		ID:            uuid.New(),
		Type:          eventType,
		OrderID:       o.ID,
		OrderNo:       o.OrderNo,
		UserID:        o.UserID,
		Amount:        o.PaymentAmount,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		OccurredAt:    at,
	}
}

// OutboxStatus is the delivery state of an outbox message.
type OutboxStatus int

const (
	OutboxPending   OutboxStatus = 1
	OutboxPublished OutboxStatus = 2
)

// OutboxMessage is an event waiting to be relayed to the message broker.
type OutboxMessage struct {
	ID        int64        `db:"id"`
	EventID   uuid.UUID    `db:"event_id"`
	EventType EventType    `db:"event_type"`
	Key       string       `db:"aggregate_id"`
	Payload   []byte       `db:"payload"`
	Status    OutboxStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
}
