// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"time"

	"medi-kart/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an order lifecycle change.
type EventType string

const (
	OrderCreated       EventType = "created"
	OrderCancelled     EventType = "cancelled"
	OrderStatusUpdated EventType = "status_updated"
)

// OrderEvent is the message published for every order lifecycle change.
type OrderEvent struct {
	Type        EventType         `json:"type"`
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	UserID      uuid.UUID         `json:"userId"`
	Status      model.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// NewOrderEvent describes order as it stands after a change of kind t.
func NewOrderEvent(t EventType, order *model.Order, now time.Time) OrderEvent {
	return OrderEvent{
		Type:        t,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  now.UTC(),
	}
}

// RoutingKey is the topic the event is published under.
func (e OrderEvent) RoutingKey() string {
	return "order." + string(e.Type)
}

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
