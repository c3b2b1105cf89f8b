package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderCancelled     EventType = "order.cancelled"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// OutboxEvent is written in the same transaction as the change it describes
// and relayed to the broker afterwards.
type OutboxEvent struct {
	ID           uuid.UUID
	Type         EventType
	Key          string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
	// TraceContext holds the propagation headers of the request that wrote
	// the event, so the relay can continue its trace.
	TraceContext map[string]string
}

type OrderEvent struct {
	EventType   EventType       `json:"eventType"`
	OrderID     int64           `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	UserID      string          `json:"userId"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewOrderEvent builds the outbox row for order, keyed by order number so
// events of one order stay ordered on a partition.
func NewOrderEvent(t EventType, order *Order, at time.Time) (OutboxEvent, error) {
	payload, err := json.Marshal(OrderEvent{
		EventType:   t,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  at,
	})
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		ID:        uuid.New(),
		Type:      t,
		Key:       order.OrderNumber,
		Payload:   payload,
		CreatedAt: at,
	}, nil
}
