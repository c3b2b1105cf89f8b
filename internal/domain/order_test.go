package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Transitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransitionTo(OrderPaid))
	assert.True(t, OrderPaid.CanTransitionTo(OrderShipped))
	assert.True(t, OrderShipped.CanTransitionTo(OrderDelivered))

	assert.False(t, OrderPaid.CanTransitionTo(OrderPending))
	assert.False(t, OrderPending.CanTransitionTo(OrderShipped))
	assert.False(t, OrderDelivered.CanTransitionTo(OrderCancelled))
	assert.False(t, OrderCancelled.CanTransitionTo(OrderPaid))
}

func TestOrderStatus_OnlyPendingCanBeCancelled(t *testing.T) {
	assert.True(t, OrderPending.CanCancel())
	for _, s := range []OrderStatus{OrderPaid, OrderShipped, OrderDelivered, OrderCancelled} {
		assert.False(t, s.CanCancel(), s)
	}
}

func TestNewOrderItem_SnapshotsProduct(t *testing.T) {
	p := &Product{ID: 7, Name: "OLED 55", Price: decimal.RequireFromString("199.99"), Image: "/img/tv.png"}

	item := NewOrderItem(p, 3)
	p.Price = decimal.NewFromInt(1)
	p.Name = "renamed"

	assert.Equal(t, int64(7), item.ProductID)
	assert.Equal(t, "OLED 55", item.ProductName)
	assert.Equal(t, "/img/tv.png", item.ProductImageURL)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("199.99")))
	assert.True(t, item.TotalPrice.Equal(decimal.RequireFromString("599.97")))
}

func TestSumItems(t *testing.T) {
	items := []OrderItem{
		{UnitPrice: decimal.RequireFromString("10.10"), Quantity: 3, TotalPrice: LineTotal(decimal.RequireFromString("10.10"), 3)},
		{UnitPrice: decimal.RequireFromString("0.05"), Quantity: 1, TotalPrice: LineTotal(decimal.RequireFromString("0.05"), 1)},
	}
	assert.Equal(t, "30.35", SumItems(items).StringFixed(2))
	assert.True(t, SumItems(nil).IsZero())
}

func TestIsBusinessError(t *testing.T) {
	assert.True(t, IsBusinessError(fmt.Errorf("%w: Fridge", ErrInsufficientStock)))
	assert.True(t, IsBusinessError(ErrEmptyCart))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", ErrOrderNotFound)))
	assert.False(t, IsBusinessError(errors.New("connection refused")))
}

func TestNewOrderEvent(t *testing.T) {
	at := time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)
	order := &Order{ID: 3, OrderNumber: "ORD-20250618-ABCDEF12", UserID: "u1", Status: OrderPaid, TotalAmount: decimal.NewFromInt(300)}

	ev, err := NewOrderEvent(EventOrderCreated, order, at)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250618-ABCDEF12", ev.Key)

	var payload OrderEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, EventOrderCreated, payload.EventType)
	assert.Equal(t, int64(3), payload.OrderID)
	assert.Equal(t, OrderPaid, payload.Status)
}
