package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderPaid      OrderStatus = "Paid"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// forward lists the only status each status may advance to. Cancellation is
// handled separately by CanCancel.
var forward = map[OrderStatus]OrderStatus{
	OrderPending: OrderPaid,
	OrderPaid:    OrderShipped,
	OrderShipped: OrderDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move forward to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return forward[s] == next
}

// CanCancel reports whether an order in status s may be cancelled. Only
// Pending orders qualify; orders placed through checkout start as Paid.
func (s OrderStatus) CanCancel() bool {
	return s == OrderPending
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"userId"`
	OrderNumber     string          `json:"orderNumber"`
	OrderDate       time.Time       `json:"orderDate"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          OrderStatus     `json:"status"`
	PaymentID       *string         `json:"paymentId"`
	PayerID         *string         `json:"payerId"`
	ShippingAddress string          `json:"shippingAddress"`
	Notes           *string         `json:"notes"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Items           []OrderItem     `json:"orderItems"`
}

// OrderItem is a snapshot of a product at checkout time. It never follows
// later changes to the product.
type OrderItem struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"orderId"`
	ProductID       int64           `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductImageURL string          `json:"productImageUrl"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        int             `json:"quantity"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

// NewOrderItem snapshots p for quantity units.
func NewOrderItem(p *Product, quantity int) OrderItem {
	return OrderItem{
		ProductID:       p.ID,
		ProductName:     p.Name,
		ProductImageURL: p.Image,
		UnitPrice:       p.Price,
		Quantity:        quantity,
		TotalPrice:      LineTotal(p.Price, quantity),
	}
}

// LineTotal is unit × quantity rounded to cents.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// SumItems returns the order total of items.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	return total.Round(2)
}
