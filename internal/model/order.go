package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderConfirmed OrderStatus = "Confirmed"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
	OrderDelivered: nil,
	OrderCancelled: nil,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether an order in status s may move to next
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Open reports whether the order can still be paid or fulfilled
func (s OrderStatus) Open() bool {
	return s != OrderCancelled && s != OrderDelivered
}

// OrderLine is settled once PaymentID is set
type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (l OrderLine) Paid() bool { return l.PaymentID != "" }

type Order struct {
	OrderID         string          `json:"orderId"`
	UserID          string          `json:"userId"`
	Lines           []OrderLine     `json:"lines"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// UnpaidLine returns the index of the first unpaid line for productID, or -1
func (o *Order) UnpaidLine(productID string) int {
	for i, l := range o.Lines {
		if l.ProductID == productID && !l.Paid() {
			return i
		}
	}
	return -1
}
