package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is written once and never mutated
type Payment struct {
	PaymentID      string          `json:"paymentId"`
	UserID         string          `json:"userId"`
	OrderID        string          `json:"orderId"`
	ProductID      string          `json:"productId"`
	Quantity       int             `json:"quantity"`
	PaymentDetails json.RawMessage `json:"paymentDetails,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentDate    time.Time       `json:"paymentDate"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}
