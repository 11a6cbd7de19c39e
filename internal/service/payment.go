package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"storefront/internal/apperr"
	"storefront/internal/model"
	"storefront/internal/store"
	"storefront/internal/validate"
	"storefront/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentInput struct {
	UserID         string
	ProductID      string
	PaymentDetails json.RawMessage
	TotalAmount    decimal.Decimal
	PaymentMethod  string
	// IdempotencyKey, when set, makes a retried request return the first payment
	IdempotencyKey string
}

// Pay settles the first open order line of userID for productID: it re-checks
// stock, decrements it, marks the line paid and records the payment. Products,
// orders and payments are locked for the whole call and committed together.
func (s *Service) Pay(ctx context.Context, in PaymentInput) (model.Payment, error) {
	log := logger.FromContext(ctx).With(
		zap.String("user_id", in.UserID),
		zap.String("product_id", in.ProductID))

	if err := required("userId", in.UserID, "productId", in.ProductID, "paymentMethod", in.PaymentMethod); err != nil {
		return model.Payment{}, err
	}
	if !in.TotalAmount.IsPositive() {
		return model.Payment{}, apperr.Validation("totalAmount must be positive")
	}
	if len(in.PaymentDetails) == 0 || string(in.PaymentDetails) == "null" {
		return model.Payment{}, apperr.Validation("paymentDetails is required")
	}
	if !json.Valid(in.PaymentDetails) {
		return model.Payment{}, apperr.Validation("paymentDetails must be valid JSON")
	}

	var (
		payment  model.Payment
		replayed bool
		stock    int
		name     string
	)
	names := []string{CollectionProducts, CollectionOrders, CollectionPayments}
	err := s.store.Update(ctx, names, func(tx *store.Tx) error {
		payments, err := s.payments.Get(tx)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			i := slices.IndexFunc(payments, func(p model.Payment) bool { return p.IdempotencyKey == in.IdempotencyKey })
			if i >= 0 {
				prior := payments[i]
				if prior.UserID != in.UserID || prior.ProductID != in.ProductID {
					return apperr.Integrity("idempotency key %s was used for a different payment", in.IdempotencyKey)
				}
				payment, replayed = prior, true
				return nil
			}
		}

		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		pi := slices.IndexFunc(products, func(p model.Product) bool { return p.ProductID == in.ProductID })
		if pi < 0 {
			return apperr.NotFound("product %s not found", in.ProductID)
		}

		orders, err := s.orders.Get(tx)
		if err != nil {
			return err
		}
		oi, li := -1, -1
		for i := range orders {
			if orders[i].UserID != in.UserID || orders[i].Status == model.OrderCancelled {
				continue
			}
			if l := orders[i].UnpaidLine(in.ProductID); l >= 0 {
				oi, li = i, l
				break
			}
		}
		if oi < 0 {
			return apperr.NotFound("no unpaid order of user %s contains product %s", in.UserID, in.ProductID)
		}

		product := &products[pi]
		line := &orders[oi].Lines[li]
		if product.Quantity < line.Quantity {
			return apperr.InsufficientStock(product.ProductID, product.Quantity, line.Quantity)
		}

		id, err := nextID(s.paymentIDs, validate.Keys(payments, paymentKey), CollectionPayments)
		if err != nil {
			return err
		}
		now := s.clock()
		payment = model.Payment{
			PaymentID:      id,
			UserID:         in.UserID,
			OrderID:        orders[oi].OrderID,
			ProductID:      in.ProductID,
			Quantity:       line.Quantity,
			PaymentDetails: in.PaymentDetails,
			TotalAmount:    in.TotalAmount,
			PaymentMethod:  in.PaymentMethod,
			PaymentDate:    now,
			IdempotencyKey: in.IdempotencyKey,
		}

		product.Quantity -= line.Quantity
		line.PaymentID = id
		orders[oi].UpdatedAt = now
		stock, name = product.Quantity, product.Name

		if err := s.products.Put(tx, products); err != nil {
			return err
		}
		if err := s.orders.Put(tx, orders); err != nil {
			return err
		}
		return s.payments.Put(tx, append(payments, payment))
	})
	if err != nil {
		s.metrics.RecordPayment(paymentOutcome(err))
		log.Warn("Payment failed", zap.Error(err))
		return model.Payment{}, err
	}

	if replayed {
		s.metrics.RecordPayment("replayed")
		log.Info("Payment replayed", zap.String("payment_id", payment.PaymentID))
		return payment, nil
	}

	s.metrics.RecordPayment("success")
	s.metrics.UpdateInventory(payment.ProductID, name, stock)
	log.Info("Payment recorded",
		zap.String("payment_id", payment.PaymentID),
		zap.String("order_id", payment.OrderID),
		zap.Int("quantity", payment.Quantity),
		zap.Int("remaining_stock", stock))
	return payment, nil
}

func paymentOutcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInsufficientStock):
		return "insufficient_stock"
	case apperr.Is(err, apperr.KindNotFound):
		return "not_found"
	case apperr.Is(err, apperr.KindValidation), apperr.Is(err, apperr.KindIntegrity):
		return "rejected"
	case apperr.Is(err, apperr.KindUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// Payments lists the payments made by userID
func (s *Service) Payments(ctx context.Context, userID string) ([]model.Payment, error) {
	payments, err := s.payments.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Payment{}
	for _, p := range payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}
