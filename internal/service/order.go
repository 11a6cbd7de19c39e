package service

import (
	"context"
	"slices"

	"storefront/internal/apperr"
	"storefront/internal/model"
	"storefront/internal/store"
	"storefront/internal/validate"
	"storefront/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderInput struct {
	UserID          string
	Lines           []model.CartLine
	TotalAmount     decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
}

func (in OrderInput) validate() error {
	if err := required(
		"userId", in.UserID,
		"shippingAddress", in.ShippingAddress,
		"paymentMethod", in.PaymentMethod,
	); err != nil {
		return err
	}
	if len(in.Lines) == 0 {
		return apperr.Validation("at least one order line is required")
	}
	for _, l := range in.Lines {
		if err := required("productId", l.ProductID); err != nil {
			return err
		}
		if l.Quantity < 1 {
			return apperr.Validation("quantity for %s must be at least 1", l.ProductID)
		}
	}
	if !in.TotalAmount.IsPositive() {
		return apperr.Validation("totalAmount must be positive")
	}
	return nil
}

// mergeLines folds repeated products into one line, keeping first-seen order
func mergeLines(lines []model.CartLine) []model.OrderLine {
	out := make([]model.OrderLine, 0, len(lines))
	for _, l := range lines {
		i := slices.IndexFunc(out, func(o model.OrderLine) bool { return o.ProductID == l.ProductID })
		if i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, model.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// PlaceOrder records a new Pending order
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (model.Order, error) {
	log := logger.FromContext(ctx)
	if err := in.validate(); err != nil {
		return model.Order{}, err
	}

	var order model.Order
	err := s.store.Update(ctx, []string{CollectionOrders, CollectionProducts}, func(tx *store.Tx) error {
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		known := validate.Keys(products, productKey)
		v := validate.New()
		lines := mergeLines(in.Lines)
		for _, l := range lines {
			v.Ref("productId", l.ProductID, CollectionProducts, known)
		}
		if err := v.Result().Err(); err != nil {
			return err
		}

		orders, err := s.orders.Get(tx)
		if err != nil {
			return err
		}
		id, err := nextID(s.orderIDs, validate.Keys(orders, orderKey), CollectionOrders)
		if err != nil {
			return err
		}

		now := s.clock()
		order = model.Order{
			OrderID:         id,
			UserID:          in.UserID,
			Lines:           lines,
			TotalAmount:     in.TotalAmount,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			Status:          model.OrderPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return s.orders.Put(tx, append(orders, order))
	})
	if err != nil {
		log.Warn("Failed to place order", zap.String("user_id", in.UserID), zap.Error(err))
		return model.Order{}, err
	}

	s.metrics.RecordOperation("order", "place")
	log.Info("Order placed",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", order.UserID),
		zap.Int("lines", len(order.Lines)),
		zap.String("total_amount", order.TotalAmount.String()))
	return order, nil
}

// UpdateOrderStatus moves an order owned by userID to status. A missing order
// and an order of another user are both reported as not found.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, userID, status string) (model.Order, error) {
	log := logger.FromContext(ctx)
	if err := required("orderId", orderID, "userId", userID, "status", status); err != nil {
		return model.Order{}, err
	}
	next := model.OrderStatus(status)
	if !next.Valid() {
		return model.Order{}, apperr.Validation("unknown order status %q", status)
	}

	var order model.Order
	err := s.store.Update(ctx, []string{CollectionOrders}, func(tx *store.Tx) error {
		orders, err := s.orders.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(orders, func(o model.Order) bool {
			return o.OrderID == orderID && o.UserID == userID
		})
		if i < 0 {
			return apperr.NotFound("order %s not found", orderID)
		}

		current := orders[i].Status
		if current == next {
			order = orders[i]
			return nil
		}
		if !current.CanTransition(next) {
			return apperr.Integrity("order %s cannot move from %s to %s", orderID, current, next)
		}
		orders[i].Status = next
		orders[i].UpdatedAt = s.clock()
		order = orders[i]
		return s.orders.Put(tx, orders)
	})
	if err != nil {
		log.Warn("Failed to update order status",
			zap.String("order_id", orderID),
			zap.String("user_id", userID),
			zap.String("status", status),
			zap.Error(err))
		return model.Order{}, err
	}

	s.metrics.RecordOperation("order", "update_status")
	log.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(order.Status)))
	return order, nil
}

// Orders lists the orders placed by userID
func (s *Service) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.orders.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Order{}
	for _, o := range orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// Order returns one order of userID
func (s *Service) Order(ctx context.Context, orderID, userID string) (model.Order, error) {
	orders, err := s.orders.Load(ctx)
	if err != nil {
		return model.Order{}, err
	}
	for _, o := range orders {
		if o.OrderID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return model.Order{}, apperr.NotFound("order %s not found", orderID)
}
