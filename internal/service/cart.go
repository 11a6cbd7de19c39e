package service

import (
	"context"
	"errors"
	"slices"

	"storefront/internal/apperr"
	"storefront/internal/model"
	"storefront/internal/store"
	"storefront/internal/validate"
	"storefront/pkg/logger"

	"go.uber.org/zap"
)

func findCart(carts []model.Cart, userID string) int {
	return slices.IndexFunc(carts, func(c model.Cart) bool { return c.UserID == userID })
}

func cartLines(c model.Cart) []model.CartLine {
	if c.Lines == nil {
		return []model.CartLine{}
	}
	return c.Lines
}

// AddCartLine merges quantity units of productID into the user's cart
func (s *Service) AddCartLine(ctx context.Context, userID, productID string, quantity int) ([]model.CartLine, error) {
	log := logger.FromContext(ctx)
	if err := required("userId", userID, "productId", productID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	var lines []model.CartLine
	err := s.store.Update(ctx, []string{CollectionCarts, CollectionProducts}, func(tx *store.Tx) error {
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		if !validate.Keys(products, productKey).Has(productID) {
			return apperr.NotFound("product %s not found", productID)
		}

		carts, err := s.carts.Get(tx)
		if err != nil {
			return err
		}
		i := findCart(carts, userID)
		if i < 0 {
			carts = append(carts, model.Cart{UserID: userID})
			i = len(carts) - 1
		}
		if err := carts[i].Add(productID, quantity); err != nil {
			return apperr.Validation("%v", err)
		}
		lines = cartLines(carts[i])
		return s.carts.Put(tx, carts)
	})
	if err != nil {
		log.Warn("Failed to add cart line",
			zap.String("user_id", userID),
			zap.String("product_id", productID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordOperation("cart", "add")
	log.Info("Cart line added",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity))
	return lines, nil
}

// GetCart returns the user's cart lines, empty when the user has no cart
func (s *Service) GetCart(ctx context.Context, userID string) ([]model.CartLine, error) {
	if err := required("userId", userID); err != nil {
		return nil, err
	}
	carts, err := s.carts.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := findCart(carts, userID); i >= 0 {
		return cartLines(carts[i]), nil
	}
	return []model.CartLine{}, nil
}

// RemoveCartLine drops the line for productID and leaves the others untouched
func (s *Service) RemoveCartLine(ctx context.Context, userID, productID string) ([]model.CartLine, error) {
	return s.mutateCart(ctx, "remove", userID, productID, func(c *model.Cart) error {
		return c.Remove(productID)
	})
}

// SetCartQuantity replaces the quantity of an existing line. Stock is checked at payment.
func (s *Service) SetCartQuantity(ctx context.Context, userID, productID string, quantity int) ([]model.CartLine, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	return s.mutateCart(ctx, "set_quantity", userID, productID, func(c *model.Cart) error {
		return c.SetQty(productID, quantity)
	})
}

func (s *Service) mutateCart(ctx context.Context, op, userID, productID string, fn func(*model.Cart) error) ([]model.CartLine, error) {
	log := logger.FromContext(ctx)
	if err := required("userId", userID, "productId", productID); err != nil {
		return nil, err
	}

	var lines []model.CartLine
	err := s.store.Update(ctx, []string{CollectionCarts}, func(tx *store.Tx) error {
		carts, err := s.carts.Get(tx)
		if err != nil {
			return err
		}
		i := findCart(carts, userID)
		if i < 0 {
			return apperr.NotFound("cart for user %s not found", userID)
		}
		if err := fn(&carts[i]); err != nil {
			if errors.Is(err, model.ErrLineNotFound) {
				return apperr.NotFound("product %s is not in the cart", productID)
			}
			return apperr.Validation("%v", err)
		}
		lines = cartLines(carts[i])
		return s.carts.Put(tx, carts)
	})
	if err != nil {
		log.Warn("Failed to update cart",
			zap.String("operation", op),
			zap.String("user_id", userID),
			zap.String("product_id", productID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordOperation("cart", op)
	log.Info("Cart updated",
		zap.String("operation", op),
		zap.String("user_id", userID),
		zap.String("product_id", productID))
	return lines, nil
}
