package service

import (
	"context"

	"storefront/internal/store"
	"storefront/internal/validate"
)

// Audit checks every stored reference and quantity rule across all
// collections and returns the violations found.
func (s *Service) Audit(ctx context.Context) ([]validate.Violation, error) {
	var result validate.Result
	err := s.store.View(ctx, Collections, func(tx *store.Tx) error {
		users, err := s.users.Get(tx)
		if err != nil {
			return err
		}
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		subs, err := s.subCategories.Get(tx)
		if err != nil {
			return err
		}
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		carts, err := s.carts.Get(tx)
		if err != nil {
			return err
		}
		orders, err := s.orders.Get(tx)
		if err != nil {
			return err
		}
		payments, err := s.payments.Get(tx)
		if err != nil {
			return err
		}

		v := validate.New()
		categoryIDs := validate.Keys(categories, categoryKey)
		productIDs := validate.Keys(products, productKey)
		orderIDs := validate.Keys(orders, orderKey)

		for _, sc := range subs {
			v.Ref("subcategories["+sc.SubCategoryID+"].categoryId", sc.CategoryID, CollectionCategories, categoryIDs)
		}
		for _, p := range products {
			field := "products[" + p.ProductID + "]"
			v.Rule(p.Quantity >= 0, field+".quantity", p.ProductID, "stock is negative")
			if err := s.checkProductRefs(tx, p); err != nil {
				v.Rule(false, field, p.ProductID, err.Error())
			}
		}
		for _, c := range carts {
			for _, l := range c.Lines {
				v.Ref("carts["+c.UserID+"].productId", l.ProductID, CollectionProducts, productIDs)
			}
		}
		for _, o := range orders {
			v.Rule(o.Status.Valid(), "orders["+o.OrderID+"].status", string(o.Status), "unknown status")
			if !o.Status.Open() {
				continue
			}
			for _, l := range o.Lines {
				if !l.Paid() {
					v.Ref("orders["+o.OrderID+"].productId", l.ProductID, CollectionProducts, productIDs)
				}
			}
		}
		for _, p := range payments {
			v.Ref("payments["+p.PaymentID+"].orderId", p.OrderID, CollectionOrders, orderIDs)
		}

		seen := make(map[string]int)
		for _, u := range users {
			if u.Active {
				seen[validate.Fold(u.EmailAddress)]++
			}
		}
		for email, n := range seen {
			v.Rule(n == 1, "users.emailAddress", email, "held by more than one active user")
		}

		result = v.Result()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result.Violations, nil
}
