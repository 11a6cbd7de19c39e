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

type ProductInput struct {
	CategoryName    string
	SubCategoryName string
	BrandName       string
	Name            string
	ImagePath       string
	Price           decimal.Decimal
	Quantity        int
	Description     string
	UserID          string
}

type ProductPatch struct {
	CategoryName    *string
	SubCategoryName *string
	BrandName       *string
	Name            *string
	ImagePath       *string
	Price           *decimal.Decimal
	Quantity        *int
	Description     *string
	ActiveStatus    *bool
}

var productRefCollections = []string{
	CollectionProducts,
	CollectionCategories,
	CollectionSubCategories,
	CollectionBrands,
	CollectionUsers,
}

func checkProductFields(p model.Product) error {
	if err := required(
		"name", p.Name,
		"categoryName", p.CategoryName,
		"subCategoryName", p.SubCategoryName,
		"brandName", p.BrandName,
		"userId", p.UserID,
	); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	if p.Quantity < 0 {
		return apperr.Validation("quantity must not be negative")
	}
	return nil
}

// checkProductRefs resolves the catalog names and owner of p inside tx
func (s *Service) checkProductRefs(tx *store.Tx, p model.Product) error {
	categories, err := s.categories.Get(tx)
	if err != nil {
		return err
	}
	subs, err := s.subCategories.Get(tx)
	if err != nil {
		return err
	}
	brands, err := s.brands.Get(tx)
	if err != nil {
		return err
	}
	users, err := s.users.Get(tx)
	if err != nil {
		return err
	}

	subNames := validate.FoldedKeys(subs, func(sc model.SubCategory) string { return sc.Name })
	v := validate.New().
		RefName("categoryName", p.CategoryName, CollectionCategories, validate.FoldedKeys(categories, categoryName)).
		RefName("subCategoryName", p.SubCategoryName, CollectionSubCategories, subNames).
		RefName("brandName", p.BrandName, CollectionBrands, validate.FoldedKeys(brands, brandName)).
		Ref("userId", p.UserID, CollectionUsers, validate.Keys(users, userKey))

	ci := slices.IndexFunc(categories, func(c model.Category) bool { return sameName(c.Name, p.CategoryName) })
	if ci >= 0 && subNames.Has(validate.Fold(p.SubCategoryName)) {
		belongs := slices.ContainsFunc(subs, func(sc model.SubCategory) bool {
			return sc.CategoryID == categories[ci].CategoryID && sameName(sc.Name, p.SubCategoryName)
		})
		v.Rule(belongs, "subCategoryName", p.SubCategoryName, "does not belong to category "+categories[ci].Name)
	}
	return v.Result().Err()
}

// InsertProduct adds an active product owned by in.UserID
func (s *Service) InsertProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	log := logger.FromContext(ctx)
	product := model.Product{
		CategoryName:    in.CategoryName,
		SubCategoryName: in.SubCategoryName,
		BrandName:       in.BrandName,
		Name:            in.Name,
		ImagePath:       in.ImagePath,
		Price:           in.Price,
		Quantity:        in.Quantity,
		Description:     in.Description,
		UserID:          in.UserID,
		ActiveStatus:    true,
	}
	if err := checkProductFields(product); err != nil {
		return model.Product{}, err
	}

	err := s.store.Update(ctx, productRefCollections, func(tx *store.Tx) error {
		if err := s.checkProductRefs(tx, product); err != nil {
			return err
		}
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		id, err := nextID(s.ids, validate.Keys(products, productKey), CollectionProducts)
		if err != nil {
			return err
		}
		product.ProductID = id
		return s.products.Put(tx, append(products, product))
	})
	if err != nil {
		log.Warn("Failed to create product", zap.String("name", in.Name), zap.Error(err))
		return model.Product{}, err
	}

	s.metrics.RecordOperation("product", "create")
	s.metrics.UpdateInventory(product.ProductID, product.Name, product.Quantity)
	log.Info("Product created",
		zap.String("product_id", product.ProductID),
		zap.String("name", product.Name),
		zap.Int("quantity", product.Quantity))
	return product, nil
}

// GetProduct returns the product joined with its owner
func (s *Service) GetProduct(ctx context.Context, id string) (model.ProductDetail, error) {
	var detail model.ProductDetail
	err := s.store.View(ctx, []string{CollectionProducts, CollectionUsers}, func(tx *store.Tx) error {
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(products, func(p model.Product) bool { return p.ProductID == id })
		if i < 0 {
			return apperr.NotFound("product %s not found", id)
		}
		detail.Product = products[i]

		users, err := s.users.Get(tx)
		if err != nil {
			return err
		}
		if ui := slices.IndexFunc(users, func(u model.User) bool { return u.UserID == products[i].UserID }); ui >= 0 {
			owner := users[ui].Public()
			detail.Owner = &owner
		}
		return nil
	})
	return detail, err
}

func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.products.Load(ctx)
}

func (s *Service) filterProducts(ctx context.Context, keep func(model.Product) bool) ([]model.Product, error) {
	products, err := s.products.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Product{}
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ProductsByUser lists the products owned by userID
func (s *Service) ProductsByUser(ctx context.Context, userID string) ([]model.Product, error) {
	return s.filterProducts(ctx, func(p model.Product) bool { return p.UserID == userID })
}

// ProductsBySubCategory lists the products filed under a sub-category name
func (s *Service) ProductsBySubCategory(ctx context.Context, name string) ([]model.Product, error) {
	return s.filterProducts(ctx, func(p model.Product) bool { return sameName(p.SubCategoryName, name) })
}

// SearchProducts matches q against product, category, sub-category and brand
// names. A non-empty userID restricts the search to that owner.
func (s *Service) SearchProducts(ctx context.Context, q, userID string) ([]model.Product, error) {
	return s.filterProducts(ctx, func(p model.Product) bool {
		if userID != "" && p.UserID != userID {
			return false
		}
		return matches(q, p.Name, p.CategoryName, p.SubCategoryName, p.BrandName)
	})
}

func (p ProductPatch) apply(dst *model.Product) {
	if p.CategoryName != nil {
		dst.CategoryName = *p.CategoryName
	}
	if p.SubCategoryName != nil {
		dst.SubCategoryName = *p.SubCategoryName
	}
	if p.BrandName != nil {
		dst.BrandName = *p.BrandName
	}
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.ImagePath != nil {
		dst.ImagePath = *p.ImagePath
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Quantity != nil {
		dst.Quantity = *p.Quantity
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.ActiveStatus != nil {
		dst.ActiveStatus = *p.ActiveStatus
	}
}

// UpdateProduct merges patch into the product and re-validates its references
func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (model.Product, error) {
	log := logger.FromContext(ctx)

	var (
		product  model.Product
		oldImage string
	)
	err := s.store.Update(ctx, productRefCollections, func(tx *store.Tx) error {
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(products, func(p model.Product) bool { return p.ProductID == id })
		if i < 0 {
			return apperr.NotFound("product %s not found", id)
		}

		old := products[i]
		patch.apply(&products[i])
		product = products[i]
		if err := checkProductFields(product); err != nil {
			return err
		}
		if err := s.checkProductRefs(tx, product); err != nil {
			return err
		}
		if product.ImagePath != old.ImagePath {
			oldImage = old.ImagePath
		}
		return s.products.Put(tx, products)
	})
	if err != nil {
		log.Warn("Failed to update product", zap.String("product_id", id), zap.Error(err))
		return model.Product{}, err
	}

	s.removeImage(ctx, oldImage)
	s.metrics.RecordOperation("product", "update")
	s.metrics.UpdateInventory(product.ProductID, product.Name, product.Quantity)
	log.Info("Product updated", zap.String("product_id", id))
	return product, nil
}

// DeleteProduct removes a product unless an open order still has an unpaid
// line for it. Its lines are dropped from every cart in the same commit.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	var (
		removed model.Product
		carted  int
	)
	names := []string{CollectionProducts, CollectionOrders, CollectionCarts}
	err := s.store.Update(ctx, names, func(tx *store.Tx) error {
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(products, func(p model.Product) bool { return p.ProductID == id })
		if i < 0 {
			return apperr.NotFound("product %s not found", id)
		}
		removed = products[i]

		orders, err := s.orders.Get(tx)
		if err != nil {
			return err
		}
		for _, o := range orders {
			if o.Status.Open() && o.UnpaidLine(id) >= 0 {
				return apperr.Integrity("product %s has unpaid lines in order %s", id, o.OrderID)
			}
		}

		carts, err := s.carts.Get(tx)
		if err != nil {
			return err
		}
		for j := range carts {
			if carts[j].Remove(id) == nil {
				carted++
			}
		}
		if carted > 0 {
			if err := s.carts.Put(tx, carts); err != nil {
				return err
			}
		}
		return s.products.Put(tx, slices.Delete(products, i, i+1))
	})
	if err != nil {
		log.Warn("Failed to delete product", zap.String("product_id", id), zap.Error(err))
		return err
	}

	s.removeImage(ctx, removed.ImagePath)
	s.metrics.RecordOperation("product", "delete")
	s.metrics.ForgetProduct(removed.ProductID)
	log.Info("Product deleted",
		zap.String("product_id", id),
		zap.Int("carts_cleaned", carted))
	return nil
}
