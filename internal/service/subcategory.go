package service

import (
	"context"
	"slices"

	"storefront/internal/apperr"
	"storefront/internal/model"
	"storefront/internal/store"
	"storefront/internal/validate"
	"storefront/pkg/logger"

	"go.uber.org/zap"
)

type SubCategoryInput struct {
	Name       string
	CategoryID string
}

type SubCategoryPatch struct {
	Name       *string
	CategoryID *string
}

// usesSubCategory reports whether p references sub-category name under category name
func usesSubCategory(p model.Product, subName, catName string) bool {
	return sameName(p.SubCategoryName, subName) && sameName(p.CategoryName, catName)
}

func categoryNameOf(categories []model.Category, id string) string {
	if i := slices.IndexFunc(categories, func(c model.Category) bool { return c.CategoryID == id }); i >= 0 {
		return categories[i].Name
	}
	return ""
}

func (s *Service) InsertSubCategory(ctx context.Context, in SubCategoryInput) (model.SubCategory, error) {
	log := logger.FromContext(ctx)
	if err := required("name", in.Name, "categoryId", in.CategoryID); err != nil {
		return model.SubCategory{}, err
	}

	var sub model.SubCategory
	err := s.store.Update(ctx, []string{CollectionSubCategories, CollectionCategories}, func(tx *store.Tx) error {
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		if err := validate.New().
			Ref("categoryId", in.CategoryID, CollectionCategories, validate.Keys(categories, categoryKey)).
			Result().Err(); err != nil {
			return err
		}

		subs, err := s.subCategories.Get(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(subs, func(sc model.SubCategory) bool {
			return sc.CategoryID == in.CategoryID && sameName(sc.Name, in.Name)
		}) {
			return apperr.Integrity("sub-category %q already exists in category %s", in.Name, in.CategoryID)
		}

		id, err := nextID(s.ids, validate.Keys(subs, subCategoryKey), CollectionSubCategories)
		if err != nil {
			return err
		}
		sub = model.SubCategory{SubCategoryID: id, Name: in.Name, CategoryID: in.CategoryID}
		return s.subCategories.Put(tx, append(subs, sub))
	})
	if err != nil {
		log.Warn("Failed to create sub-category",
			zap.String("name", in.Name),
			zap.String("category_id", in.CategoryID),
			zap.Error(err))
		return model.SubCategory{}, err
	}

	s.metrics.RecordOperation("subcategory", "create")
	log.Info("Sub-category created",
		zap.String("sub_category_id", sub.SubCategoryID),
		zap.String("category_id", sub.CategoryID))
	return sub, nil
}

// GetSubCategory returns the sub-category joined with its category
func (s *Service) GetSubCategory(ctx context.Context, id string) (model.SubCategoryDetail, error) {
	var detail model.SubCategoryDetail
	err := s.store.View(ctx, []string{CollectionSubCategories, CollectionCategories}, func(tx *store.Tx) error {
		subs, err := s.subCategories.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(subs, func(sc model.SubCategory) bool { return sc.SubCategoryID == id })
		if i < 0 {
			return apperr.NotFound("sub-category %s not found", id)
		}
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		detail.SubCategory = subs[i]
		if ci := slices.IndexFunc(categories, func(c model.Category) bool { return c.CategoryID == subs[i].CategoryID }); ci >= 0 {
			category := categories[ci]
			detail.Category = &category
		}
		return nil
	})
	return detail, err
}

func (s *Service) ListSubCategories(ctx context.Context) ([]model.SubCategory, error) {
	return s.subCategories.Load(ctx)
}

// SearchSubCategories matches q against the sub-category name or its category name
func (s *Service) SearchSubCategories(ctx context.Context, q string) ([]model.SubCategory, error) {
	out := []model.SubCategory{}
	err := s.store.View(ctx, []string{CollectionSubCategories, CollectionCategories}, func(tx *store.Tx) error {
		subs, err := s.subCategories.Get(tx)
		if err != nil {
			return err
		}
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		for _, sc := range subs {
			if matches(q, sc.Name, categoryNameOf(categories, sc.CategoryID)) {
				out = append(out, sc)
			}
		}
		return nil
	})
	return out, err
}

// UpdateSubCategory merges patch. Moving to another category is refused while
// products use the sub-category; a rename is applied to those products.
func (s *Service) UpdateSubCategory(ctx context.Context, id string, patch SubCategoryPatch) (model.SubCategory, error) {
	log := logger.FromContext(ctx)
	if patch.Name != nil {
		if err := required("name", *patch.Name); err != nil {
			return model.SubCategory{}, err
		}
	}
	if patch.CategoryID != nil {
		if err := required("categoryId", *patch.CategoryID); err != nil {
			return model.SubCategory{}, err
		}
	}

	var (
		sub     model.SubCategory
		renamed int
	)
	names := []string{CollectionSubCategories, CollectionCategories, CollectionProducts}
	err := s.store.Update(ctx, names, func(tx *store.Tx) error {
		subs, err := s.subCategories.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(subs, func(sc model.SubCategory) bool { return sc.SubCategoryID == id })
		if i < 0 {
			return apperr.NotFound("sub-category %s not found", id)
		}
		old := subs[i]

		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		oldCategory := categoryNameOf(categories, old.CategoryID)
		inUse := slices.ContainsFunc(products, func(p model.Product) bool {
			return usesSubCategory(p, old.Name, oldCategory)
		})

		if patch.CategoryID != nil && *patch.CategoryID != old.CategoryID {
			if err := validate.New().
				Ref("categoryId", *patch.CategoryID, CollectionCategories, validate.Keys(categories, categoryKey)).
				Result().Err(); err != nil {
				return err
			}
			if inUse {
				return apperr.Integrity("sub-category %s is used by products and cannot change category", id)
			}
			subs[i].CategoryID = *patch.CategoryID
		}
		if patch.Name != nil {
			subs[i].Name = *patch.Name
		}
		sub = subs[i]

		if sub.CategoryID != old.CategoryID || !sameName(sub.Name, old.Name) {
			if slices.ContainsFunc(subs, func(sc model.SubCategory) bool {
				return sc.SubCategoryID != id && sc.CategoryID == sub.CategoryID && sameName(sc.Name, sub.Name)
			}) {
				return apperr.Integrity("sub-category %q already exists in category %s", sub.Name, sub.CategoryID)
			}
		}

		if sub.Name != old.Name && inUse {
			for j := range products {
				if usesSubCategory(products[j], old.Name, oldCategory) {
					products[j].SubCategoryName = sub.Name
					renamed++
				}
			}
			if err := s.products.Put(tx, products); err != nil {
				return err
			}
		}
		return s.subCategories.Put(tx, subs)
	})
	if err != nil {
		log.Warn("Failed to update sub-category", zap.String("sub_category_id", id), zap.Error(err))
		return model.SubCategory{}, err
	}

	s.metrics.RecordOperation("subcategory", "update")
	log.Info("Sub-category updated",
		zap.String("sub_category_id", id),
		zap.Int("products_renamed", renamed))
	return sub, nil
}

// DeleteSubCategory removes a sub-category that no product uses
func (s *Service) DeleteSubCategory(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)
	names := []string{CollectionSubCategories, CollectionCategories, CollectionProducts}
	err := s.store.Update(ctx, names, func(tx *store.Tx) error {
		subs, err := s.subCategories.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(subs, func(sc model.SubCategory) bool { return sc.SubCategoryID == id })
		if i < 0 {
			return apperr.NotFound("sub-category %s not found", id)
		}
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		catName := categoryNameOf(categories, subs[i].CategoryID)
		if slices.ContainsFunc(products, func(p model.Product) bool {
			return usesSubCategory(p, subs[i].Name, catName)
		}) {
			return apperr.Integrity("sub-category %s is used by products", id)
		}
		return s.subCategories.Put(tx, slices.Delete(subs, i, i+1))
	})
	if err != nil {
		log.Warn("Failed to delete sub-category", zap.String("sub_category_id", id), zap.Error(err))
		return err
	}

	s.metrics.RecordOperation("subcategory", "delete")
	log.Info("Sub-category deleted", zap.String("sub_category_id", id))
	return nil
}
