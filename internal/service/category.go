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

type CategoryInput struct {
	Name      string
	ImagePath string
}

// CategoryPatch carries the fields to merge; nil means unchanged
type CategoryPatch struct {
	Name      *string
	ImagePath *string
}

func (s *Service) InsertCategory(ctx context.Context, in CategoryInput) (model.Category, error) {
	log := logger.FromContext(ctx)
	if err := required("name", in.Name); err != nil {
		return model.Category{}, err
	}

	var category model.Category
	err := s.store.Update(ctx, []string{CollectionCategories}, func(tx *store.Tx) error {
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		if validate.FoldedKeys(categories, categoryName).Has(validate.Fold(in.Name)) {
			return apperr.Integrity("category %q already exists", in.Name)
		}
		id, err := nextID(s.ids, validate.Keys(categories, categoryKey), CollectionCategories)
		if err != nil {
			return err
		}
		category = model.Category{CategoryID: id, Name: in.Name, ImagePath: in.ImagePath}
		return s.categories.Put(tx, append(categories, category))
	})
	if err != nil {
		log.Warn("Failed to create category", zap.String("name", in.Name), zap.Error(err))
		return model.Category{}, err
	}

	s.metrics.RecordOperation("category", "create")
	log.Info("Category created",
		zap.String("category_id", category.CategoryID),
		zap.String("name", category.Name))
	return category, nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (model.Category, error) {
	categories, err := s.categories.Load(ctx)
	if err != nil {
		return model.Category{}, err
	}
	i := slices.IndexFunc(categories, func(c model.Category) bool { return c.CategoryID == id })
	if i < 0 {
		return model.Category{}, apperr.NotFound("category %s not found", id)
	}
	return categories[i], nil
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.Load(ctx)
}

// SearchCategories matches q against category names, ignoring case
func (s *Service) SearchCategories(ctx context.Context, q string) ([]model.Category, error) {
	categories, err := s.categories.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Category{}
	for _, c := range categories {
		if matches(q, c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

// UpdateCategory merges patch into the category. A rename is applied to every
// product that references the old name in the same commit.
func (s *Service) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (model.Category, error) {
	log := logger.FromContext(ctx)
	if patch.Name != nil {
		if err := required("name", *patch.Name); err != nil {
			return model.Category{}, err
		}
	}

	var (
		category model.Category
		oldImage string
		renamed  int
	)
	err := s.store.Update(ctx, []string{CollectionCategories, CollectionProducts}, func(tx *store.Tx) error {
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(categories, func(c model.Category) bool { return c.CategoryID == id })
		if i < 0 {
			return apperr.NotFound("category %s not found", id)
		}
		old := categories[i]

		if patch.Name != nil && !sameName(*patch.Name, old.Name) {
			for _, c := range categories {
				if c.CategoryID != id && sameName(c.Name, *patch.Name) {
					return apperr.Integrity("category %q already exists", *patch.Name)
				}
			}
		}
		if patch.Name != nil {
			categories[i].Name = *patch.Name
		}
		if patch.ImagePath != nil {
			categories[i].ImagePath = *patch.ImagePath
		}
		category = categories[i]
		if category.ImagePath != old.ImagePath {
			oldImage = old.ImagePath
		}

		if category.Name != old.Name {
			products, err := s.products.Get(tx)
			if err != nil {
				return err
			}
			for j := range products {
				if sameName(products[j].CategoryName, old.Name) {
					products[j].CategoryName = category.Name
					renamed++
				}
			}
			if renamed > 0 {
				if err := s.products.Put(tx, products); err != nil {
					return err
				}
			}
		}
		return s.categories.Put(tx, categories)
	})
	if err != nil {
		log.Warn("Failed to update category", zap.String("category_id", id), zap.Error(err))
		return model.Category{}, err
	}

	s.removeImage(ctx, oldImage)
	s.metrics.RecordOperation("category", "update")
	log.Info("Category updated",
		zap.String("category_id", id),
		zap.String("name", category.Name),
		zap.Int("products_renamed", renamed))
	return category, nil
}

// DeleteCategory removes a category that no sub-category or product uses
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	var removed model.Category
	names := []string{CollectionCategories, CollectionSubCategories, CollectionProducts}
	err := s.store.Update(ctx, names, func(tx *store.Tx) error {
		categories, err := s.categories.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(categories, func(c model.Category) bool { return c.CategoryID == id })
		if i < 0 {
			return apperr.NotFound("category %s not found", id)
		}
		removed = categories[i]

		subCategories, err := s.subCategories.Get(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(subCategories, func(sc model.SubCategory) bool { return sc.CategoryID == id }) {
			return apperr.Integrity("category %s is used by sub-categories", id)
		}
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(products, func(p model.Product) bool { return sameName(p.CategoryName, removed.Name) }) {
			return apperr.Integrity("category %s is used by products", id)
		}

		return s.categories.Put(tx, slices.Delete(categories, i, i+1))
	})
	if err != nil {
		log.Warn("Failed to delete category", zap.String("category_id", id), zap.Error(err))
		return err
	}

	s.removeImage(ctx, removed.ImagePath)
	s.metrics.RecordOperation("category", "delete")
	log.Info("Category deleted", zap.String("category_id", id))
	return nil
}
