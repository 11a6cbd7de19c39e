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

func (s *Service) InsertBrand(ctx context.Context, name string) (model.Brand, error) {
	log := logger.FromContext(ctx)
	if err := required("name", name); err != nil {
		return model.Brand{}, err
	}

	var brand model.Brand
	err := s.store.Update(ctx, []string{CollectionBrands}, func(tx *store.Tx) error {
		brands, err := s.brands.Get(tx)
		if err != nil {
			return err
		}
		if validate.FoldedKeys(brands, brandName).Has(validate.Fold(name)) {
			return apperr.Integrity("brand %q already exists", name)
		}
		id, err := nextID(s.ids, validate.Keys(brands, brandKey), CollectionBrands)
		if err != nil {
			return err
		}
		brand = model.Brand{BrandID: id, Name: name}
		return s.brands.Put(tx, append(brands, brand))
	})
	if err != nil {
		log.Warn("Failed to create brand", zap.String("name", name), zap.Error(err))
		return model.Brand{}, err
	}

	s.metrics.RecordOperation("brand", "create")
	log.Info("Brand created", zap.String("brand_id", brand.BrandID), zap.String("name", name))
	return brand, nil
}

func (s *Service) GetBrand(ctx context.Context, id string) (model.Brand, error) {
	brands, err := s.brands.Load(ctx)
	if err != nil {
		return model.Brand{}, err
	}
	i := slices.IndexFunc(brands, func(b model.Brand) bool { return b.BrandID == id })
	if i < 0 {
		return model.Brand{}, apperr.NotFound("brand %s not found", id)
	}
	return brands[i], nil
}

func (s *Service) ListBrands(ctx context.Context) ([]model.Brand, error) {
	return s.brands.Load(ctx)
}

func (s *Service) SearchBrands(ctx context.Context, q string) ([]model.Brand, error) {
	brands, err := s.brands.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Brand{}
	for _, b := range brands {
		if matches(q, b.Name) {
			out = append(out, b)
		}
	}
	return out, nil
}

// UpdateBrand renames a brand and every product that carries the old name
func (s *Service) UpdateBrand(ctx context.Context, id, name string) (model.Brand, error) {
	log := logger.FromContext(ctx)
	if err := required("name", name); err != nil {
		return model.Brand{}, err
	}

	var (
		brand   model.Brand
		renamed int
	)
	err := s.store.Update(ctx, []string{CollectionBrands, CollectionProducts}, func(tx *store.Tx) error {
		brands, err := s.brands.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(brands, func(b model.Brand) bool { return b.BrandID == id })
		if i < 0 {
			return apperr.NotFound("brand %s not found", id)
		}
		if slices.ContainsFunc(brands, func(b model.Brand) bool { return b.BrandID != id && sameName(b.Name, name) }) {
			return apperr.Integrity("brand %q already exists", name)
		}

		old := brands[i].Name
		brands[i].Name = name
		brand = brands[i]
		if old == name {
			return nil
		}

		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		for j := range products {
			if sameName(products[j].BrandName, old) {
				products[j].BrandName = name
				renamed++
			}
		}
		if renamed > 0 {
			if err := s.products.Put(tx, products); err != nil {
				return err
			}
		}
		return s.brands.Put(tx, brands)
	})
	if err != nil {
		log.Warn("Failed to update brand", zap.String("brand_id", id), zap.Error(err))
		return model.Brand{}, err
	}

	s.metrics.RecordOperation("brand", "update")
	log.Info("Brand updated",
		zap.String("brand_id", id),
		zap.String("name", name),
		zap.Int("products_renamed", renamed))
	return brand, nil
}

// DeleteBrand removes a brand that no product uses
func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)
	err := s.store.Update(ctx, []string{CollectionBrands, CollectionProducts}, func(tx *store.Tx) error {
		brands, err := s.brands.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(brands, func(b model.Brand) bool { return b.BrandID == id })
		if i < 0 {
			return apperr.NotFound("brand %s not found", id)
		}
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(products, func(p model.Product) bool { return sameName(p.BrandName, brands[i].Name) }) {
			return apperr.Integrity("brand %s is used by products", id)
		}
		return s.brands.Put(tx, slices.Delete(brands, i, i+1))
	})
	if err != nil {
		log.Warn("Failed to delete brand", zap.String("brand_id", id), zap.Error(err))
		return err
	}

	s.metrics.RecordOperation("brand", "delete")
	log.Info("Brand deleted", zap.String("brand_id", id))
	return nil
}
