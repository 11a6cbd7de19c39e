package service

import (
	"context"
	"slices"
	"testing"

	"storefront/internal/apperr"

	"github.com/shopspring/decimal"
)

func TestProductRoundTrip(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	in := f.product("Phone", "199.99", 10)
	in.Description = "A phone"
	in.ImagePath = "products/phone.png"
	created := mustProduct(t, svc, in)

	got, err := svc.GetProduct(context.Background(), created.ProductID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Name != in.Name || got.CategoryName != in.CategoryName || got.SubCategoryName != in.SubCategoryName ||
		got.BrandName != in.BrandName || got.Quantity != in.Quantity || got.Description != in.Description ||
		got.UserID != in.UserID || got.ImagePath != in.ImagePath {
		t.Fatalf("product = %+v, want fields of %+v", got.Product, in)
	}
	if !got.Price.Equal(in.Price) {
		t.Fatalf("price = %s, want %s", got.Price, in.Price)
	}
	if !got.ActiveStatus {
		t.Fatal("new products are active")
	}
	if got.Owner == nil || got.Owner.UserID != f.seller.UserID || got.Owner.PasswordHash != "" {
		t.Fatalf("owner = %+v, want public seller", got.Owner)
	}
}

func TestInsertProductChecksReferences(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	ctx := context.Background()
	other, err := svc.InsertCategory(ctx, CategoryInput{Name: "Garden"})
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}

	tests := []struct {
		name string
		edit func(*ProductInput)
		kind apperr.Kind
	}{
		{"unknown brand", func(in *ProductInput) { in.BrandName = "Nobody" }, apperr.KindIntegrity},
		{"unknown owner", func(in *ProductInput) { in.UserID = "GHOST" }, apperr.KindIntegrity},
		{"sub-category of another category", func(in *ProductInput) { in.CategoryName = other.Name }, apperr.KindIntegrity},
		{"negative price", func(in *ProductInput) { in.Price = decimal.NewFromInt(-1) }, apperr.KindValidation},
		{"negative stock", func(in *ProductInput) { in.Quantity = -1 }, apperr.KindValidation},
		{"missing name", func(in *ProductInput) { in.Name = "" }, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.product("Phone", "1", 1)
			tt.edit(&in)
			_, err := svc.InsertProduct(ctx, in)
			if got := apperr.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %s, want %s (err %v)", got, tt.kind, err)
			}
		})
	}

	in := f.product("Phone", "1", 1)
	in.CategoryName, in.BrandName = "electronics", "ACME"
	if _, err := svc.InsertProduct(ctx, in); err != nil {
		t.Fatalf("names match ignoring case: %v", err)
	}
}

func TestUpdateProductPatch(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	price := decimal.RequireFromString("149.50")
	qty := 4
	updated, err := svc.UpdateProduct(ctx, p.ProductID, ProductPatch{Price: &price, Quantity: &qty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Price.Equal(price) || updated.Quantity != 4 || updated.Name != "Phone" {
		t.Fatalf("updated = %+v", updated)
	}

	brand := "Nobody"
	if _, err := svc.UpdateProduct(ctx, p.ProductID, ProductPatch{BrandName: &brand}); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("unknown brand: got %v, want integrity", err)
	}
	if stockOf(t, svc, p.ProductID) != 4 {
		t.Fatal("refused update must not change the product")
	}
}

func TestRenameCascadesToProducts(t *testing.T) {
	images := &removedImages{}
	svc := newTestService(t, WithImageRemover(images))
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	name, img := "Gadgets", "categories/new.png"
	if _, err := svc.UpdateCategory(ctx, f.category.CategoryID, CategoryPatch{Name: &name, ImagePath: &img}); err != nil {
		t.Fatalf("rename category: %v", err)
	}
	subName := "Handsets"
	if _, err := svc.UpdateSubCategory(ctx, f.sub.SubCategoryID, SubCategoryPatch{Name: &subName}); err != nil {
		t.Fatalf("rename sub-category: %v", err)
	}
	if _, err := svc.UpdateBrand(ctx, f.brand.BrandID, "Apex"); err != nil {
		t.Fatalf("rename brand: %v", err)
	}

	got, err := svc.GetProduct(ctx, p.ProductID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.CategoryName != "Gadgets" || got.SubCategoryName != "Handsets" || got.BrandName != "Apex" {
		t.Fatalf("product names = %s/%s/%s", got.CategoryName, got.SubCategoryName, got.BrandName)
	}

	detail, err := svc.GetSubCategory(ctx, f.sub.SubCategoryID)
	if err != nil {
		t.Fatalf("get sub-category: %v", err)
	}
	if detail.Category == nil || detail.Category.Name != "Gadgets" {
		t.Fatalf("joined category = %+v", detail.Category)
	}

	violations, err := svc.Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("violations after cascade: %v", violations)
	}
}

func TestMovingUsedSubCategoryIsRefused(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()
	other, err := svc.InsertCategory(ctx, CategoryInput{Name: "Garden"})
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}

	if _, err := svc.UpdateSubCategory(ctx, f.sub.SubCategoryID, SubCategoryPatch{CategoryID: &other.CategoryID}); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("move in use: got %v, want integrity", err)
	}
}

func TestDeletionGuards(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	if err := svc.DeleteCategory(ctx, f.category.CategoryID); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("category with sub-categories: got %v, want integrity", err)
	}
	if err := svc.DeleteSubCategory(ctx, f.sub.SubCategoryID); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("sub-category with products: got %v, want integrity", err)
	}
	if err := svc.DeleteBrand(ctx, f.brand.BrandID); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("brand with products: got %v, want integrity", err)
	}
	if err := svc.DeleteUser(ctx, f.seller.UserID); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("user with products: got %v, want integrity", err)
	}

	mustOrder(t, svc, "U1", p.ProductID, 1)
	if err := svc.DeleteProduct(ctx, p.ProductID); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("product in open order: got %v, want integrity", err)
	}
	if _, err := svc.Pay(ctx, payment("U1", p.ProductID)); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := svc.DeleteProduct(ctx, p.ProductID); err != nil {
		t.Fatalf("delete paid product: %v", err)
	}

	if err := svc.DeleteSubCategory(ctx, f.sub.SubCategoryID); err != nil {
		t.Fatalf("delete sub-category: %v", err)
	}
	if err := svc.DeleteCategory(ctx, f.category.CategoryID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if err := svc.DeleteBrand(ctx, f.brand.BrandID); err != nil {
		t.Fatalf("delete brand: %v", err)
	}
	if err := svc.DeleteCategory(ctx, f.category.CategoryID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second delete: got %v, want not found", err)
	}
}

func TestSearch(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	phone := mustProduct(t, svc, f.product("Smart Phone", "199.99", 10))
	mustProduct(t, svc, f.product("Charger", "9.99", 10))
	ctx := context.Background()

	products, err := svc.SearchProducts(ctx, "smart", "")
	if err != nil {
		t.Fatalf("search products: %v", err)
	}
	if len(products) != 1 || products[0].ProductID != phone.ProductID {
		t.Fatalf("products = %+v", products)
	}
	products, err = svc.SearchProducts(ctx, "acme", "someone-else")
	if err != nil {
		t.Fatalf("search by owner: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("owner filter ignored: %+v", products)
	}

	bySub, err := svc.ProductsBySubCategory(ctx, "phones")
	if err != nil {
		t.Fatalf("by sub-category: %v", err)
	}
	if len(bySub) != 2 {
		t.Fatalf("by sub-category = %d products, want 2", len(bySub))
	}

	subs, err := svc.SearchSubCategories(ctx, "electro")
	if err != nil {
		t.Fatalf("search sub-categories: %v", err)
	}
	if len(subs) != 1 || subs[0].SubCategoryID != f.sub.SubCategoryID {
		t.Fatalf("sub-categories = %+v", subs)
	}

	brands, err := svc.SearchBrands(ctx, "zzz")
	if err != nil {
		t.Fatalf("search brands: %v", err)
	}
	if brands == nil || len(brands) != 0 {
		t.Fatalf("brands = %#v, want empty", brands)
	}
}

func TestImagesRemovedAfterCommit(t *testing.T) {
	images := &removedImages{}
	svc := newTestService(t, WithImageRemover(images))
	ctx := context.Background()

	c, err := svc.InsertCategory(ctx, CategoryInput{Name: "Books", ImagePath: "categories/books.png"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := svc.DeleteCategory(ctx, c.CategoryID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !slices.Equal(images.paths, []string{"categories/books.png"}) {
		t.Fatalf("removed = %v", images.paths)
	}
}
