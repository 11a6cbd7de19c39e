package model

import "github.com/shopspring/decimal"

func init() {
	// prices and totals are stored as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type Category struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	ImagePath  string `json:"imagePath,omitempty"`
}

type SubCategory struct {
	SubCategoryID string `json:"subCategoryId"`
	Name          string `json:"name"`
	CategoryID    string `json:"categoryId"`
}

// SubCategoryDetail is a sub-category joined with its category
type SubCategoryDetail struct {
	SubCategory
	Category *Category `json:"category"`
}

type Brand struct {
	BrandID string `json:"brandId"`
	Name    string `json:"name"`
}

// Product references its catalog entries by name and its owner by id
type Product struct {
	ProductID       string          `json:"productId"`
	CategoryName    string          `json:"categoryName"`
	SubCategoryName string          `json:"subCategoryName"`
	BrandName       string          `json:"brandName"`
	Name            string          `json:"name"`
	ImagePath       string          `json:"imagePath,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	Description     string          `json:"description,omitempty"`
	UserID          string          `json:"userId"`
	ActiveStatus    bool            `json:"activeStatus"`
}

// ProductDetail is a product joined with its owner
type ProductDetail struct {
	Product
	Owner *User `json:"owner"`
}
