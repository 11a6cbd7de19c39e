package handler

import (
	"net/http"

	"storefront/internal/apperr"
	mid "storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest defines the body of a product creation request. The owner
// is always the authenticated user.
type ProductRequest struct {
	CategoryName    string          `json:"categoryName"`
	SubCategoryName string          `json:"subCategoryName"`
	BrandName       string          `json:"brandName"`
	Name            string          `json:"name"`
	ImagePath       string          `json:"imagePath"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	Description     string          `json:"description"`
}

type ProductPatchRequest struct {
	CategoryName    *string          `json:"categoryName"`
	SubCategoryName *string          `json:"subCategoryName"`
	BrandName       *string          `json:"brandName"`
	Name            *string          `json:"name"`
	ImagePath       *string          `json:"imagePath"`
	Price           *decimal.Decimal `json:"price"`
	Quantity        *int             `json:"quantity"`
	Description     *string          `json:"description"`
	ActiveStatus    *bool            `json:"activeStatus"`
}

// ListProducts handles ?subCategory=, ?q= and ?userId= filters
func (h *Handler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		products []model.Product
		err      error
	)
	q, userID := c.QueryParam("q"), c.QueryParam("userId")
	switch sub := c.QueryParam("subCategory"); {
	case sub != "":
		products, err = h.svc.ProductsBySubCategory(ctx, sub)
	case q != "":
		products, err = h.svc.SearchProducts(ctx, q, userID)
	case userID != "":
		products, err = h.svc.ProductsByUser(ctx, userID)
	default:
		products, err = h.svc.ListProducts(ctx)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct returns the product with its owner embedded
func (h *Handler) GetProduct(c echo.Context) error {
	detail, err := h.svc.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) CreateProduct(c echo.Context) error {
	log := logger.FromEcho(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	product, err := h.svc.InsertProduct(c.Request().Context(), service.ProductInput{
		CategoryName:    req.CategoryName,
		SubCategoryName: req.SubCategoryName,
		BrandName:       req.BrandName,
		Name:            req.Name,
		ImagePath:       req.ImagePath,
		Price:           req.Price,
		Quantity:        req.Quantity,
		Description:     req.Description,
		UserID:          mid.UserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	log.Info("Product created", zap.String("product_id", product.ProductID))
	return c.JSON(http.StatusCreated, product)
}

// ownProduct fails with not found unless the caller owns product id or is an admin
func (h *Handler) ownProduct(c echo.Context, id string) error {
	detail, err := h.svc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if detail.UserID != mid.UserID(c) && mid.UserType(c) != model.UserTypeAdmin {
		return apperr.NotFound("product %s not found", id)
	}
	return nil
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	id := c.Param("id")
	var req ProductPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if err := h.ownProduct(c, id); err != nil {
		return respondError(c, err)
	}
	product, err := h.svc.UpdateProduct(c.Request().Context(), id, service.ProductPatch(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	id := c.Param("id")
	if err := h.ownProduct(c, id); err != nil {
		return respondError(c, err)
	}
	if err := h.svc.DeleteProduct(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
