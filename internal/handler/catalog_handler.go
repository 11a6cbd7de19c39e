package handler

import (
	"net/http"

	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CategoryRequest struct {
	Name      string `json:"name"`
	ImagePath string `json:"imagePath"`
}

type CategoryPatchRequest struct {
	Name      *string `json:"name"`
	ImagePath *string `json:"imagePath"`
}

type SubCategoryRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
}

type SubCategoryPatchRequest struct {
	Name       *string `json:"name"`
	CategoryID *string `json:"categoryId"`
}

type BrandRequest struct {
	Name string `json:"name"`
}

// ListCategories lists every category, or those matching ?q=
func (h *Handler) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	if q := c.QueryParam("q"); q != "" {
		categories, err := h.svc.SearchCategories(ctx, q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, categories)
	}
	categories, err := h.svc.ListCategories(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *Handler) GetCategory(c echo.Context) error {
	category, err := h.svc.GetCategory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *Handler) CreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	category, err := h.svc.InsertCategory(c.Request().Context(), service.CategoryInput(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	var req CategoryPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	category, err := h.svc.UpdateCategory(c.Request().Context(), c.Param("id"), service.CategoryPatch(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *Handler) DeleteCategory(c echo.Context) error {
	if err := h.svc.DeleteCategory(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSubCategories lists every sub-category, or those matching ?q=
func (h *Handler) ListSubCategories(c echo.Context) error {
	ctx := c.Request().Context()
	if q := c.QueryParam("q"); q != "" {
		subs, err := h.svc.SearchSubCategories(ctx, q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, subs)
	}
	subs, err := h.svc.ListSubCategories(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, subs)
}

// GetSubCategory returns the sub-category with its category embedded
func (h *Handler) GetSubCategory(c echo.Context) error {
	detail, err := h.svc.GetSubCategory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) CreateSubCategory(c echo.Context) error {
	var req SubCategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	sub, err := h.svc.InsertSubCategory(c.Request().Context(), service.SubCategoryInput(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) UpdateSubCategory(c echo.Context) error {
	var req SubCategoryPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	sub, err := h.svc.UpdateSubCategory(c.Request().Context(), c.Param("id"), service.SubCategoryPatch(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) DeleteSubCategory(c echo.Context) error {
	if err := h.svc.DeleteSubCategory(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBrands lists every brand, or those matching ?q=
func (h *Handler) ListBrands(c echo.Context) error {
	ctx := c.Request().Context()
	if q := c.QueryParam("q"); q != "" {
		brands, err := h.svc.SearchBrands(ctx, q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, brands)
	}
	brands, err := h.svc.ListBrands(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, brands)
}

func (h *Handler) GetBrand(c echo.Context) error {
	brand, err := h.svc.GetBrand(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, brand)
}

func (h *Handler) CreateBrand(c echo.Context) error {
	var req BrandRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	brand, err := h.svc.InsertBrand(c.Request().Context(), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, brand)
}

func (h *Handler) UpdateBrand(c echo.Context) error {
	var req BrandRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	brand, err := h.svc.UpdateBrand(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, brand)
}

func (h *Handler) DeleteBrand(c echo.Context) error {
	if err := h.svc.DeleteBrand(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
