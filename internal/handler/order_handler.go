package handler

import (
	"encoding/json"
	"net/http"

	mid "storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type CartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderRequest struct {
	Lines           []model.CartLine `json:"lines"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	ShippingAddress string           `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type PaymentRequest struct {
	ProductID      string          `json:"productId"`
	PaymentDetails json.RawMessage `json:"paymentDetails"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaymentMethod  string          `json:"paymentMethod"`
}

func (h *Handler) GetCart(c echo.Context) error {
	lines, err := h.svc.GetCart(c.Request().Context(), mid.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *Handler) AddCartLine(c echo.Context) error {
	var req CartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	lines, err := h.svc.AddCartLine(c.Request().Context(), mid.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *Handler) SetCartQuantity(c echo.Context) error {
	var req CartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	lines, err := h.svc.SetCartQuantity(c.Request().Context(), mid.UserID(c), c.Param("productId"), req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *Handler) RemoveCartLine(c echo.Context) error {
	lines, err := h.svc.RemoveCartLine(c.Request().Context(), mid.UserID(c), c.Param("productId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *Handler) ListOrders(c echo.Context) error {
	orders, err := h.svc.Orders(c.Request().Context(), mid.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c echo.Context) error {
	order, err := h.svc.Order(c.Request().Context(), c.Param("id"), mid.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) PlaceOrder(c echo.Context) error {
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	order, err := h.svc.PlaceOrder(c.Request().Context(), service.OrderInput{
		UserID:          mid.UserID(c),
		Lines:           req.Lines,
		TotalAmount:     req.TotalAmount,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	var req OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	order, err := h.svc.UpdateOrderStatus(c.Request().Context(), c.Param("id"), mid.UserID(c), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) ListPayments(c echo.Context) error {
	payments, err := h.svc.Payments(c.Request().Context(), mid.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, payments)
}

// Pay settles the caller's open order line for a product. A repeated
// Idempotency-Key returns the first payment.
func (h *Handler) Pay(c echo.Context) error {
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	payment, err := h.svc.Pay(c.Request().Context(), service.PaymentInput{
		UserID:         mid.UserID(c),
		ProductID:      req.ProductID,
		PaymentDetails: req.PaymentDetails,
		TotalAmount:    req.TotalAmount,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, payment)
}
