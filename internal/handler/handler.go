package handler

import (
	"errors"
	"net/http"

	"storefront/internal/apperr"
	mid "storefront/internal/middleware"
	"storefront/internal/service"
	"storefront/pkg/jwtutil"
	"storefront/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// retryAfterSeconds is sent with 503 responses caused by lock timeouts
const retryAfterSeconds = "1"

// Handler serves the storefront HTTP API
type Handler struct {
	svc *service.Service
	jwt *jwtutil.JWTUtil
}

func New(svc *service.Service, j *jwtutil.JWTUtil) *Handler {
	return &Handler{svc: svc, jwt: j}
}

// Routes mounts every API route on e
func (h *Handler) Routes(e *echo.Echo) {
	e.GET("/health", HealthCheck)

	authAPI := e.Group("/api/auth")
	authAPI.POST("/register", h.RegisterUser)
	authAPI.POST("/login", h.Login)

	auth := mid.AuthMiddleware(h.jwt)

	categoryAPI := e.Group("/api/categories")
	categoryAPI.GET("", h.ListCategories)
	categoryAPI.GET("/:id", h.GetCategory)
	categoryAPI.POST("", h.CreateCategory, auth)
	categoryAPI.PUT("/:id", h.UpdateCategory, auth)
	categoryAPI.DELETE("/:id", h.DeleteCategory, auth)

	subCategoryAPI := e.Group("/api/subcategories")
	subCategoryAPI.GET("", h.ListSubCategories)
	subCategoryAPI.GET("/:id", h.GetSubCategory)
	subCategoryAPI.POST("", h.CreateSubCategory, auth)
	subCategoryAPI.PUT("/:id", h.UpdateSubCategory, auth)
	subCategoryAPI.DELETE("/:id", h.DeleteSubCategory, auth)

	brandAPI := e.Group("/api/brands")
	brandAPI.GET("", h.ListBrands)
	brandAPI.GET("/:id", h.GetBrand)
	brandAPI.POST("", h.CreateBrand, auth)
	brandAPI.PUT("/:id", h.UpdateBrand, auth)
	brandAPI.DELETE("/:id", h.DeleteBrand, auth)

	productAPI := e.Group("/api/products")
	productAPI.GET("", h.ListProducts)
	productAPI.GET("/:id", h.GetProduct)
	productAPI.POST("", h.CreateProduct, auth)
	productAPI.PUT("/:id", h.UpdateProduct, auth)
	productAPI.DELETE("/:id", h.DeleteProduct, auth)

	userAPI := e.Group("/api/users", auth)
	userAPI.GET("", h.ListUsers)
	userAPI.GET("/:id", h.GetUser)
	userAPI.PUT("/:id", h.UpdateUser)
	userAPI.DELETE("/:id", h.DeleteUser)

	cartAPI := e.Group("/api/cart", auth)
	cartAPI.GET("", h.GetCart)
	cartAPI.POST("/lines", h.AddCartLine)
	cartAPI.PUT("/lines/:productId", h.SetCartQuantity)
	cartAPI.DELETE("/lines/:productId", h.RemoveCartLine)

	orderAPI := e.Group("/api/orders", auth)
	orderAPI.GET("", h.ListOrders)
	orderAPI.POST("", h.PlaceOrder)
	orderAPI.GET("/:id", h.GetOrder)
	orderAPI.PATCH("/:id/status", h.UpdateOrderStatus)

	paymentAPI := e.Group("/api/payments", auth)
	paymentAPI.GET("", h.ListPayments)
	paymentAPI.POST("", h.Pay)
}

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "storefront",
	})
}

// statusOf maps an error to its HTTP status
func statusOf(err error) int {
	if errors.Is(err, service.ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindIntegrity:
		return http.StatusConflict
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": message} with the status of its kind
func respondError(c echo.Context, err error) error {
	log := logger.FromEcho(c)
	status := statusOf(err)

	message := apperr.Message(err)
	switch {
	case status == http.StatusServiceUnavailable:
		c.Response().Header().Set("Retry-After", retryAfterSeconds)
		log.Warn("Store busy", zap.Error(err))
	case status >= http.StatusInternalServerError:
		log.Error("Request failed", zap.Error(err))
		message = "internal storage error"
	}
	return c.JSON(status, echo.Map{"error": message})
}

func badRequest(c echo.Context, err error) error {
	logger.FromEcho(c).Warn("Invalid request data", zap.Error(err))
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
}
