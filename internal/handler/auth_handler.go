package handler

import (
	"errors"
	"net/http"

	mid "storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/pkg/logger"
	"storefront/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserRequest struct {
	FullName      string `json:"fullName"`
	EmailAddress  string `json:"emailAddress"`
	ContactNumber string `json:"contactNumber"`
	Address       string `json:"address"`
	UserType      string `json:"userType"`
	Password      string `json:"password"`
	ImagePath     string `json:"imagePath"`
}

type UserPatchRequest struct {
	FullName      *string `json:"fullName"`
	EmailAddress  *string `json:"emailAddress"`
	ContactNumber *string `json:"contactNumber"`
	Address       *string `json:"address"`
	UserType      *string `json:"userType"`
	Password      *string `json:"password"`
	ImagePath     *string `json:"imagePath"`
	Active        *bool   `json:"active"`
}

// RegisterUser creates an account. Admin accounts are only created through storectl.
func (h *Handler) RegisterUser(c echo.Context) error {
	log := logger.FromEcho(c)

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if req.UserType == model.UserTypeAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userType admin cannot be self-registered"})
	}

	user, err := h.svc.RegisterUser(c.Request().Context(), service.UserInput(req))
	if err != nil {
		return respondError(c, err)
	}
	log.Info("User registered", zap.String("user_id", user.UserID))
	return c.JSON(http.StatusCreated, user)
}

// Login checks credentials and returns a bearer token
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordAuthAttempt()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return badRequest(c, err)
	}

	user, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Invalid credentials", zap.String("email", req.Email))
			prometheus.RecordAuthError("invalid_credentials")
		}
		return respondError(c, err)
	}

	token, err := h.jwt.GenerateToken(user.EmailAddress, user.UserID, user.UserType)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.RecordAuthSuccess()
	log.Info("User logged in", zap.String("user_id", user.UserID))
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
	})
}

// selfOrAdmin reports whether the caller may manage the account id
func selfOrAdmin(c echo.Context, id string) bool {
	return mid.UserID(c) == id || mid.UserType(c) == model.UserTypeAdmin
}

func (h *Handler) ListUsers(c echo.Context) error {
	if mid.UserType(c) != model.UserTypeAdmin {
		user, err := h.svc.GetUser(c.Request().Context(), mid.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, []model.User{user})
	}
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.svc.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user " + id + " not found"})
	}

	var req UserPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if req.UserType != nil && *req.UserType == model.UserTypeAdmin && mid.UserType(c) != model.UserTypeAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only admins may grant userType admin"})
	}

	user, err := h.svc.UpdateUser(c.Request().Context(), id, service.UserPatch(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user " + id + " not found"})
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
