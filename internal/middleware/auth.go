package middleware

import (
	"net/http"
	"strings"

	"storefront/pkg/jwtutil"
	"storefront/pkg/logger"
	"storefront/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	userIDKey   = "user_id"
	userTypeKey = "user_type"
)

// AuthMiddleware validates the bearer token and stores the caller's user id
func AuthMiddleware(j *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthError("malformed_header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := j.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(userIDKey, claims.UserID)
			c.Set(userTypeKey, claims.UserType)
			c.Set("email", claims.Email)

			logger.Attach(c, log.With(zap.String("user_id", claims.UserID)))

			return next(c)
		}
	}
}

// UserID returns the authenticated user id, or "" outside AuthMiddleware
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// UserType returns the user type carried by the token
func UserType(c echo.Context) string {
	t, _ := c.Get(userTypeKey).(string)
	return t
}
