package middleware

import (
	"strconv"
	"time"

	"storefront/pkg/logger"
	"storefront/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// unmatchedRoute labels requests that matched no route, keeping raw paths
// out of the label set
const unmatchedRoute = "unmatched"

// SlowRequestThreshold is the duration above which a request is logged as slow
var SlowRequestThreshold = 2 * time.Second

// MetricsMiddleware counts and times requests per route template. Errors are
// rendered here so the recorded status is the one sent to the client.
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		elapsed := time.Since(start)

		route := c.Path()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request().Method
		status := strconv.Itoa(c.Response().Status)
		prometheus.HttpRequestsTotal.WithLabelValues(method, route, status).Inc()
		prometheus.HttpRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())

		if elapsed > SlowRequestThreshold {
			logger.FromEcho(c).Warn("Slow request",
				zap.String("route", route),
				zap.Duration("elapsed", elapsed))
		}
		return nil
	}
}
