package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/metrics"
)

// MetricsMiddleware collects HTTP request metrics by route template.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			method := c.Request().Method

			metrics.RequestInProgress.WithLabelValues(method, path).Inc()
			defer metrics.RequestInProgress.WithLabelValues(method, path).Dec()

			start := time.Now()
			err := next(c)

			code := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			} else if err != nil {
				code = http.StatusInternalServerError
			}
			status := strconv.Itoa(code)
			metrics.RequestCounter.WithLabelValues(status, method, path).Inc()
			metrics.RequestDuration.WithLabelValues(status, method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
