package api

import (
	"time"

	"github.com/labstack/echo/v4"
)

// observe records request metrics and logs each request.
func (h *Handler) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		status := c.Response().Status
		elapsed := time.Since(start)

		h.metrics.HTTPRequest(c.Request().Method, route, status, elapsed)
		h.logger.Debug("[api] %s %s -> %d (%v)", c.Request().Method, c.Request().URL.Path, status, elapsed)
		return nil
	}
}
