package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/omamori-api/internal/metrics"
)

// RequestLogger writes one access log line per request.  A handler error is
// passed to the HTTP error handler first so the logged status is the one
// the client sees.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			req := c.Request()
			entry := log.WithFields(logrus.Fields{
				"method":     req.Method,
				"route":      c.Path(),
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
			})
			if c.Response().Status >= 500 {
				entry.Warn("request failed")
			} else {
				entry.Info("request")
			}
			return nil
		}
	}
}

// Metrics records request count and duration by route pattern.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			m.ObserveHTTP(c.Request().Method, c.Path(), c.Response().Status, time.Since(start))
			return nil
		}
	}
}
