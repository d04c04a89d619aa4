package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/omamori-api/internal/response"
)

// Health is the health check used by load balancers and monitoring.
func Health(c echo.Context) error {
	return response.Success(c, http.StatusOK, "OK", map[string]string{"status": "ok"})
}
