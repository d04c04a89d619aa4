// Package middleware holds the Echo middleware shared by all routes.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/omamori-api/internal/apperr"
)

const tokenKey = "bearer_token"

// RequireBearer rejects requests without an "Authorization: Bearer <token>"
// header before any handler logic runs.  It only checks presence; the
// services verify the token themselves.
func RequireBearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				return apperr.Unauthenticated("Token required")
			}
			c.Set(tokenKey, raw)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value.  The
// scheme is matched case-insensitively.
func BearerToken(header string) string {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}

// Token returns the token stored by RequireBearer.
func Token(c echo.Context) string {
	s, _ := c.Get(tokenKey).(string)
	return s
}
