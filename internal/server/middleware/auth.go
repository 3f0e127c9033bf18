// Package middleware holds the HTTP middleware of the API server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware validates bearer tokens against the JWKS keys. Requests
// without a valid token are rejected with 401.
func AuthMiddleware(k keyfunc.Keyfunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			parsed, err := jwt.Parse(token, k.Keyfunc)
			if err != nil || !parsed.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			if subject, err := parsed.Claims.GetSubject(); err == nil {
				c.Set("user", subject)
			}
			return next(c)
		}
	}
}
