package middleware

import (
	"net/http"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// AdminRequired gates a route group to admin users. It must run after
// JWTAuthMiddleware, which stores the verified claims.
func AdminRequired() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*models.JwtCustomClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			if !claims.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}
