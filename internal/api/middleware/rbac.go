package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// RequirePermission lets the request through when the principal's roles grant
// perm. It must run after Auth.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			if !domain.HasPermission(principal.Roles, perm) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
