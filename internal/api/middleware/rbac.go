package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/studenthub/marketplace/internal/api/metrics"
	"github.com/studenthub/marketplace/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth; a request
// that reaches it without a principal is unauthenticated, not forbidden.
// Admins pass every check.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := append([]domain.Role(nil), allowedRoles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return domain.ErrMissingToken
			}
			if err := domain.Authorize(p, allowed...); err != nil {
				metrics.ForbiddenTotal.WithLabelValues(string(p.Role)).Inc()
				return err
			}
			return next(c)
		}
	}
}
