package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/studenthub/marketplace/internal/api/middleware"
	"github.com/studenthub/marketplace/internal/core/domain"
)

// ctxPrincipal returns the principal placed by the auth guard. Its absence
// means the route was mounted without the guard, which is reported as an
// authentication failure rather than a server error.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.Principal{}, domain.ErrMissingToken
	}
	return p, nil
}
