package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studenthub/marketplace/internal/core/domain"
)

// PrincipalLookup is the read side of the principal store used by admins.
type PrincipalLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type PrincipalHandler struct {
	lookup  PrincipalLookup
	timeout time.Duration
}

func NewPrincipalHandler(lookup PrincipalLookup, timeout time.Duration) *PrincipalHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PrincipalHandler{lookup: lookup, timeout: timeout}
}

type principalQuery struct {
	Email string `query:"email" validate:"required,email"`
}

// FindByEmail returns the stored profile of one principal.
//
// @Summary      Look up a principal
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        email  query     string  true  "Principal email"
// @Success      200    {object}  Envelope{data=domain.Account}
// @Failure      401    {object}  Envelope
// @Failure      403    {object}  Envelope
// @Failure      404    {object}  Envelope
// @Failure      422    {object}  Envelope
// @Router       /admin/principals [get]
func (h *PrincipalHandler) FindByEmail(c echo.Context) error {
	var q principalQuery
	if err := c.Bind(&q); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	account, err := h.lookup.FindByEmail(ctx, q.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "principal not found")
		}
		return err
	}
	return WriteSuccess(c, http.StatusOK, account)
}
