package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/studenthub/marketplace/internal/api/handler"
	"github.com/studenthub/marketplace/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Collapses every token failure into one 401 "unauthorized".
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the standard response envelope.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, fields := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = handler.WriteError(c, code, msg, fields)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, []domain.ValidationError) {
	var ve domain.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, "validation failed", ve
	}

	switch {
	case domain.IsTokenError(err):
		return http.StatusUnauthorized, "unauthorized", nil
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials", nil
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", nil
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists", nil
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		return he.Code, fmt.Sprintf("%v", he.Message), nil
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error", nil
}
