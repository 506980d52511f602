package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/studenthub/marketplace/internal/core/domain"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success    bool                     `json:"success"`
	StatusCode int                      `json:"status_code"`
	Data       any                      `json:"data"`
	Message    string                   `json:"message,omitempty"`
	Errors     []domain.ValidationError `json:"errors,omitempty"`
}

// WriteSuccess renders data inside a successful envelope.
func WriteSuccess(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{
		Success:    true,
		StatusCode: status,
		Data:       data,
	})
}

// WriteError renders a failed envelope. fieldErrs may be nil.
func WriteError(c echo.Context, status int, message string, fieldErrs []domain.ValidationError) error {
	return c.JSON(status, Envelope{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Errors:     fieldErrs,
	})
}
