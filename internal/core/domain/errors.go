package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")

	// Token failures. They are distinct for logging and metrics only; the
	// HTTP boundary reports all of them as the same 401.
	ErrMissingToken     = errors.New("missing bearer token")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token expired")
)

// IsTokenError reports whether err is one of the token failure sentinels.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpiredToken)
}

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the set of field errors collected for one request.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends an error, replacing any earlier error for the same field.
func (ve ValidationErrors) Add(field, message string) ValidationErrors {
	for i := range ve {
		if ve[i].Field == field {
			ve[i].Message = message
			return ve
		}
	}
	return append(ve, ValidationError{Field: field, Message: message})
}

// Err returns ve as an error, or nil when it is empty.
func (ve ValidationErrors) Err() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}
