package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/studenthub/marketplace/internal/api/metrics"
	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/core/ports"
)

const principalKey = "principal"

type principalCtxKey struct{}

// Auth verifies the bearer token and attaches the resulting principal to both
// the echo context and the request context. Every failure surfaces as the same
// token error; the precise reason is only logged and counted.
func Auth(verifier ports.TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err == nil {
				var claims domain.Claims
				claims, err = verifier.Verify(token)
				if err == nil {
					setPrincipal(c, claims.Principal())
					return next(c)
				}
			}

			if !domain.IsTokenError(err) {
				err = domain.ErrMalformedToken
			}
			reason := rejectionReason(err)
			metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
			log.Debug().
				Str("reason", reason).
				Str("path", c.Path()).
				Str("remote_ip", c.RealIP()).
				Msg("bearer token rejected")
			return err
		}
	}
}

// PrincipalFrom returns the principal set by Auth.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}

// PrincipalFromContext returns the principal set by Auth on the request
// context, for code below the transport layer.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(domain.Principal)
	return p, ok
}

func setPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), principalCtxKey{}, p)))
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", domain.ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingToken
	}
	return token, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "missing"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "signature"
	case errors.Is(err, domain.ErrExpiredToken):
		return "expired"
	default:
		return "malformed"
	}
}
