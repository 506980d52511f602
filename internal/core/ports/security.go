package ports

import (
	"context"

	"github.com/studenthub/marketplace/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords with a slow salted algorithm.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

// TokenIssuer signs fresh claims into a session token.
type TokenIssuer interface {
	Issue(subject domain.Principal) (string, domain.Claims, error)
}

// TokenVerifier checks a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (domain.Claims, error)
}
