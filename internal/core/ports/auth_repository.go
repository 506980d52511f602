package ports

import (
	"context"

	"github.com/studenthub/marketplace/internal/core/domain"
)

// AuthRepository is the principal store. Lookups return domain.ErrUserNotFound
// when no account matches; Create returns domain.ErrUserExists on a duplicate
// email or username.
type AuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
}

// RegistrationGuard claims an identifier for the duration of one registration
// so concurrent duplicate submissions fail fast. Claim returns a token that
// Release must present; a claim that has since passed to another caller is
// left alone.
type RegistrationGuard interface {
	Claim(ctx context.Context, identifier string) (token string, ok bool, err error)
	Release(ctx context.Context, identifier, token string) error
}
