package ports

import (
	"context"

	"github.com/studenthub/marketplace/internal/core/domain"
)

// RegisterInput carries the raw registration fields.
type RegisterInput struct {
	Name       string
	Email      string
	Phone      string
	Password   string
	Role       string
	University string
}

// LoginInput carries the raw login fields. Email is used by the regular
// login, Username by the admin login.
type LoginInput struct {
	Email    string
	Username string
	Password string
}

// AuthResult is returned by every successful authentication flow.
type AuthResult struct {
	Account   *domain.Account
	Token     string
	ExpiresAt int64
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	AdminLogin(ctx context.Context, in LoginInput) (*AuthResult, error)
}
