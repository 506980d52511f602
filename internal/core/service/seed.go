package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/core/ports"
	"github.com/studenthub/marketplace/internal/core/validation"
)

// ErrWeakBootstrapPassword is returned when the configured admin password
// fails the registration strength rule.
var ErrWeakBootstrapPassword = errors.New("bootstrap admin password does not meet strength requirements")

// SeedAdmin creates the bootstrap administrator when none exists under the
// given username. It reports whether an account was created.
func SeedAdmin(
	ctx context.Context,
	repo ports.AuthRepository,
	hasher ports.PasswordHasher,
	username, password string,
	log zerolog.Logger,
) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	if !validation.StrongPassword(password) {
		return false, ErrWeakBootstrapPassword
	}

	_, err := repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		log.Debug().Str("username", username).Msg("bootstrap admin already present")
		return false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return false, fmt.Errorf("seed admin: lookup: %w", err)
	}

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}

	now := time.Now().UTC()
	created, err := repo.Create(ctx, &domain.Account{
		Principal: domain.Principal{
			Username:    username,
			Role:        domain.RoleAdmin,
			DisplayName: username,
		},
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return false, nil
		}
		return false, fmt.Errorf("seed admin: %w", err)
	}

	log.Info().Str("id", created.ID).Str("username", username).Msg("bootstrap admin created")
	return true, nil
}
