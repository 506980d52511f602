package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/infrastructure/security"
)

func TestSeedAdmin_CreatesOnce(t *testing.T) {
	repo := newStubAuthRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost, nil)

	created, err := SeedAdmin(context.Background(), repo, hasher, "root_admin", "Adm1n!Secret", zerolog.Nop())
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	acc, err := repo.FindByUsername(context.Background(), "root_admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if acc.Role != domain.RoleAdmin {
		t.Fatalf("unexpected role: %s", acc.Role)
	}

	created, err = SeedAdmin(context.Background(), repo, hasher, "root_admin", "Adm1n!Secret", zerolog.Nop())
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}
}

func TestSeedAdmin_Disabled(t *testing.T) {
	created, err := SeedAdmin(context.Background(), newStubAuthRepo(), nil, "", "", zerolog.Nop())
	if err != nil || created {
		t.Fatalf("expected no-op, got created=%v err=%v", created, err)
	}
}

func TestSeedAdmin_WeakPassword(t *testing.T) {
	_, err := SeedAdmin(context.Background(), newStubAuthRepo(), nil, "root_admin", "password", zerolog.Nop())
	if !errors.Is(err, ErrWeakBootstrapPassword) {
		t.Fatalf("expected ErrWeakBootstrapPassword, got %v", err)
	}
}
