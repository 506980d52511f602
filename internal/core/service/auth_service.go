package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/studenthub/marketplace/internal/api/metrics"
	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/core/ports"
	"github.com/studenthub/marketplace/internal/core/validation"
)

// DefaultStoreTimeout bounds a single principal store call.
const DefaultStoreTimeout = 3 * time.Second

// decoyPassword is hashed once at construction. Lookups that find no
// principal verify against that hash so they cost the same as a wrong password.
const decoyPassword = "decoy-password-never-issued"

// CredentialValidator abstracts the input rules applied before any I/O.
type CredentialValidator interface {
	Registration(in ports.RegisterInput) domain.ValidationErrors
	Login(in ports.LoginInput) domain.ValidationErrors
	AdminLogin(in ports.LoginInput) domain.ValidationErrors
}

// AuthDeps groups the collaborators of the auth service.
type AuthDeps struct {
	Repo      ports.AuthRepository
	Hasher    ports.PasswordHasher
	Tokens    ports.TokenIssuer
	Validator CredentialValidator
	// Guard is optional; without it concurrent duplicate registrations are
	// only caught by the store's unique index.
	Guard        ports.RegistrationGuard
	StoreTimeout time.Duration
	Now          func() time.Time
}

type authService struct {
	repo         ports.AuthRepository
	hasher       ports.PasswordHasher
	tokens       ports.TokenIssuer
	validate     CredentialValidator
	guard        ports.RegistrationGuard
	storeTimeout time.Duration
	now          func() time.Time
	decoyHash    string
	log          zerolog.Logger
}

// NewAuthService returns an AuthService implementation.
func NewAuthService(deps AuthDeps, log zerolog.Logger) ports.AuthService {
	timeout := deps.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	decoy, err := deps.Hasher.Hash(context.Background(), decoyPassword)
	if err != nil {
		log.Warn().Err(err).Msg("failed to prepare decoy hash, unknown logins will not be time-equalized")
	}
	return &authService{
		repo:         deps.Repo,
		hasher:       deps.Hasher,
		tokens:       deps.Tokens,
		validate:     deps.Validator,
		guard:        deps.Guard,
		storeTimeout: timeout,
		now:          now,
		decoyHash:    decoy,
		log:          log,
	}
}

// Register validates the form, stores a new student or owner and logs it in.
func (s *authService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in = normalizeRegistration(in)
	role := roleLabel(in.Role)

	if err := s.validate.Registration(in).Err(); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(role, "validation").Inc()
		return nil, err
	}

	if s.guard != nil {
		claimToken, claimed, err := s.guard.Claim(ctx, in.Email)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("email", in.Email).Msg("registration guard unavailable, continuing")
		case !claimed:
			metrics.RegistrationsTotal.WithLabelValues(role, "conflict").Inc()
			return nil, domain.ErrUserExists
		default:
			defer s.release(ctx, in.Email, claimToken)
		}
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(role, "error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		Principal: domain.Principal{
			Email:       in.Email,
			Role:        domain.Role(in.Role),
			DisplayName: in.Name,
		},
		Phone:        validation.NormalizePhone(in.Phone),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if account.Role == domain.RoleStudent {
		account.University = in.University
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	created, err := s.repo.Create(storeCtx, account)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			metrics.RegistrationsTotal.WithLabelValues(role, "conflict").Inc()
			return nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues(role, "error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	result, err := s.issue(created)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(role, "error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(role, "success").Inc()
	s.log.Info().Str("id", created.ID).Str("role", string(created.Role)).Msg("principal registered")
	return result, nil
}

// Login authenticates a student or owner by email.
func (s *authService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = ""

	if err := s.validate.Login(in).Err(); err != nil {
		metrics.LoginsTotal.WithLabelValues("login", "validation").Inc()
		return nil, err
	}
	return s.authenticate(ctx, "login", in.Email, in.Password, s.repo.FindByEmail, nil)
}

// AdminLogin authenticates an administrator by username. Any non-admin
// principal found under that username is rejected like a wrong password.
func (s *authService) AdminLogin(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = ""

	if err := s.validate.AdminLogin(in).Err(); err != nil {
		metrics.LoginsTotal.WithLabelValues("admin_login", "validation").Inc()
		return nil, err
	}
	return s.authenticate(ctx, "admin_login", in.Username, in.Password, s.repo.FindByUsername,
		func(a *domain.Account) bool { return a.Role == domain.RoleAdmin })
}

type lookupFunc func(ctx context.Context, identifier string) (*domain.Account, error)

func (s *authService) authenticate(
	ctx context.Context,
	flow, identifier, password string,
	lookup lookupFunc,
	admit func(*domain.Account) bool,
) (*ports.AuthResult, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	account, err := lookup(storeCtx, identifier)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.verifyDecoy(ctx, password)
			s.log.Debug().Str("flow", flow).Str("identifier", identifier).Msg("login rejected: unknown principal")
			metrics.LoginsTotal.WithLabelValues(flow, "invalid_credentials").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues(flow, "error").Inc()
		return nil, fmt.Errorf("%s: lookup: %w", flow, err)
	}

	ok, err := s.hasher.Verify(ctx, password, account.PasswordHash)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(flow, "error").Inc()
		return nil, fmt.Errorf("%s: verify: %w", flow, err)
	}
	if !ok {
		s.log.Debug().Str("flow", flow).Str("id", account.ID).Msg("login rejected: password mismatch")
		metrics.LoginsTotal.WithLabelValues(flow, "invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if admit != nil && !admit(account) {
		s.log.Debug().Str("flow", flow).Str("id", account.ID).Str("role", string(account.Role)).Msg("login rejected: role not admitted")
		metrics.LoginsTotal.WithLabelValues(flow, "invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.issue(account)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(flow, "error").Inc()
		return nil, fmt.Errorf("%s: %w", flow, err)
	}

	metrics.LoginsTotal.WithLabelValues(flow, "success").Inc()
	s.log.Info().Str("flow", flow).Str("id", account.ID).Str("role", string(account.Role)).Msg("principal logged in")
	return result, nil
}

// verifyDecoy spends one bcrypt comparison so an unknown identifier is not
// distinguishable from a wrong password by response time.
func (s *authService) verifyDecoy(ctx context.Context, password string) {
	if s.decoyHash == "" {
		return
	}
	if _, err := s.hasher.Verify(ctx, password, s.decoyHash); err != nil {
		s.log.Debug().Err(err).Msg("decoy verify failed")
	}
}

func (s *authService) issue(account *domain.Account) (*ports.AuthResult, error) {
	token, claims, err := s.tokens.Issue(account.Principal)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{
		Account:   account,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

func (s *authService) release(ctx context.Context, email, claimToken string) {
	if err := s.guard.Release(context.WithoutCancel(ctx), email, claimToken); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to release registration guard")
	}
}

func normalizeRegistration(in ports.RegisterInput) ports.RegisterInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.University = strings.TrimSpace(in.University)
	return in
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// roleLabel keeps metric cardinality bounded for arbitrary role input.
func roleLabel(role string) string {
	switch domain.Role(role) {
	case domain.RoleStudent, domain.RoleOwner, domain.RoleAdmin:
		return role
	}
	return "unknown"
}
