package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/studenthub/marketplace/internal/api/middleware"
	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/core/ports"
)

type stubAuthService struct {
	registerFn   func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn      func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error)
	adminLoginFn func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) AdminLogin(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	return s.adminLoginFn(ctx, in)
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (Envelope, map[string]any) {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	data, _ := env.Data.(map[string]any)
	return env, data
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Email != "amina@um5-edu.ma" || in.Role != "student" || in.University != "UM5" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{
				Account: &domain.Account{
					Principal:    domain.Principal{ID: "p-1", Email: in.Email, Role: domain.RoleStudent, DisplayName: in.Name},
					PasswordHash: "$2a$10$secret",
				},
				Token:     "tok",
				ExpiresAt: 1700000000,
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth?action=register",
		`{"name":"Amina","email":"amina@um5-edu.ma","phone":"0612345678","password":"Str0ng!Pass","role":"student","university":"UM5"}`)

	if err := h.Dispatch(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	env, data := decodeEnvelope(t, rec)
	if !env.Success || env.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if data["token"] != "tok" || data["role"] != "student" {
		t.Fatalf("unexpected data: %v", data)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			if in.Email != "karim@example.com" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{
				Account: &domain.Account{Principal: domain.Principal{ID: "p-2", Email: in.Email, Role: domain.RoleOwner}},
				Token:   "tok",
			}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth?action=login", `{"email":"karim@example.com","password":"secret1"}`)

	if err := NewAuthHandler(stub).Dispatch(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, data := decodeEnvelope(t, rec); data["role"] != "owner" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestAuthHandler_AdminLogin_PassesUsername(t *testing.T) {
	var got ports.LoginInput
	stub := &stubAuthService{
		adminLoginFn: func(_ context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			got = in
			return nil, domain.ErrInvalidCredentials
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth?action=admin-login", `{"username":"root_admin","password":"whatever"}`)

	err := NewAuthHandler(stub).Dispatch(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got.Username != "root_admin" || got.Email != "" {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestAuthHandler_UnknownAction(t *testing.T) {
	for _, target := range []string{"/auth", "/auth?action=logout"} {
		c, _ := newJSONContext(http.MethodPost, target, `{}`)
		err := NewAuthHandler(&stubAuthService{}).Dispatch(c)

		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %v", target, err)
		}
	}
}

func TestAuthHandler_InvalidBody(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*ports.AuthResult, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth?action=login", `{"email":`)

	err := NewAuthHandler(stub).Dispatch(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	verifier := stubVerifier(func(token string) (domain.Claims, error) {
		return domain.Claims{SubjectID: "p-3", Email: "root_admin", Role: domain.RoleAdmin}, nil
	})
	h := NewAuthHandler(&stubAuthService{})
	me := middleware.Auth(verifier, zerolog.Nop())(h.Me)

	c, rec := newJSONContext(http.MethodGet, "/auth?action=me", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer anything")

	if err := me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	_, data := decodeEnvelope(t, rec)
	user, _ := data["user"].(map[string]any)
	if user["id"] != "p-3" || user["username"] != "root_admin" || data["role"] != "admin" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestAuthHandler_Me_WithoutGuard(t *testing.T) {
	c, _ := newJSONContext(http.MethodGet, "/auth?action=me", "")
	err := NewAuthHandler(&stubAuthService{}).Me(c)
	if !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

type stubVerifier func(token string) (domain.Claims, error)

func (f stubVerifier) Verify(token string) (domain.Claims, error) { return f(token) }
