package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/core/ports"
)

// Actions accepted on the /auth endpoint.
const (
	ActionRegister   = "register"
	ActionLogin      = "login"
	ActionAdminLogin = "admin-login"
	ActionMe         = "me"
)

var (
	errInvalidBody   = echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	errUnknownAction = echo.NewHTTPError(http.StatusBadRequest, "unknown action")
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	University string `json:"university,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	User      *domain.Account `json:"user"`
	Role      domain.Role     `json:"role"`
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"`
}

type meResponse struct {
	User domain.Principal `json:"user"`
	Role domain.Role      `json:"role"`
}

// Dispatch routes POST /auth to the flow named by the action query parameter.
//
// @Summary      Register or log in
// @Description  action=register creates a student or owner and returns a token; action=login and action=admin-login exchange credentials for a token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        action  query     string           true  "register | login | admin-login"
// @Param        body    body      registerRequest  true  "Credentials; the fields used depend on the action"
// @Success      200     {object}  Envelope{data=authResponse}
// @Success      201     {object}  Envelope{data=authResponse}
// @Failure      400     {object}  Envelope
// @Failure      401     {object}  Envelope
// @Failure      409     {object}  Envelope
// @Failure      422     {object}  Envelope
// @Router       /auth [post]
func (h *AuthHandler) Dispatch(c echo.Context) error {
	switch c.QueryParam("action") {
	case ActionRegister:
		return h.register(c)
	case ActionLogin:
		return h.login(c)
	case ActionAdminLogin:
		return h.adminLogin(c)
	default:
		return errUnknownAction
	}
}

func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
		Role:       req.Role,
		University: req.University,
	})
	if err != nil {
		return err
	}
	return WriteSuccess(c, http.StatusCreated, toAuthResponse(res))
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return WriteSuccess(c, http.StatusOK, toAuthResponse(res))
}

func (h *AuthHandler) adminLogin(c echo.Context) error {
	var req adminLoginRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	res, err := h.authService.AdminLogin(c.Request().Context(), ports.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return WriteSuccess(c, http.StatusOK, toAuthResponse(res))
}

// Me returns the principal carried by the bearer token.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        action  query     string  true  "me"
// @Success      200     {object}  Envelope{data=meResponse}
// @Failure      400     {object}  Envelope
// @Failure      401     {object}  Envelope
// @Router       /auth [get]
func (h *AuthHandler) Me(c echo.Context) error {
	if c.QueryParam("action") != ActionMe {
		return errUnknownAction
	}
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return WriteSuccess(c, http.StatusOK, meResponse{User: p, Role: p.Role})
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		User:      res.Account,
		Role:      res.Account.Role,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
}
