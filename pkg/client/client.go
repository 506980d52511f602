package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnauthorized is returned for any 401 answer.
var ErrUnauthorized = errors.New("unauthorized")

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("api: %d %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401 APIError.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Principal mirrors the identity returned by the server.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// Identifier returns the email, or the username for admins.
func (p Principal) Identifier() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Username
}

// Registration is the body of a register call.
type Registration struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	University string `json:"university,omitempty"`
}

// Client talks to the auth API and keeps the session in a SessionStore.
type Client struct {
	baseURL *url.URL
	store   SessionStore
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is wrapped so
// the bearer token is still attached.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client for the API rooted at baseURL.
func New(baseURL string, store SessionStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if store == nil {
		store = NewMemoryStore()
	}

	c := &Client{baseURL: u, store: store, http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.http
	hc.Transport = &BearerTransport{Store: store, Base: c.http.Transport}
	c.http = &hc
	return c, nil
}

// HTTPClient returns the authenticated http.Client, for calling other
// marketplace endpoints with the stored session.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Session returns the stored session.
func (c *Client) Session(ctx context.Context) (Session, error) {
	return c.store.Load(ctx)
}

// Register creates an account and stores the session issued with it.
func (c *Client) Register(ctx context.Context, r Registration) (Principal, error) {
	return c.authenticate(ctx, "register", r)
}

// Login exchanges an email and password for a session.
func (c *Client) Login(ctx context.Context, email, password string) (Principal, error) {
	return c.authenticate(ctx, "login", map[string]string{"email": email, "password": password})
}

// AdminLogin exchanges an admin username and password for a session.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (Principal, error) {
	return c.authenticate(ctx, "admin-login", map[string]string{"username": username, "password": password})
}

// Logout forgets the stored session. Tokens are not revocable server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Me returns the principal carried by the stored token.
func (c *Client) Me(ctx context.Context) (Principal, error) {
	var out struct {
		User Principal `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "me", nil, &out); err != nil {
		return Principal{}, err
	}
	return out.User, nil
}

type authData struct {
	User      Principal `json:"user"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt int64     `json:"expires_at"`
}

func (c *Client) authenticate(ctx context.Context, action string, body any) (Principal, error) {
	var data authData
	if err := c.do(ctx, http.MethodPost, action, body, &data); err != nil {
		return Principal{}, err
	}

	sess := Session{
		Token:       data.Token,
		PrincipalID: data.User.ID,
		Identifier:  data.User.Identifier(),
		Role:        data.Role,
		DisplayName: data.User.DisplayName,
	}
	if data.ExpiresAt > 0 {
		sess.ExpiresAt = time.Unix(data.ExpiresAt, 0).UTC()
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return Principal{}, err
	}
	return data.User, nil
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Errors     []FieldError    `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, action string, body, out any) error {
	u := *c.baseURL
	u.Path += "/auth"
	u.RawQuery = url.Values{"action": {action}}.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response (status %d): %w", action, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", action, err)
		}
	}
	return nil
}
