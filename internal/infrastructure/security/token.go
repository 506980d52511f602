package security

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studenthub/marketplace/internal/core/domain"
)

// DefaultTokenTTL is the lifetime of a session token when none is configured.
const DefaultTokenTTL = 86400 * time.Second

const (
	tokenType = "TOKEN"
	tokenAlg  = "HS256"
)

// ErrEmptySecret is returned when a codec is built without a signing secret.
var ErrEmptySecret = errors.New("token signing secret is empty")

// tokenHeader and tokenPayload fix the field order of the wire format:
//
//	{"typ":"TOKEN","alg":"HS256"}
//	{"user_id":..,"email":..,"role":..,"iat":..,"exp":..}
type tokenHeader struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
}

type tokenPayload struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// decodedPayload uses pointers so a missing field can be told apart from a
// zero value.
type decodedPayload struct {
	UserID    *subjectID `json:"user_id"`
	Email     *string    `json:"email"`
	Role      *string    `json:"role"`
	IssuedAt  *int64     `json:"iat"`
	ExpiresAt *int64     `json:"exp"`
}

// subjectID accepts both string and numeric user ids.
type subjectID string

func (s *subjectID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = subjectID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*s = subjectID(n.String())
	return nil
}

// TokenConfig configures a TokenCodec.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenCodec issues and verifies HMAC-SHA256 signed session tokens. It holds
// no mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec builds a codec. TTL <= 0 falls back to DefaultTokenTTL.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
		parser: jwt.NewParser(jwt.WithStrictDecoding()),
	}, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue builds fresh claims for p, stamped with the current time, and signs
// them. The role always comes from p.
func (c *TokenCodec) Issue(p domain.Principal) (string, domain.Claims, error) {
	iat := c.now().Unix()
	claims := domain.Claims{
		SubjectID: p.ID,
		Email:     p.Identifier(),
		Role:      p.Role,
		IssuedAt:  time.Unix(iat, 0).UTC(),
		ExpiresAt: time.Unix(iat+int64(c.ttl/time.Second), 0).UTC(),
	}
	token, err := c.Sign(claims)
	if err != nil {
		return "", domain.Claims{}, err
	}
	return token, claims, nil
}

// Sign serializes and signs claims as given. The output depends only on the
// claims and the secret.
func (c *TokenCodec) Sign(claims domain.Claims) (string, error) {
	header, err := json.Marshal(tokenHeader{Typ: tokenType, Alg: tokenAlg})
	if err != nil {
		return "", fmt.Errorf("encode token header: %w", err)
	}
	payload, err := json.Marshal(tokenPayload{
		UserID:    claims.SubjectID,
		Email:     claims.Email,
		Role:      string(claims.Role),
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encode token payload: %w", err)
	}

	signingString := encodeSegment(header) + "." + encodeSegment(payload)
	sig, err := jwt.SigningMethodHS256.Sign(signingString, c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signingString + "." + encodeSegment(sig), nil
}

// Verify checks the token signature first and only then decodes the header
// and payload and checks expiry. The returned error wraps one of
// domain.ErrMalformedToken, domain.ErrInvalidSignature or domain.ErrExpiredToken.
func (c *TokenCodec) Verify(token string) (domain.Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.Claims{}, fmt.Errorf("%w: expected 3 segments, got %d", domain.ErrMalformedToken, len(parts))
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: decode signature: %v", domain.ErrInvalidSignature, err)
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	var h tokenHeader
	if err := c.decodeStrict(parts[0], &h); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: header: %v", domain.ErrMalformedToken, err)
	}
	if h.Alg != tokenAlg {
		return domain.Claims{}, fmt.Errorf("%w: unexpected alg %q", domain.ErrMalformedToken, h.Alg)
	}
	if h.Typ != tokenType {
		return domain.Claims{}, fmt.Errorf("%w: unexpected typ %q", domain.ErrMalformedToken, h.Typ)
	}

	var p decodedPayload
	if err := c.decodeStrict(parts[1], &p); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: payload: %v", domain.ErrMalformedToken, err)
	}
	claims, err := p.claims()
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: payload: %v", domain.ErrMalformedToken, err)
	}

	if !c.now().Before(claims.ExpiresAt) {
		return domain.Claims{}, fmt.Errorf("%w: expired at %s", domain.ErrExpiredToken, claims.ExpiresAt.Format(time.RFC3339))
	}
	return claims, nil
}

func (c *TokenCodec) decodeStrict(seg string, v any) error {
	raw, err := c.parser.DecodeSegment(seg)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}

func (p decodedPayload) claims() (domain.Claims, error) {
	switch {
	case p.UserID == nil || *p.UserID == "":
		return domain.Claims{}, errors.New("missing user_id")
	case p.Email == nil:
		return domain.Claims{}, errors.New("missing email")
	case p.Role == nil:
		return domain.Claims{}, errors.New("missing role")
	case p.IssuedAt == nil:
		return domain.Claims{}, errors.New("missing iat")
	case p.ExpiresAt == nil:
		return domain.Claims{}, errors.New("missing exp")
	}
	role := domain.Role(*p.Role)
	if !role.Valid() {
		return domain.Claims{}, fmt.Errorf("unknown role %q", *p.Role)
	}
	return domain.Claims{
		SubjectID: string(*p.UserID),
		Email:     *p.Email,
		Role:      role,
		IssuedAt:  time.Unix(*p.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(*p.ExpiresAt, 0).UTC(),
	}, nil
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
