package domain

import (
	"strings"
	"time"
)

// Claims is the fixed set of facts carried inside a session token. Email holds
// the principal's login identifier, which for admins is a username.
type Claims struct {
	SubjectID string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal rebuilds the request principal from verified claims.
func (c Claims) Principal() Principal {
	p := Principal{ID: c.SubjectID, Role: c.Role}
	if strings.Contains(c.Email, "@") {
		p.Email = c.Email
	} else {
		p.Username = c.Email
	}
	return p
}
