package domain

import "time"

// Role is the kind of principal a request acts as.
type Role string

const (
	RoleStudent Role = "student"
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// Principal is an authenticated identity. Identity fields and Role are set at
// registration and never change afterwards.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
}

// Identifier returns the login identifier: email for students and owners,
// username for admins.
func (p Principal) Identifier() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Username
}

// Account is a stored principal together with its credentials and profile.
type Account struct {
	Principal
	Phone        string    `json:"phone,omitempty"`
	University   string    `json:"university,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
