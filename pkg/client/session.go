// Package client is a Go SDK for the marketplace auth API.
//
// After a successful register or login the issued token and principal are
// written to a SessionStore. Every later request made through the client's
// http.Client carries that token as a bearer credential. A 401 from the server
// clears the stored session so the caller is sent back to login.
package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned by SessionStore.Load when nothing is stored.
var ErrNoSession = errors.New("no session")

// Session is what the client remembers between requests.
type Session struct {
	Token       string
	PrincipalID string
	Identifier  string
	Role        string
	DisplayName string
	ExpiresAt   time.Time
}

// Expired reports whether the token's lifetime has passed at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionStore persists at most one session.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (Session, error)
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, ErrNoSession
	}
	return *m.session, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
