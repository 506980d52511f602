package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimTTL bounds how long a crashed registration can hold an identifier.
const claimTTL = 30 * time.Second

// releaseScript deletes the claim only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RegistrationGuard marks an identifier as "registration in progress" so a
// duplicate submission racing the first one is refused before it pays for a
// password hash. The store's unique index remains the source of truth.
// Key format: register:<lowercased identifier>, value: the claim token.
type RegistrationGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistrationGuard creates a RegistrationGuard wrapping the given client.
func NewRegistrationGuard(client *redis.Client) *RegistrationGuard {
	return &RegistrationGuard{client: client, ttl: claimTTL}
}

// Claim reports whether the caller now owns the identifier and returns the
// token to release it with.
func (g *RegistrationGuard) Claim(ctx context.Context, identifier string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key(identifier), token, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("registration claim: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the claim once the registration has finished either way. A
// claim that expired and was taken by another caller is not touched.
func (g *RegistrationGuard) Release(ctx context.Context, identifier, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{g.key(identifier)}, token).Err(); err != nil {
		return fmt.Errorf("registration release: %w", err)
	}
	return nil
}

func (g *RegistrationGuard) key(identifier string) string {
	return "register:" + strings.ToLower(identifier)
}
