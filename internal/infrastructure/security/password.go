package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/studenthub/marketplace/internal/api/metrics"
)

// Runner executes CPU-bound work, typically on a bounded worker pool.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

type inline struct{}

func (inline) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

// BcryptHasher hashes passwords with bcrypt. Plaintext never leaves this type:
// it is not logged and not included in returned errors.
type BcryptHasher struct {
	cost   int
	runner Runner
}

// NewBcryptHasher returns a hasher with the given cost. A cost outside
// bcrypt's accepted range falls back to bcrypt.DefaultCost. A nil runner runs
// work on the calling goroutine.
func NewBcryptHasher(cost int, runner Runner) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if runner == nil {
		runner = inline{}
	}
	return &BcryptHasher{cost: cost, runner: runner}
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	var (
		hash []byte
		err  error
	)
	if runErr := h.runner.Do(ctx, func() {
		start := time.Now()
		hash, err = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	}); runErr != nil {
		return "", fmt.Errorf("hash password: %w", runErr)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash using bcrypt's constant-time
// comparison. A mismatch is (false, nil); a corrupt hash is an error.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	var err error
	if runErr := h.runner.Do(ctx, func() {
		start := time.Now()
		err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}); runErr != nil {
		return false, fmt.Errorf("verify password: %w", runErr)
	}

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}
