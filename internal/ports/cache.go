package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LockoutState is the current lockout envelope for a login key.
// It is cache-backed to avoid hot writes on every failed login.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore handles short-lived brute-force protection state.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// SessionRevocationStore keeps revocation markers with token-aligned TTL.
// This allows immediate logout semantics without a database read on every
// middleware check; the session row remains the source of truth.
type SessionRevocationStore interface {
	MarkRevoked(ctx context.Context, jti uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}
