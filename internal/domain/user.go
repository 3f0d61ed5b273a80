package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus gates which account states are allowed to authenticate.
type UserStatus string

const (
	UserActive UserStatus = "ACTIVE"
	// UserBlocked marks an account administratively frozen; distinct from the
	// cache-backed lockout window, which clears on its own.
	UserBlocked UserStatus = "BLOCKED"
	// UserPasswordReset suspends password credentials until a recovery code
	// completes; login fails with PASSWORD_RESET while in this state.
	UserPasswordReset UserStatus = "PASSWORD_RESET"
)

// User is the canonical authentication identity for the payments backend.
// RUT (numeric national ID plus check digit) and email are both unique login
// identifiers; everything not auth-relevant lives in other services.
type User struct {
	UserID        uuid.UUID
	Email         string
	RUT           string
	PasswordHash  string
	Status        UserStatus
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Device is keyed by its client-supplied fingerprint. The owner reference is
// weak: a mitigation detach clears it without deleting the row, and sessions
// keep pointing at the fingerprint regardless.
type Device struct {
	Fingerprint string
	DeviceType  string
	OS          string
	Browser     string
	UserID      *uuid.UUID
	Authorized  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
