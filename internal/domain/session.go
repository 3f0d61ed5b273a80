package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks the session state machine. ACTIVE is the only
// non-terminal state; REVOKED comes from logout and EXPIRED from lazy
// expiry detection at validation time.
type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionRevoked SessionStatus = "REVOKED"
	SessionExpired SessionStatus = "EXPIRED"
)

// Session is a login session keyed by its token identifier (jti). The jti is
// immutable once issued. DeviceFingerprint is a weak reference: it survives
// device detachment and is never a foreign key.
type Session struct {
	JTI               uuid.UUID
	UserID            uuid.UUID
	Status            SessionStatus
	DeviceFingerprint *string
	IPAddress         string
	UserAgent         string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	RevokedAt         *time.Time
}

// AuthAttempt records one authentication outcome. Rows are append-only: the
// fingerprint is stored raw (not a device FK) so the audit trail survives
// device detachment, and the user/session references are nullable because
// failures can occur before either exists.
type AuthAttempt struct {
	ID          int64
	UserID      *uuid.UUID
	Fingerprint string
	JTI         *uuid.UUID
	Success     bool
	Reason      AuthReason
	IPAddress   string
	UserAgent   string
	OccurredAt  time.Time
}

// RecoveryKind separates password-reset codes from device re-authorization codes.
type RecoveryKind string

const (
	RecoveryPassword RecoveryKind = "PASSWORD"
	RecoveryDevice   RecoveryKind = "DEVICE"
)

// RecoveryCode is a one-time, time-boxed 6-digit code challenge. Only the
// code hash is persisted. ConsumedAt is a one-way transition enforced with a
// transactional compare-and-set in the store.
type RecoveryCode struct {
	RecoveryID        uuid.UUID
	UserID            uuid.UUID
	Kind              RecoveryKind
	CodeHash          string
	DeviceFingerprint *string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	ConsumedAt        *time.Time
}
