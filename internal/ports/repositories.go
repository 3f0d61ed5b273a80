package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
)

// CreateUserTxParams captures atomic user-creation inputs. The outbox event
// rides the same transaction so registration state and its integration signal
// cannot diverge.
type CreateUserTxParams struct {
	Email           string
	RUT             string
	PasswordHash    string
	EmailVerified   bool
	RegisteredAtUTC time.Time
}

// UserRepository defines persistence operations for user identities.
type UserRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateUserTxParams, outboxEvent OutboxEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByRUT(ctx context.Context, rut string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
}

// CredentialRepository manages mutable credential and account-state fields.
type CredentialRepository interface {
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error
	SetEmailVerified(ctx context.Context, userID uuid.UUID, verified bool, updatedAt time.Time) error
	SetStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus, updatedAt time.Time) error
}

// BindDeviceParams describes a device-binding request. Descriptive fields are
// only applied when the row is first created.
type BindDeviceParams struct {
	Fingerprint string
	UserID      uuid.UUID
	DeviceType  string
	OS          string
	Browser     string
	Authorized  bool
	BoundAt     time.Time
}

// DeviceRepository manages fingerprint-keyed device trust rows. Bind must be
// atomic with respect to the unowned-vs-owned-by-other check: two concurrent
// first-time registrations for different users must not both succeed.
type DeviceRepository interface {
	Bind(ctx context.Context, params BindDeviceParams) (domain.Device, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (domain.Device, error)
	SetAuthorized(ctx context.Context, fingerprint string, authorized bool, updatedAt time.Time) error
	Detach(ctx context.Context, fingerprint string, detachedAt time.Time) (int64, error)
}

// SessionCreateParams captures metadata required to mint a session record.
type SessionCreateParams struct {
	JTI               uuid.UUID
	UserID            uuid.UUID
	DeviceFingerprint *string
	IPAddress         string
	UserAgent         string
	IssuedAt          time.Time
	ExpiresAt         time.Time
}

// SessionRepository is the single source of truth for session status. Every
// validation re-reads the row; Revoke and MarkExpired are compare-and-set
// transitions out of ACTIVE so concurrent logout/validate cannot both win.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetByJTI(ctx context.Context, jti uuid.UUID) (domain.Session, error)
	Revoke(ctx context.Context, jti uuid.UUID, revokedAt time.Time) error
	MarkExpired(ctx context.Context, jti uuid.UUID, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error)
}

// AuthAttemptRepository stores authentication outcomes. Insert is append-only;
// rows are never updated or deleted.
type AuthAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.AuthAttempt) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time) ([]domain.AuthAttempt, error)
}

// RecoveryRepository owns one-time recovery codes and email verification
// tokens. ConsumeCode performs the whole expiry/consumed/kind/mismatch check
// and the consumed-flag flip inside one transaction, comparing hashes in
// constant time, so a code can never be spent twice. A kind mismatch rejects
// before the flip: presenting a code to the wrong verify endpoint does not
// burn it.
type RecoveryRepository interface {
	CreateCode(ctx context.Context, code domain.RecoveryCode) error
	ConsumeCode(ctx context.Context, recoveryID uuid.UUID, kind domain.RecoveryKind, codeHash string, now time.Time) (domain.RecoveryCode, error)
	CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID, tokenHash string, createdAt, expiresAt time.Time) error
	ConsumeEmailVerificationToken(ctx context.Context, tokenHash string, verifiedAt time.Time) (uuid.UUID, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// IdempotencyRecord tracks a previously accepted mutating request.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics for registration.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}
