package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID        uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string     `gorm:"column:email"`
	RUT           string     `gorm:"column:rut"`
	PasswordHash  string     `gorm:"column:password_hash"`
	Status        string     `gorm:"column:status"`
	EmailVerified bool       `gorm:"column:email_verified"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
}

func (userModel) TableName() string { return "users" }

type deviceModel struct {
	Fingerprint string     `gorm:"column:fingerprint;primaryKey"`
	DeviceType  string     `gorm:"column:device_type"`
	DeviceOS    string     `gorm:"column:device_os"`
	Browser     string     `gorm:"column:browser"`
	UserID      *uuid.UUID `gorm:"column:user_id"`
	Authorized  bool       `gorm:"column:authorized"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (deviceModel) TableName() string { return "devices" }

// sessionModel is keyed by the token's jti. device_fingerprint is a plain
// column, not a foreign key, so detaching a device leaves history intact.
type sessionModel struct {
	JTI               uuid.UUID  `gorm:"column:jti;type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"column:user_id"`
	Status            string     `gorm:"column:status"`
	DeviceFingerprint *string    `gorm:"column:device_fingerprint"`
	IPAddress         *string    `gorm:"column:ip_address"`
	UserAgent         string     `gorm:"column:user_agent"`
	IssuedAt          time.Time  `gorm:"column:issued_at"`
	ExpiresAt         time.Time  `gorm:"column:expires_at"`
	RevokedAt         *time.Time `gorm:"column:revoked_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type authAttemptModel struct {
	ID          int64      `gorm:"column:id;primaryKey"`
	UserID      *uuid.UUID `gorm:"column:user_id"`
	Fingerprint string     `gorm:"column:fingerprint"`
	JTI         *uuid.UUID `gorm:"column:jti"`
	Success     bool       `gorm:"column:success"`
	Reason      string     `gorm:"column:reason"`
	IPAddress   *string    `gorm:"column:ip_address"`
	UserAgent   string     `gorm:"column:user_agent"`
	OccurredAt  time.Time  `gorm:"column:occurred_at"`
}

func (authAttemptModel) TableName() string { return "auth_attempts" }

type recoveryCodeModel struct {
	RecoveryID        uuid.UUID  `gorm:"column:recovery_id;type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"column:user_id"`
	Kind              string     `gorm:"column:kind"`
	CodeHash          string     `gorm:"column:code_hash"`
	DeviceFingerprint *string    `gorm:"column:device_fingerprint"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	ExpiresAt         time.Time  `gorm:"column:expires_at"`
	ConsumedAt        *time.Time `gorm:"column:consumed_at"`
}

func (recoveryCodeModel) TableName() string { return "recovery_codes" }

type emailVerificationTokenModel struct {
	TokenID    uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id"`
	TokenHash  string     `gorm:"column:token_hash"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ExpiresAt  time.Time  `gorm:"column:expires_at"`
	VerifiedAt *time.Time `gorm:"column:verified_at"`
}

func (emailVerificationTokenModel) TableName() string { return "email_verification_tokens" }

type authOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (authOutboxModel) TableName() string { return "auth_outbox" }

type authIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (authIdempotencyModel) TableName() string { return "auth_idempotency" }
