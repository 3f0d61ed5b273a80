package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
)

type Config struct {
	TokenTTL             time.Duration
	SessionTTL           time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	RecoveryCodeTTL      time.Duration
	// DeviceTrustOnFirstUse controls the unknown-fingerprint policy: true
	// binds and authorizes on first successful login, false registers the
	// device unauthorized and requires the device recovery flow.
	DeviceTrustOnFirstUse bool
}

type RegisterRequest struct {
	Email    string `json:"email"`
	RUT      string `json:"rut"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"user_id"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`

	// DeviceFingerprint arrives out-of-band (request header), not in the body.
	DeviceFingerprint string `json:"-"`
	DeviceType        string `json:"device_type"`
	DeviceOS          string `json:"device_os"`
	Browser           string `json:"browser"`
	IPAddress         string `json:"-"`
	UserAgent         string `json:"-"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	JTI         uuid.UUID `json:"jti"`
}

type StartRecoveryRequest struct {
	Identifier        string `json:"identifier"`
	DeviceFingerprint string `json:"-"`
}

type StartRecoveryResponse struct {
	RecoveryID uuid.UUID `json:"recovery_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type VerifyPasswordRecoveryRequest struct {
	RecoveryID  uuid.UUID `json:"recovery_id"`
	Code        string    `json:"code"`
	NewPassword string    `json:"new_password"`
}

type VerifyDeviceRecoveryRequest struct {
	RecoveryID uuid.UUID `json:"recovery_id"`
	Code       string    `json:"code"`
}

type SessionItem struct {
	JTI               uuid.UUID  `json:"jti"`
	Status            string     `json:"status"`
	DeviceFingerprint *string    `json:"device_fingerprint,omitempty"`
	IPAddress         string     `json:"ip_address"`
	IssuedAt          time.Time  `json:"issued_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	IsCurrent         bool       `json:"is_current"`
}

type LoginHistoryQuery struct {
	Page  int
	Limit int
	Days  int
}

type LoginHistoryItem struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	IPAddress   string    `json:"ip_address"`
}

func toSessionItem(s domain.Session, currentJTI uuid.UUID) SessionItem {
	return SessionItem{
		JTI:               s.JTI,
		Status:            string(s.Status),
		DeviceFingerprint: s.DeviceFingerprint,
		IPAddress:         s.IPAddress,
		IssuedAt:          s.IssuedAt,
		ExpiresAt:         s.ExpiresAt,
		RevokedAt:         s.RevokedAt,
		IsCurrent:         s.JTI == currentJTI,
	}
}
