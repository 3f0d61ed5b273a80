package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/andinopay/auth-service/internal/domain"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:        row.UserID,
		Email:         row.Email,
		RUT:           row.RUT,
		PasswordHash:  row.PasswordHash,
		Status:        domain.UserStatus(row.Status),
		EmailVerified: row.EmailVerified,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		DeletedAt:     row.DeletedAt,
	}
}

func toDomainDevice(row deviceModel) domain.Device {
	return domain.Device{
		Fingerprint: row.Fingerprint,
		DeviceType:  row.DeviceType,
		OS:          row.DeviceOS,
		Browser:     row.Browser,
		UserID:      row.UserID,
		Authorized:  row.Authorized,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.Session{
		JTI:               row.JTI,
		UserID:            row.UserID,
		Status:            domain.SessionStatus(row.Status),
		DeviceFingerprint: row.DeviceFingerprint,
		IPAddress:         ip,
		UserAgent:         row.UserAgent,
		IssuedAt:          row.IssuedAt,
		ExpiresAt:         row.ExpiresAt,
		RevokedAt:         row.RevokedAt,
	}
}

func toDomainAuthAttempt(row authAttemptModel) domain.AuthAttempt {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.AuthAttempt{
		ID:          row.ID,
		UserID:      row.UserID,
		Fingerprint: row.Fingerprint,
		JTI:         row.JTI,
		Success:     row.Success,
		Reason:      domain.AuthReason(row.Reason),
		IPAddress:   ip,
		UserAgent:   row.UserAgent,
		OccurredAt:  row.OccurredAt,
	}
}

func toDomainRecoveryCode(row recoveryCodeModel) domain.RecoveryCode {
	return domain.RecoveryCode{
		RecoveryID:        row.RecoveryID,
		UserID:            row.UserID,
		Kind:              domain.RecoveryKind(row.Kind),
		CodeHash:          row.CodeHash,
		DeviceFingerprint: row.DeviceFingerprint,
		CreatedAt:         row.CreatedAt,
		ExpiresAt:         row.ExpiresAt,
		ConsumedAt:        row.ConsumedAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
