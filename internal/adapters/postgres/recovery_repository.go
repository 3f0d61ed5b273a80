package postgres

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andinopay/auth-service/internal/domain"
)

type recoveryRepository struct {
	db *gorm.DB
}

func (r *recoveryRepository) CreateCode(ctx context.Context, code domain.RecoveryCode) error {
	rec := recoveryCodeModel{
		RecoveryID:        code.RecoveryID,
		UserID:            code.UserID,
		Kind:              string(code.Kind),
		CodeHash:          code.CodeHash,
		DeviceFingerprint: code.DeviceFingerprint,
		CreatedAt:         code.CreatedAt,
		ExpiresAt:         code.ExpiresAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// ConsumeCode evaluates expiry, consumption, kind, and the hash comparison
// under a row lock and flips consumed_at in the same transaction, so a code
// can be spent at most once even under concurrent verification. Kind and hash
// mismatches reject without consuming.
func (r *recoveryRepository) ConsumeCode(ctx context.Context, recoveryID uuid.UUID, kind domain.RecoveryKind, codeHash string, now time.Time) (domain.RecoveryCode, error) {
	var rec recoveryCodeModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("recovery_id = ?", recoveryID).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if !rec.ExpiresAt.After(now) {
			return domain.ErrRecoveryExpired
		}
		if rec.ConsumedAt != nil {
			return domain.ErrRecoveryConsumed
		}
		if rec.Kind != string(kind) {
			return domain.ErrRecoveryMismatch
		}
		if subtle.ConstantTimeCompare([]byte(rec.CodeHash), []byte(codeHash)) != 1 {
			return domain.ErrRecoveryMismatch
		}
		if err := tx.Model(&recoveryCodeModel{}).
			Where("recovery_id = ?", rec.RecoveryID).
			Update("consumed_at", now).Error; err != nil {
			return err
		}
		rec.ConsumedAt = &now
		return nil
	})
	if err != nil {
		return domain.RecoveryCode{}, err
	}
	return toDomainRecoveryCode(rec), nil
}

func (r *recoveryRepository) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID, tokenHash string, createdAt, expiresAt time.Time) error {
	rec := emailVerificationTokenModel{
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *recoveryRepository) ConsumeEmailVerificationToken(ctx context.Context, tokenHash string, verifiedAt time.Time) (uuid.UUID, error) {
	var rec emailVerificationTokenModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", tokenHash).
			Where("verified_at IS NULL").
			Where("expires_at > ?", verifiedAt).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		return tx.Model(&emailVerificationTokenModel{}).
			Where("token_id = ?", rec.TokenID).
			Update("verified_at", verifiedAt).Error
	})
	if err != nil {
		return uuid.Nil, err
	}
	return rec.UserID, nil
}
