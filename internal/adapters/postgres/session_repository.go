package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andinopay/auth-service/internal/domain"
	"github.com/andinopay/auth-service/internal/ports"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	rec := sessionModel{
		JTI:               params.JTI,
		UserID:            params.UserID,
		Status:            string(domain.SessionActive),
		DeviceFingerprint: params.DeviceFingerprint,
		IPAddress:         nullableString(params.IPAddress),
		UserAgent:         params.UserAgent,
		IssuedAt:          params.IssuedAt,
		ExpiresAt:         params.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) GetByJTI(ctx context.Context, jti uuid.UUID) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("jti = ?", jti).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

// Revoke is a compare-and-set out of ACTIVE. Losing the race (already
// revoked, already expired, or unknown jti) reports ErrNoActiveSession so
// repeated logout stays an idempotent no-op.
func (r *sessionRepository) Revoke(ctx context.Context, jti uuid.UUID, revokedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("jti = ?", jti).
		Where("status = ?", string(domain.SessionActive)).
		Updates(map[string]any{
			"status":     string(domain.SessionRevoked),
			"revoked_at": revokedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNoActiveSession
	}
	return nil
}

// MarkExpired flips ACTIVE to EXPIRED. A zero row count means a concurrent
// transition already made the session terminal, which is not an error.
func (r *sessionRepository) MarkExpired(ctx context.Context, jti uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("jti = ?", jti).
		Where("status = ?", string(domain.SessionActive)).
		Update("status", string(domain.SessionExpired)).Error
}

func (r *sessionRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("user_id = ?", userID).
		Where("status = ?", string(domain.SessionActive)).
		Updates(map[string]any{
			"status":     string(domain.SessionRevoked),
			"revoked_at": revokedAt,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	var rows []sessionModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Limit(limit).
		Offset(offset)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Session, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainSession(item))
	}
	return result, nil
}
