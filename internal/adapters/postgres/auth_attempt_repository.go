package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andinopay/auth-service/internal/domain"
)

type authAttemptRepository struct {
	db *gorm.DB
}

func (r *authAttemptRepository) Insert(ctx context.Context, attempt domain.AuthAttempt) error {
	rec := authAttemptModel{
		UserID:      attempt.UserID,
		Fingerprint: attempt.Fingerprint,
		JTI:         attempt.JTI,
		Success:     attempt.Success,
		Reason:      string(attempt.Reason),
		IPAddress:   nullableString(attempt.IPAddress),
		UserAgent:   attempt.UserAgent,
		OccurredAt:  attempt.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *authAttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time) ([]domain.AuthAttempt, error) {
	var rows []authAttemptModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Offset(offset)
	if since != nil {
		query = query.Where("occurred_at >= ?", *since)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.AuthAttempt, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainAuthAttempt(item))
	}
	return result, nil
}
