package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andinopay/auth-service/internal/domain"
	"github.com/andinopay/auth-service/internal/ports"
)

type deviceRepository struct {
	db *gorm.DB
}

// Bind registers or re-claims a fingerprint for a user. The row lock makes
// the ownership check and the write a single step, so two concurrent logins
// cannot both claim an unowned device for different users.
func (r *deviceRepository) Bind(ctx context.Context, params ports.BindDeviceParams) (domain.Device, error) {
	var result domain.Device
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec deviceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("fingerprint = ?", params.Fingerprint).
			Take(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = deviceModel{
				Fingerprint: params.Fingerprint,
				DeviceType:  params.DeviceType,
				DeviceOS:    params.OS,
				Browser:     params.Browser,
				UserID:      &params.UserID,
				Authorized:  params.Authorized,
				CreatedAt:   params.BoundAt,
				UpdatedAt:   params.BoundAt,
			}
			if err := tx.Create(&rec).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrConflict
				}
				return err
			}
			result = toDomainDevice(rec)
			return nil
		case err != nil:
			return err
		}

		if rec.UserID != nil && *rec.UserID != params.UserID {
			return domain.ErrConflict
		}

		updates := map[string]any{
			"user_id":    params.UserID,
			"authorized": params.Authorized,
			"updated_at": params.BoundAt,
		}
		if err := tx.Model(&deviceModel{}).
			Where("fingerprint = ?", params.Fingerprint).
			Updates(updates).Error; err != nil {
			return err
		}
		rec.UserID = &params.UserID
		rec.Authorized = params.Authorized
		rec.UpdatedAt = params.BoundAt
		result = toDomainDevice(rec)
		return nil
	})
	if err != nil {
		return domain.Device{}, err
	}
	return result, nil
}

func (r *deviceRepository) GetByFingerprint(ctx context.Context, fingerprint string) (domain.Device, error) {
	var rec deviceModel
	if err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Device{}, domain.ErrNotFound
		}
		return domain.Device{}, err
	}
	return toDomainDevice(rec), nil
}

func (r *deviceRepository) SetAuthorized(ctx context.Context, fingerprint string, authorized bool, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&deviceModel{}).
		Where("fingerprint = ?", fingerprint).
		Updates(map[string]any{
			"authorized": authorized,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Detach clears ownership and authorization but keeps the row. Sessions and
// audit rows referencing the fingerprint are untouched.
func (r *deviceRepository) Detach(ctx context.Context, fingerprint string, detachedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&deviceModel{}).
		Where("fingerprint = ?", fingerprint).
		Where("user_id IS NOT NULL").
		Updates(map[string]any{
			"user_id":    nil,
			"authorized": false,
			"updated_at": detachedAt,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
