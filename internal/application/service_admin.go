package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
)

// UnblockUser clears both layers of blocking: the cache-backed lockout window
// and, if present, the administrative BLOCKED status.
func (s *Service) UnblockUser(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.lockouts.Clear(ctx, "login:"+user.Email); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	now := s.nowFn()
	if user.Status == domain.UserBlocked {
		if err := s.credentials.SetStatus(ctx, userID, domain.UserActive, now); err != nil {
			return fmt.Errorf("unblock account: %w", err)
		}
	}
	s.enqueueEvent(ctx, "auth.account.unblocked", userID.String(), map[string]any{
		"user_id":     userID,
		"occurred_at": now,
	})
	return nil
}

// ForcePasswordReset suspends password logins until a recovery completes and
// revokes every live session. Used for compromise response.
func (s *Service) ForcePasswordReset(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	now := s.nowFn()
	if err := s.credentials.SetStatus(ctx, userID, domain.UserPasswordReset, now); err != nil {
		return fmt.Errorf("set password-reset status: %w", err)
	}
	if _, err := s.sessions.RevokeAllByUser(ctx, userID, now); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.enqueueEvent(ctx, "auth.password_reset.forced", userID.String(), map[string]any{
		"user_id":     userID,
		"occurred_at": now,
	})
	return nil
}

// DetachDevice clears a device's owner and de-authorizes it. The row itself
// survives, and past sessions keep referring to the fingerprint.
func (s *Service) DetachDevice(ctx context.Context, fingerprint string) (int64, error) {
	now := s.nowFn()
	detached, err := s.devices.Detach(ctx, fingerprint, now)
	if err != nil {
		return 0, fmt.Errorf("detach device: %w", err)
	}
	if detached > 0 {
		s.enqueueEvent(ctx, "auth.device.detached", fingerprint, map[string]any{
			"fingerprint": fingerprint,
			"occurred_at": now,
		})
	}
	return detached, nil
}
