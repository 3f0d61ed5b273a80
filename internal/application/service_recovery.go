package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
	"github.com/andinopay/auth-service/internal/ports"
)

// StartPasswordRecovery issues a one-time password-reset code. Unknown
// identifiers get a synthetic recovery ID with the same shape and timing as
// the real path, so the endpoint leaks no account existence.
func (s *Service) StartPasswordRecovery(ctx context.Context, req StartRecoveryRequest) (StartRecoveryResponse, error) {
	now := s.nowFn()
	user, err := s.resolveIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return StartRecoveryResponse{RecoveryID: uuid.New(), ExpiresAt: now.Add(s.cfg.RecoveryCodeTTL)}, nil
		}
		return StartRecoveryResponse{}, err
	}
	return s.startRecovery(ctx, user, domain.RecoveryPassword, nil)
}

// StartDeviceRecovery issues a one-time code that, once verified, authorizes
// the presented device fingerprint for the account.
func (s *Service) StartDeviceRecovery(ctx context.Context, req StartRecoveryRequest) (StartRecoveryResponse, error) {
	fingerprint := strings.TrimSpace(req.DeviceFingerprint)
	if fingerprint == "" {
		return StartRecoveryResponse{}, fmt.Errorf("%w: device fingerprint is required", domain.ErrInvalidInput)
	}
	now := s.nowFn()
	user, err := s.resolveIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return StartRecoveryResponse{RecoveryID: uuid.New(), ExpiresAt: now.Add(s.cfg.RecoveryCodeTTL)}, nil
		}
		return StartRecoveryResponse{}, err
	}
	return s.startRecovery(ctx, user, domain.RecoveryDevice, &fingerprint)
}

func (s *Service) startRecovery(ctx context.Context, user domain.User, kind domain.RecoveryKind, fingerprint *string) (StartRecoveryResponse, error) {
	now := s.nowFn()
	code := randomDigits(6)
	record := domain.RecoveryCode{
		RecoveryID:        uuid.New(),
		UserID:            user.UserID,
		Kind:              kind,
		CodeHash:          hashCode(code),
		DeviceFingerprint: fingerprint,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.RecoveryCodeTTL),
	}
	if err := s.recovery.CreateCode(ctx, record); err != nil {
		return StartRecoveryResponse{}, fmt.Errorf("create recovery code: %w", err)
	}
	if err := s.sender.Send(ctx, user.Email, string(kind), code); err != nil {
		return StartRecoveryResponse{}, fmt.Errorf("send recovery code: %w", err)
	}
	return StartRecoveryResponse{RecoveryID: record.RecoveryID, ExpiresAt: record.ExpiresAt}, nil
}

// VerifyPasswordRecovery consumes the code and rotates the password. Every
// existing session is revoked so a stolen session cannot outlive the reset.
func (s *Service) VerifyPasswordRecovery(ctx context.Context, req VerifyPasswordRecoveryRequest) error {
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	now := s.nowFn()
	record, err := s.recovery.ConsumeCode(ctx, req.RecoveryID, domain.RecoveryPassword, hashCode(req.Code), now)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.credentials.UpdatePassword(ctx, record.UserID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.credentials.SetStatus(ctx, record.UserID, domain.UserActive, now); err != nil {
		return fmt.Errorf("restore account status: %w", err)
	}
	if _, err := s.sessions.RevokeAllByUser(ctx, record.UserID, now); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if user, uerr := s.users.GetByID(ctx, record.UserID); uerr == nil {
		_ = s.lockouts.Clear(ctx, "login:"+user.Email)
	}

	s.enqueueEvent(ctx, "auth.password.reset", record.UserID.String(), map[string]any{
		"user_id":     record.UserID,
		"occurred_at": now,
	})
	return nil
}

// VerifyDeviceRecovery consumes the code and authorizes the fingerprint the
// recovery was started with. Binding fails with ErrConflict if another user
// claimed the device in the meantime.
func (s *Service) VerifyDeviceRecovery(ctx context.Context, req VerifyDeviceRecoveryRequest) error {
	now := s.nowFn()
	record, err := s.recovery.ConsumeCode(ctx, req.RecoveryID, domain.RecoveryDevice, hashCode(req.Code), now)
	if err != nil {
		return err
	}
	if record.DeviceFingerprint == nil {
		return domain.ErrRecoveryMismatch
	}

	fingerprint := *record.DeviceFingerprint
	device, err := s.devices.GetByFingerprint(ctx, fingerprint)
	switch {
	case errors.Is(err, domain.ErrNotFound), err == nil && device.UserID == nil:
		if _, bindErr := s.devices.Bind(ctx, ports.BindDeviceParams{
			Fingerprint: fingerprint,
			UserID:      record.UserID,
			Authorized:  true,
			BoundAt:     now,
		}); bindErr != nil {
			return bindErr
		}
	case err != nil:
		return fmt.Errorf("load device: %w", err)
	case *device.UserID != record.UserID:
		return fmt.Errorf("%w: device bound to another account", domain.ErrConflict)
	}
	if err := s.devices.SetAuthorized(ctx, fingerprint, true, now); err != nil {
		return fmt.Errorf("authorize device: %w", err)
	}

	s.enqueueEvent(ctx, "auth.device.authorized", record.UserID.String(), map[string]any{
		"user_id":     record.UserID,
		"fingerprint": fingerprint,
		"occurred_at": now,
	})
	return nil
}

// StartEmailVerification issues a fresh verification token for an address
// that has not yet been confirmed. Like recovery start it is unauthenticated
// and anti-enumeration: unknown or already-verified identifiers succeed
// silently.
func (s *Service) StartEmailVerification(ctx context.Context, identifier string) error {
	user, err := s.resolveIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	now := s.nowFn()
	token := randomHex(32)
	if err := s.recovery.CreateEmailVerificationToken(ctx, user.UserID, hashCode(token), now, now.Add(24*time.Hour)); err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}
	if err := s.sender.Send(ctx, user.Email, "EMAIL_VERIFICATION", token); err != nil {
		return fmt.Errorf("send verification token: %w", err)
	}
	return nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	now := s.nowFn()
	userID, err := s.recovery.ConsumeEmailVerificationToken(ctx, hashCode(token), now)
	if err != nil {
		return err
	}
	if err := s.credentials.SetEmailVerified(ctx, userID, true, now); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	s.enqueueEvent(ctx, "auth.email.verified", userID.String(), map[string]any{
		"user_id":     userID,
		"occurred_at": now,
	})
	return nil
}
