package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
	"github.com/andinopay/auth-service/internal/ports"
)

// Register creates a payment account and emits `user.registered` through the
// transactional outbox, so identity state and its integration signal cannot diverge.
func (s *Service) Register(ctx context.Context, req RegisterRequest, idempotencyKey string) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	rut, err := domain.NormalizeRUT(req.RUT)
	if err != nil {
		return RegisterResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	if idempotencyKey != "" {
		requestHash := hashRequest(req)
		if err := s.idempotency.Reserve(ctx, idempotencyKey, requestHash, s.nowFn().Add(7*24*time.Hour)); err != nil {
			return RegisterResponse{}, fmt.Errorf("%w: idempotency key already used", domain.ErrConflict)
		}
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"email":         email,
		"registered_at": now,
	})
	user, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserTxParams{
		Email:           email,
		RUT:             rut,
		PasswordHash:    passwordHash,
		EmailVerified:   false,
		RegisteredAtUTC: now,
	}, ports.OutboxEvent{
		EventID:    uuid.New(),
		EventType:  "user.registered",
		Payload:    payload,
		OccurredAt: now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	if idempotencyKey != "" {
		responseBody, _ := json.Marshal(RegisterResponse{UserID: user.UserID})
		_ = s.idempotency.Complete(ctx, idempotencyKey, 201, responseBody, s.nowFn())
	}

	return RegisterResponse{UserID: user.UserID}, nil
}

// Login runs the full orchestration: identifier resolution, lockout gate,
// password verification, account-state gates, device trust, session issuance.
// Every branch writes exactly one AuthAttempt row before returning.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	user, err := s.resolveIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResponse{}, s.failLogin(ctx, nil, req, domain.NewAuthError(domain.ReasonUserNotFound))
		}
		return LoginResponse{}, err
	}

	lockKey := "login:" + user.Email
	state, lockErr := s.lockouts.Get(ctx, lockKey)
	if lockErr != nil {
		// Fail closed: without lockout state the policy cannot be enforced.
		slog.Default().ErrorContext(ctx, "failed to read lockout state",
			"service", "andinopay-auth-service",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
			"error_code", "LOCKOUT_STATE_UNAVAILABLE",
			"error", lockErr,
		)
		return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, domain.NewAuthError(domain.ReasonAccountBlocked))
	}
	if state.LockedUntil != nil && state.LockedUntil.After(s.nowFn()) {
		slog.Default().WarnContext(ctx, "account lockout active",
			"service", "andinopay-auth-service",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
			"email", user.Email,
			"locked_until", state.LockedUntil,
		)
		return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, domain.NewAuthError(domain.ReasonAccountBlocked))
	}
	if user.Status == domain.UserBlocked {
		return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, domain.NewAuthError(domain.ReasonAccountBlocked))
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		now := s.nowFn()
		state, lockErr := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if lockErr != nil {
			slog.Default().ErrorContext(ctx, "failed to update lockout state",
				"service", "andinopay-auth-service",
				"module", "application",
				"layer", "application",
				"operation", "login",
				"outcome", "blocked",
				"error_code", "LOCKOUT_STATE_UNAVAILABLE",
				"error", lockErr,
			)
			return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, domain.NewAuthError(domain.ReasonAccountBlocked))
		}
		if state.LockedUntil != nil && state.LockedUntil.After(now) {
			slog.Default().WarnContext(ctx, "account lockout triggered",
				"service", "andinopay-auth-service",
				"module", "application",
				"layer", "application",
				"operation", "login",
				"outcome", "blocked",
				"email", user.Email,
				"locked_until", state.LockedUntil,
			)
		}
		remaining := s.cfg.FailedLoginThreshold - state.FailedCount
		if remaining < 0 {
			remaining = 0
		}
		return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, domain.NewBadCredentialsError(remaining))
	}
	_ = s.lockouts.Clear(ctx, lockKey)

	if user.Status == domain.UserPasswordReset {
		return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, domain.NewAuthError(domain.ReasonPasswordReset))
	}
	if !user.EmailVerified {
		return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, domain.NewAuthError(domain.ReasonEmailNotVerified))
	}

	device, err := s.resolveDeviceTrust(ctx, user, req)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			return LoginResponse{}, s.failLogin(ctx, &user.UserID, req, authErr)
		}
		return LoginResponse{}, err
	}

	now := s.nowFn()
	jti := uuid.New()
	fingerprint := device.Fingerprint
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		JTI:               jti,
		UserID:            user.UserID,
		DeviceFingerprint: &fingerprint,
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.cfg.SessionTTL),
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		JTI:       session.JTI,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.recordAttempt(ctx, domain.AuthAttempt{
		UserID:      &user.UserID,
		Fingerprint: device.Fingerprint,
		JTI:         &session.JTI,
		Success:     true,
		Reason:      domain.ReasonOK,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		OccurredAt:  now,
	}); err != nil {
		return LoginResponse{}, err
	}

	s.enqueueEvent(ctx, "auth.login.succeeded", user.UserID.String(), map[string]any{
		"user_id":     user.UserID,
		"jti":         session.JTI,
		"fingerprint": device.Fingerprint,
		"occurred_at": now,
	})

	return LoginResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(s.cfg.TokenTTL),
		JTI:         session.JTI,
	}, nil
}

// resolveDeviceTrust applies the device policy and returns the trusted device
// on success. Failures come back as *domain.AuthError values; the caller owns
// the audit write.
func (s *Service) resolveDeviceTrust(ctx context.Context, user domain.User, req LoginRequest) (domain.Device, error) {
	fingerprint := strings.TrimSpace(req.DeviceFingerprint)
	if fingerprint == "" {
		return domain.Device{}, domain.NewAuthError(domain.ReasonDeviceRequired)
	}

	device, err := s.devices.GetByFingerprint(ctx, fingerprint)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		bound, bindErr := s.devices.Bind(ctx, ports.BindDeviceParams{
			Fingerprint: fingerprint,
			UserID:      user.UserID,
			DeviceType:  req.DeviceType,
			OS:          req.DeviceOS,
			Browser:     req.Browser,
			Authorized:  s.cfg.DeviceTrustOnFirstUse,
			BoundAt:     s.nowFn(),
		})
		if bindErr != nil {
			if errors.Is(bindErr, domain.ErrConflict) {
				// Lost the first-registration race to another user.
				return domain.Device{}, domain.NewAuthError(domain.ReasonDeviceUnauthorized)
			}
			return domain.Device{}, fmt.Errorf("bind device: %w", bindErr)
		}
		if !bound.Authorized {
			return domain.Device{}, domain.NewAuthError(domain.ReasonDeviceUnauthorized)
		}
		return bound, nil

	case err != nil:
		return domain.Device{}, fmt.Errorf("load device: %w", err)
	}

	if device.UserID == nil {
		// Previously detached device: re-binding follows the same trust
		// policy as a first-time registration.
		bound, bindErr := s.devices.Bind(ctx, ports.BindDeviceParams{
			Fingerprint: fingerprint,
			UserID:      user.UserID,
			DeviceType:  req.DeviceType,
			OS:          req.DeviceOS,
			Browser:     req.Browser,
			Authorized:  s.cfg.DeviceTrustOnFirstUse,
			BoundAt:     s.nowFn(),
		})
		if bindErr != nil {
			if errors.Is(bindErr, domain.ErrConflict) {
				return domain.Device{}, domain.NewAuthError(domain.ReasonDeviceUnauthorized)
			}
			return domain.Device{}, fmt.Errorf("rebind device: %w", bindErr)
		}
		if !bound.Authorized {
			return domain.Device{}, domain.NewAuthError(domain.ReasonDeviceUnauthorized)
		}
		return bound, nil
	}

	if *device.UserID != user.UserID {
		return domain.Device{}, domain.NewAuthError(domain.ReasonDeviceUnauthorized)
	}
	if !device.Authorized {
		return domain.Device{}, domain.NewAuthError(domain.ReasonDeviceUnauthorized)
	}
	return device, nil
}

// Logout transitions the token's session to REVOKED. A token that resolves to
// no ACTIVE session is an idempotent no-op signalled by ErrNoActiveSession;
// session state is never corrupted by repeated calls.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokenSigner.ParseAndValidate(rawToken)
	if err != nil {
		return domain.ErrUnauthorized
	}
	now := s.nowFn()
	if err := s.sessions.Revoke(ctx, claims.JTI, now); err != nil {
		return err
	}
	_ = s.revocations.MarkRevoked(ctx, claims.JTI, now.Add(s.cfg.TokenTTL))
	return nil
}
