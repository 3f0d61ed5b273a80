package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
	"github.com/andinopay/auth-service/internal/ports"
)

func TestRegisterLoginLogout(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Register(ctx, RegisterRequest{
		Email:    "Ana@Example.com",
		RUT:      "12.345.678-5",
		Password: "Andes-Cordillera-9",
	}, "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if res.UserID == uuid.Nil {
		t.Fatalf("expected user id")
	}
	user, err := f.users.GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.RUT != "12345678-5" {
		t.Fatalf("expected canonical rut, got %q", user.RUT)
	}
	if len(f.users.events) != 1 || f.users.events[0].EventType != "user.registered" {
		t.Fatalf("expected user.registered outbox event, got %+v", f.users.events)
	}

	f.verifyEmail(t, user.UserID)

	loginRes, err := f.service.Login(ctx, loginReq("ana@example.com", "Andes-Cordillera-9", "fp-1"))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := f.service.ValidateToken(ctx, loginRes.AccessToken)
	if err != nil {
		t.Fatalf("validate token failed: %v", err)
	}
	if claims.UserID != user.UserID || claims.JTI != loginRes.JTI {
		t.Fatalf("unexpected claims %+v", claims)
	}

	session, err := f.sessions.GetByJTI(ctx, loginRes.JTI)
	if err != nil {
		t.Fatalf("load session failed: %v", err)
	}
	if session.Status != domain.SessionActive {
		t.Fatalf("expected ACTIVE session, got %s", session.Status)
	}
	if got := len(f.attempts.rows); got != 1 {
		t.Fatalf("expected exactly one auth attempt, got %d", got)
	}
	if a := f.attempts.rows[0]; !a.Success || a.Reason != domain.ReasonOK || a.JTI == nil || *a.JTI != loginRes.JTI {
		t.Fatalf("unexpected attempt row %+v", a)
	}

	if err := f.service.Logout(ctx, loginRes.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := f.service.Logout(ctx, loginRes.AccessToken); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession on repeated logout, got %v", err)
	}
	session, _ = f.sessions.GetByJTI(ctx, loginRes.JTI)
	if session.Status != domain.SessionRevoked {
		t.Fatalf("expected REVOKED session after repeated logout, got %s", session.Status)
	}
	if _, err := f.service.ValidateToken(ctx, loginRes.AccessToken); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestRegisterIdempotencyKeyConflict(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	req := RegisterRequest{Email: "dup@example.com", RUT: "11111111-1", Password: "Andes-Cordillera-9"}
	if _, err := f.service.Register(ctx, req, "key-1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := f.service.Register(ctx, req, "key-1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on reused idempotency key, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.Register(ctx, RegisterRequest{Email: "dup@example.com", RUT: "11111111-1", Password: "Andes-Cordillera-9"}, ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, err := f.service.Register(ctx, RegisterRequest{Email: "dup@example.com", RUT: "16666666-K", Password: "Andes-Cordillera-9"}, "")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Register(ctx, RegisterRequest{Email: "weak@example.com", RUT: "11111111-1", Password: "password-123-A!"}, "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginUnknownIdentifier(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Login(ctx, loginReq("ghost@example.com", "whatever", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
	if got := len(f.attempts.rows); got != 1 {
		t.Fatalf("expected one attempt row, got %d", got)
	}
	if f.attempts.rows[0].UserID != nil {
		t.Fatalf("expected nil user on unknown-identifier attempt")
	}
}

func TestLoginByRUT(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "rut@example.com", "16666666-K", "Andes-Cordillera-9", true)

	if _, err := f.service.Login(ctx, loginReq("16.666.666-k", "Andes-Cordillera-9", "fp-1")); err != nil {
		t.Fatalf("login by rut failed: %v", err)
	}
}

func TestLoginMalformedIdentifier(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Login(ctx, loginReq("not-a-rut", "Andes-Cordillera-9", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND for malformed identifier, got %v", err)
	}
}

func TestLoginWrongPasswordLockout(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "lock@example.com", "11111111-1", "Andes-Cordillera-9", true)

	for i := 1; i <= 5; i++ {
		_, err := f.service.Login(ctx, loginReq("lock@example.com", "wrong-pass", "fp-1"))
		var authErr *domain.AuthError
		if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonBadCredentials {
			t.Fatalf("attempt %d: expected BAD_CREDENTIALS, got %v", i, err)
		}
		if authErr.RemainingAttempts == nil || *authErr.RemainingAttempts != 5-i {
			t.Fatalf("attempt %d: expected %d remaining, got %+v", i, 5-i, authErr.RemainingAttempts)
		}
	}

	// Locked out now, even with the correct password.
	_, err := f.service.Login(ctx, loginReq("lock@example.com", "Andes-Cordillera-9", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonAccountBlocked {
		t.Fatalf("expected ACCOUNT_BLOCKED, got %v", err)
	}
	if got := len(f.attempts.rows); got != 6 {
		t.Fatalf("expected six attempt rows, got %d", got)
	}

	// The window expiring acts as the automatic unblock.
	f.advance(31 * time.Minute)
	if _, err := f.service.Login(ctx, loginReq("lock@example.com", "Andes-Cordillera-9", "fp-1")); err != nil {
		t.Fatalf("expected login after lockout window, got %v", err)
	}
}

func TestLoginLockoutClearedOnSuccess(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "count@example.com", "11111111-1", "Andes-Cordillera-9", true)

	for i := 0; i < 3; i++ {
		_, _ = f.service.Login(ctx, loginReq("count@example.com", "wrong-pass", "fp-1"))
	}
	if _, err := f.service.Login(ctx, loginReq("count@example.com", "Andes-Cordillera-9", "fp-1")); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Counter restarts after a success.
	_, err := f.service.Login(ctx, loginReq("count@example.com", "wrong-pass", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.RemainingAttempts == nil || *authErr.RemainingAttempts != 4 {
		t.Fatalf("expected 4 remaining after reset, got %v", err)
	}
}

func TestLoginFailsClosedWhenLockoutStoreDown(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "outage@example.com", "11111111-1", "Andes-Cordillera-9", true)
	f.service.lockouts = &downLockouts{}

	// Without readable lockout state the policy cannot be enforced, so even
	// a correct password is rejected.
	_, err := f.service.Login(ctx, loginReq("outage@example.com", "Andes-Cordillera-9", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonAccountBlocked {
		t.Fatalf("expected ACCOUNT_BLOCKED on lockout read failure, got %v", err)
	}
	if got := len(f.attempts.rows); got != 1 {
		t.Fatalf("expected one attempt row, got %d", got)
	}
}

func TestLoginFailsClosedWhenLockoutWriteFails(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "outage2@example.com", "11111111-1", "Andes-Cordillera-9", true)
	f.service.lockouts = &downLockouts{readsOK: true}

	// A wrong password whose failure cannot be counted must not degrade to
	// BAD_CREDENTIALS with a fabricated attempts budget.
	_, err := f.service.Login(ctx, loginReq("outage2@example.com", "wrong-pass", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonAccountBlocked {
		t.Fatalf("expected ACCOUNT_BLOCKED on lockout write failure, got %v", err)
	}
	if authErr.RemainingAttempts != nil {
		t.Fatalf("expected no remaining-attempts hint, got %d", *authErr.RemainingAttempts)
	}
}

func TestLoginMissingFingerprint(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "nofp@example.com", "11111111-1", "Andes-Cordillera-9", true)

	_, err := f.service.Login(ctx, loginReq("nofp@example.com", "Andes-Cordillera-9", ""))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonDeviceRequired {
		t.Fatalf("expected DEVICE_REQUIRED, got %v", err)
	}
	if got := len(f.attempts.rows); got != 1 {
		t.Fatalf("expected one attempt row, got %d", got)
	}
	if got := len(f.sessions.byJTI); got != 0 {
		t.Fatalf("expected no session, got %d", got)
	}
}

func TestLoginDeviceOwnedByOtherUser(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "first@example.com", "11111111-1", "Andes-Cordillera-9", true)
	f.seedUser(t, "second@example.com", "16666666-K", "Andes-Cordillera-9", true)

	if _, err := f.service.Login(ctx, loginReq("first@example.com", "Andes-Cordillera-9", "fp-shared")); err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	_, err := f.service.Login(ctx, loginReq("second@example.com", "Andes-Cordillera-9", "fp-shared"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonDeviceUnauthorized {
		t.Fatalf("expected DEVICE_UNAUTHORIZED, got %v", err)
	}
}

func TestLoginTrustOnFirstUseDisabled(t *testing.T) {
	t.Parallel()
	cfg := defaultTestConfig()
	cfg.DeviceTrustOnFirstUse = false
	f := newFixtureWithConfig(cfg)
	ctx := context.Background()
	f.seedUser(t, "strict@example.com", "11111111-1", "Andes-Cordillera-9", true)

	_, err := f.service.Login(ctx, loginReq("strict@example.com", "Andes-Cordillera-9", "fp-new"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonDeviceUnauthorized {
		t.Fatalf("expected DEVICE_UNAUTHORIZED, got %v", err)
	}

	// The device row exists, bound but unauthorized, waiting for recovery.
	device, err := f.devices.GetByFingerprint(ctx, "fp-new")
	if err != nil {
		t.Fatalf("load device failed: %v", err)
	}
	if device.Authorized {
		t.Fatalf("expected unauthorized device")
	}
}

func TestLoginEmailNotVerified(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "pending@example.com", "11111111-1", "Andes-Cordillera-9", false)

	_, err := f.service.Login(ctx, loginReq("pending@example.com", "Andes-Cordillera-9", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonEmailNotVerified {
		t.Fatalf("expected EMAIL_NOT_VERIFIED, got %v", err)
	}
}

func TestLoginPasswordResetGate(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	user := f.seedUser(t, "reset@example.com", "11111111-1", "Andes-Cordillera-9", true)

	if err := f.service.ForcePasswordReset(ctx, user.UserID); err != nil {
		t.Fatalf("force password reset failed: %v", err)
	}
	_, err := f.service.Login(ctx, loginReq("reset@example.com", "Andes-Cordillera-9", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonPasswordReset {
		t.Fatalf("expected PASSWORD_RESET, got %v", err)
	}
}

func TestValidateTokenLazyExpiry(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "expiry@example.com", "11111111-1", "Andes-Cordillera-9", true)

	loginRes, err := f.service.Login(ctx, loginReq("expiry@example.com", "Andes-Cordillera-9", "fp-1"))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	f.advance(13 * time.Hour)
	if _, err := f.service.ValidateToken(ctx, loginRes.AccessToken); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	session, _ := f.sessions.GetByJTI(ctx, loginRes.JTI)
	if session.Status != domain.SessionExpired {
		t.Fatalf("expected EXPIRED row after lazy flip, got %s", session.Status)
	}
}

func TestRevokeAllSessions(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	user := f.seedUser(t, "multi@example.com", "11111111-1", "Andes-Cordillera-9", true)

	first, err := f.service.Login(ctx, loginReq("multi@example.com", "Andes-Cordillera-9", "fp-1"))
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := f.service.Login(ctx, loginReq("multi@example.com", "Andes-Cordillera-9", "fp-1"))
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	revoked, err := f.service.RevokeAllSessions(ctx, user.UserID)
	if err != nil {
		t.Fatalf("revoke all failed: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", revoked)
	}
	for _, jti := range []uuid.UUID{first.JTI, second.JTI} {
		session, _ := f.sessions.GetByJTI(ctx, jti)
		if session.Status != domain.SessionRevoked {
			t.Fatalf("expected REVOKED, got %s", session.Status)
		}
	}
}

func TestListSessionsFlagsCurrent(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	user := f.seedUser(t, "list@example.com", "11111111-1", "Andes-Cordillera-9", true)

	first, err := f.service.Login(ctx, loginReq("list@example.com", "Andes-Cordillera-9", "fp-1"))
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	if _, err := f.service.Login(ctx, loginReq("list@example.com", "Andes-Cordillera-9", "fp-1")); err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	items, err := f.service.ListSessions(ctx, user.UserID, first.JTI)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(items))
	}
	current := 0
	for _, item := range items {
		if item.IsCurrent {
			current++
			if item.JTI != first.JTI {
				t.Fatalf("wrong session flagged current: %s", item.JTI)
			}
		}
	}
	if current != 1 {
		t.Fatalf("expected exactly one current session, got %d", current)
	}
}

func TestPasswordRecoveryFlow(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "recover@example.com", "11111111-1", "Andes-Cordillera-9", true)

	loginRes, err := f.service.Login(ctx, loginReq("recover@example.com", "Andes-Cordillera-9", "fp-1"))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	start, err := f.service.StartPasswordRecovery(ctx, StartRecoveryRequest{Identifier: "recover@example.com"})
	if err != nil {
		t.Fatalf("start recovery failed: %v", err)
	}
	code := f.sender.lastCode()
	if code == "" {
		t.Fatalf("expected a delivered recovery code")
	}

	err = f.service.VerifyPasswordRecovery(ctx, VerifyPasswordRecoveryRequest{
		RecoveryID:  start.RecoveryID,
		Code:        code,
		NewPassword: "Atacama-Desierto-7",
	})
	if err != nil {
		t.Fatalf("verify recovery failed: %v", err)
	}

	// Existing sessions do not survive the reset.
	session, _ := f.sessions.GetByJTI(ctx, loginRes.JTI)
	if session.Status != domain.SessionRevoked {
		t.Fatalf("expected REVOKED session after reset, got %s", session.Status)
	}

	// The code is spent.
	err = f.service.VerifyPasswordRecovery(ctx, VerifyPasswordRecoveryRequest{
		RecoveryID:  start.RecoveryID,
		Code:        code,
		NewPassword: "Atacama-Desierto-7",
	})
	if !errors.Is(err, domain.ErrRecoveryConsumed) {
		t.Fatalf("expected ErrRecoveryConsumed, got %v", err)
	}

	if _, err := f.service.Login(ctx, loginReq("recover@example.com", "Andes-Cordillera-9", "fp-1")); err == nil {
		t.Fatalf("expected old password to be rejected")
	}
	if _, err := f.service.Login(ctx, loginReq("recover@example.com", "Atacama-Desierto-7", "fp-1")); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestPasswordRecoveryWrongCode(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "wrongcode@example.com", "11111111-1", "Andes-Cordillera-9", true)

	start, err := f.service.StartPasswordRecovery(ctx, StartRecoveryRequest{Identifier: "wrongcode@example.com"})
	if err != nil {
		t.Fatalf("start recovery failed: %v", err)
	}
	err = f.service.VerifyPasswordRecovery(ctx, VerifyPasswordRecoveryRequest{
		RecoveryID:  start.RecoveryID,
		Code:        "000000x",
		NewPassword: "Atacama-Desierto-7",
	})
	if !errors.Is(err, domain.ErrRecoveryMismatch) {
		t.Fatalf("expected ErrRecoveryMismatch, got %v", err)
	}

	// A mismatch does not consume the code.
	err = f.service.VerifyPasswordRecovery(ctx, VerifyPasswordRecoveryRequest{
		RecoveryID:  start.RecoveryID,
		Code:        f.sender.lastCode(),
		NewPassword: "Atacama-Desierto-7",
	})
	if err != nil {
		t.Fatalf("verify with real code failed: %v", err)
	}
}

func TestPasswordRecoveryExpiredCode(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "late@example.com", "11111111-1", "Andes-Cordillera-9", true)

	start, err := f.service.StartPasswordRecovery(ctx, StartRecoveryRequest{Identifier: "late@example.com"})
	if err != nil {
		t.Fatalf("start recovery failed: %v", err)
	}
	f.advance(11 * time.Minute)
	err = f.service.VerifyPasswordRecovery(ctx, VerifyPasswordRecoveryRequest{
		RecoveryID:  start.RecoveryID,
		Code:        f.sender.lastCode(),
		NewPassword: "Atacama-Desierto-7",
	})
	if !errors.Is(err, domain.ErrRecoveryExpired) {
		t.Fatalf("expected ErrRecoveryExpired, got %v", err)
	}
}

func TestPasswordRecoveryUnknownIdentifier(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	start, err := f.service.StartPasswordRecovery(ctx, StartRecoveryRequest{Identifier: "nobody@example.com"})
	if err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if start.RecoveryID == uuid.Nil {
		t.Fatalf("expected a synthetic recovery id")
	}
	if f.sender.lastCode() != "" {
		t.Fatalf("expected no code delivered for unknown identifier")
	}
}

func TestDeviceRecoveryAuthorizes(t *testing.T) {
	t.Parallel()
	cfg := defaultTestConfig()
	cfg.DeviceTrustOnFirstUse = false
	f := newFixtureWithConfig(cfg)
	ctx := context.Background()
	f.seedUser(t, "device@example.com", "11111111-1", "Andes-Cordillera-9", true)

	_, err := f.service.Login(ctx, loginReq("device@example.com", "Andes-Cordillera-9", "fp-locked"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonDeviceUnauthorized {
		t.Fatalf("expected DEVICE_UNAUTHORIZED, got %v", err)
	}

	start, err := f.service.StartDeviceRecovery(ctx, StartRecoveryRequest{
		Identifier:        "device@example.com",
		DeviceFingerprint: "fp-locked",
	})
	if err != nil {
		t.Fatalf("start device recovery failed: %v", err)
	}
	err = f.service.VerifyDeviceRecovery(ctx, VerifyDeviceRecoveryRequest{
		RecoveryID: start.RecoveryID,
		Code:       f.sender.lastCode(),
	})
	if err != nil {
		t.Fatalf("verify device recovery failed: %v", err)
	}

	if _, err := f.service.Login(ctx, loginReq("device@example.com", "Andes-Cordillera-9", "fp-locked")); err != nil {
		t.Fatalf("login after device recovery failed: %v", err)
	}
}

func TestDeviceRecoveryRequiresFingerprint(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.StartDeviceRecovery(ctx, StartRecoveryRequest{Identifier: "any@example.com"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeviceRecoveryCodeRejectedForPasswordVerify(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "cross@example.com", "11111111-1", "Andes-Cordillera-9", true)

	start, err := f.service.StartDeviceRecovery(ctx, StartRecoveryRequest{
		Identifier:        "cross@example.com",
		DeviceFingerprint: "fp-x",
	})
	if err != nil {
		t.Fatalf("start device recovery failed: %v", err)
	}
	err = f.service.VerifyPasswordRecovery(ctx, VerifyPasswordRecoveryRequest{
		RecoveryID:  start.RecoveryID,
		Code:        f.sender.lastCode(),
		NewPassword: "Atacama-Desierto-7",
	})
	if !errors.Is(err, domain.ErrRecoveryMismatch) {
		t.Fatalf("expected ErrRecoveryMismatch for cross-kind use, got %v", err)
	}

	// The cross-kind rejection does not burn the code: the legitimate device
	// verify still succeeds.
	err = f.service.VerifyDeviceRecovery(ctx, VerifyDeviceRecoveryRequest{
		RecoveryID: start.RecoveryID,
		Code:       f.sender.lastCode(),
	})
	if err != nil {
		t.Fatalf("device verify after cross-kind attempt failed: %v", err)
	}
}

func TestEmailVerificationFlow(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "verify@example.com", "11111111-1", "Andes-Cordillera-9", false)

	if err := f.service.StartEmailVerification(ctx, "verify@example.com"); err != nil {
		t.Fatalf("start verification failed: %v", err)
	}
	token := f.sender.lastCode()
	if token == "" {
		t.Fatalf("expected a delivered verification token")
	}
	if err := f.service.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify email failed: %v", err)
	}
	if _, err := f.service.Login(ctx, loginReq("verify@example.com", "Andes-Cordillera-9", "fp-1")); err != nil {
		t.Fatalf("login after verification failed: %v", err)
	}

	// Tokens are single use.
	if err := f.service.VerifyEmail(ctx, token); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on reused token, got %v", err)
	}
}

func TestEmailVerificationSilentForUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	if err := f.service.StartEmailVerification(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if f.sender.lastCode() != "" {
		t.Fatalf("expected no token delivered for unknown identifier")
	}
}

func TestUnblockUserClearsLockout(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	user := f.seedUser(t, "frozen@example.com", "11111111-1", "Andes-Cordillera-9", true)

	for i := 0; i < 5; i++ {
		_, _ = f.service.Login(ctx, loginReq("frozen@example.com", "wrong-pass", "fp-1"))
	}
	_, err := f.service.Login(ctx, loginReq("frozen@example.com", "Andes-Cordillera-9", "fp-1"))
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.ReasonAccountBlocked {
		t.Fatalf("expected ACCOUNT_BLOCKED, got %v", err)
	}

	if err := f.service.UnblockUser(ctx, user.UserID); err != nil {
		t.Fatalf("unblock failed: %v", err)
	}
	if _, err := f.service.Login(ctx, loginReq("frozen@example.com", "Andes-Cordillera-9", "fp-1")); err != nil {
		t.Fatalf("login after unblock failed: %v", err)
	}
}

func TestDetachDeviceBlocksUntilRecovery(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "detach@example.com", "11111111-1", "Andes-Cordillera-9", true)

	if _, err := f.service.Login(ctx, loginReq("detach@example.com", "Andes-Cordillera-9", "fp-d")); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	detached, err := f.service.DetachDevice(ctx, "fp-d")
	if err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if detached != 1 {
		t.Fatalf("expected one detached device, got %d", detached)
	}

	// The row survives unowned; trust-on-first-use re-binds it on the next login.
	device, err := f.devices.GetByFingerprint(ctx, "fp-d")
	if err != nil {
		t.Fatalf("load device failed: %v", err)
	}
	if device.UserID != nil || device.Authorized {
		t.Fatalf("expected detached unauthorized device, got %+v", device)
	}
	if _, err := f.service.Login(ctx, loginReq("detach@example.com", "Andes-Cordillera-9", "fp-d")); err != nil {
		t.Fatalf("re-bind login failed: %v", err)
	}
}

func TestListLoginHistory(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()
	user := f.seedUser(t, "history@example.com", "11111111-1", "Andes-Cordillera-9", true)

	_, _ = f.service.Login(ctx, loginReq("history@example.com", "wrong-pass", "fp-1"))
	if _, err := f.service.Login(ctx, loginReq("history@example.com", "Andes-Cordillera-9", "fp-1")); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	items, err := f.service.ListLoginHistory(ctx, user.UserID, LoginHistoryQuery{})
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(items))
	}
	var reasons []string
	for _, item := range items {
		reasons = append(reasons, item.Reason)
	}
	if reasons[0] != "BAD_CREDENTIALS" && reasons[1] != "BAD_CREDENTIALS" {
		t.Fatalf("expected a BAD_CREDENTIALS row, got %v", reasons)
	}
}

func TestRandomDigitsShape(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		code := randomDigits(6)
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected numeric code, got %q", code)
			}
		}
	}
	if got := randomDigits(0); len(got) != 6 {
		t.Fatalf("expected default size 6, got %q", got)
	}
	if got := randomDigits(8); len(got) != 8 {
		t.Fatalf("expected 8 digits, got %q", got)
	}
}

func loginReq(identifier, password, fingerprint string) LoginRequest {
	return LoginRequest{
		Identifier:        identifier,
		Password:          password,
		DeviceFingerprint: fingerprint,
		DeviceType:        "mobile",
		DeviceOS:          "Android 15",
		Browser:           "andinopay-app/3.2",
		IPAddress:         "200.1.123.45",
		UserAgent:         "andinopay-app/3.2 (Android 15)",
	}
}

func defaultTestConfig() Config {
	return Config{
		TokenTTL:              time.Hour,
		SessionTTL:            12 * time.Hour,
		FailedLoginThreshold:  5,
		LockoutDuration:       30 * time.Minute,
		RecoveryCodeTTL:       10 * time.Minute,
		DeviceTrustOnFirstUse: true,
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func newFixtureWithConfig(cfg Config) *fixture {
	users := &fakeUsers{
		byEmail: map[string]domain.User{},
		byRUT:   map[string]domain.User{},
		byID:    map[uuid.UUID]domain.User{},
	}
	devices := &fakeDevices{byFingerprint: map[string]domain.Device{}}
	sessions := &fakeSessions{byJTI: map[uuid.UUID]domain.Session{}}
	attempts := &fakeAttempts{}
	recovery := &fakeRecovery{
		codes:  map[uuid.UUID]domain.RecoveryCode{},
		tokens: map[string]emailToken{},
	}
	outbox := &fakeOutbox{}
	idem := &fakeIdempotency{records: map[string]ports.IdempotencyRecord{}}
	lockouts := &fakeLockouts{state: map[string]ports.LockoutState{}}
	revocations := &fakeRevocations{revoked: map[uuid.UUID]bool{}}
	sender := &fakeSender{}

	f := &fixture{
		now:         time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		users:       users,
		devices:     devices,
		sessions:    sessions,
		attempts:    attempts,
		recovery:    recovery,
		outbox:      outbox,
		lockouts:    lockouts,
		revocations: revocations,
		sender:      sender,
	}

	svc := NewService(Dependencies{
		Config:      cfg,
		Users:       users,
		Credentials: &fakeCredentials{users: users},
		Devices:     devices,
		Sessions:    sessions,
		Attempts:    attempts,
		Recovery:    recovery,
		Outbox:      outbox,
		Idempotency: idem,
		Lockouts:    lockouts,
		Revocations: revocations,
		Hasher:      &fakeHasher{},
		TokenSigner: &fakeSigner{tokens: map[string]ports.AuthClaims{}},
		Sender:      sender,
	})
	svc.nowFn = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	f.service = svc
	return f
}

type fixture struct {
	mu          sync.Mutex
	now         time.Time
	service     *Service
	users       *fakeUsers
	devices     *fakeDevices
	sessions    *fakeSessions
	attempts    *fakeAttempts
	recovery    *fakeRecovery
	outbox      *fakeOutbox
	lockouts    *fakeLockouts
	revocations *fakeRevocations
	sender      *fakeSender
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) seedUser(t *testing.T, email, rut, password string, verified bool) domain.User {
	t.Helper()
	res, err := f.service.Register(context.Background(), RegisterRequest{
		Email:    email,
		RUT:      rut,
		Password: password,
	}, "")
	if err != nil {
		t.Fatalf("seed register failed: %v", err)
	}
	if verified {
		f.verifyEmail(t, res.UserID)
	}
	user, err := f.users.GetByID(context.Background(), res.UserID)
	if err != nil {
		t.Fatalf("seed load failed: %v", err)
	}
	return user
}

func (f *fixture) verifyEmail(t *testing.T, userID uuid.UUID) {
	t.Helper()
	creds := &fakeCredentials{users: f.users}
	if err := creds.SetEmailVerified(context.Background(), userID, true, f.now); err != nil {
		t.Fatalf("mark verified failed: %v", err)
	}
}

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
	byRUT   map[string]domain.User
	byID    map[uuid.UUID]domain.User
	events  []ports.OutboxEvent
}

func (f *fakeUsers) CreateWithOutboxTx(_ context.Context, params ports.CreateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[params.Email]; ok {
		return domain.User{}, domain.ErrConflict
	}
	if _, ok := f.byRUT[params.RUT]; ok {
		return domain.User{}, domain.ErrConflict
	}
	u := domain.User{
		UserID:        uuid.New(),
		Email:         params.Email,
		RUT:           params.RUT,
		PasswordHash:  params.PasswordHash,
		Status:        domain.UserActive,
		EmailVerified: params.EmailVerified,
		CreatedAt:     params.RegisteredAtUTC,
		UpdatedAt:     params.RegisteredAtUTC,
	}
	f.byEmail[u.Email] = u
	f.byRUT[u.RUT] = u
	f.byID[u.UserID] = u
	f.events = append(f.events, outboxEvent)
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByRUT(_ context.Context, rut string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byRUT[rut]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) store(u domain.User) {
	f.byEmail[u.Email] = u
	f.byRUT[u.RUT] = u
	f.byID[u.UserID] = u
}

type fakeCredentials struct {
	users *fakeUsers
}

func (f *fakeCredentials) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	u, ok := f.users.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	f.users.store(u)
	return nil
}

func (f *fakeCredentials) SetEmailVerified(_ context.Context, userID uuid.UUID, verified bool, updatedAt time.Time) error {
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	u, ok := f.users.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.EmailVerified = verified
	u.UpdatedAt = updatedAt
	f.users.store(u)
	return nil
}

func (f *fakeCredentials) SetStatus(_ context.Context, userID uuid.UUID, status domain.UserStatus, updatedAt time.Time) error {
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	u, ok := f.users.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = updatedAt
	f.users.store(u)
	return nil
}

type fakeDevices struct {
	mu            sync.Mutex
	byFingerprint map[string]domain.Device
}

func (f *fakeDevices) Bind(_ context.Context, params ports.BindDeviceParams) (domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byFingerprint[params.Fingerprint]
	if ok {
		if existing.UserID != nil && *existing.UserID != params.UserID {
			return domain.Device{}, domain.ErrConflict
		}
		userID := params.UserID
		existing.UserID = &userID
		existing.Authorized = params.Authorized
		existing.UpdatedAt = params.BoundAt
		f.byFingerprint[params.Fingerprint] = existing
		return existing, nil
	}
	userID := params.UserID
	d := domain.Device{
		Fingerprint: params.Fingerprint,
		DeviceType:  params.DeviceType,
		OS:          params.OS,
		Browser:     params.Browser,
		UserID:      &userID,
		Authorized:  params.Authorized,
		CreatedAt:   params.BoundAt,
		UpdatedAt:   params.BoundAt,
	}
	f.byFingerprint[params.Fingerprint] = d
	return d, nil
}

func (f *fakeDevices) GetByFingerprint(_ context.Context, fingerprint string) (domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byFingerprint[fingerprint]
	if !ok {
		return domain.Device{}, domain.ErrNotFound
	}
	return d, nil
}

func (f *fakeDevices) SetAuthorized(_ context.Context, fingerprint string, authorized bool, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byFingerprint[fingerprint]
	if !ok {
		return domain.ErrNotFound
	}
	d.Authorized = authorized
	d.UpdatedAt = updatedAt
	f.byFingerprint[fingerprint] = d
	return nil
}

func (f *fakeDevices) Detach(_ context.Context, fingerprint string, detachedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byFingerprint[fingerprint]
	if !ok || d.UserID == nil {
		return 0, nil
	}
	d.UserID = nil
	d.Authorized = false
	d.UpdatedAt = detachedAt
	f.byFingerprint[fingerprint] = d
	return 1, nil
}

type fakeSessions struct {
	mu    sync.Mutex
	byJTI map[uuid.UUID]domain.Session
}

func (f *fakeSessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := domain.Session{
		JTI:               params.JTI,
		UserID:            params.UserID,
		Status:            domain.SessionActive,
		DeviceFingerprint: params.DeviceFingerprint,
		IPAddress:         params.IPAddress,
		UserAgent:         params.UserAgent,
		IssuedAt:          params.IssuedAt,
		ExpiresAt:         params.ExpiresAt,
	}
	f.byJTI[s.JTI] = s
	return s, nil
}

func (f *fakeSessions) GetByJTI(_ context.Context, jti uuid.UUID) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byJTI[jti]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) Revoke(_ context.Context, jti uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byJTI[jti]
	if !ok || s.Status != domain.SessionActive {
		return domain.ErrNoActiveSession
	}
	s.Status = domain.SessionRevoked
	s.RevokedAt = &revokedAt
	f.byJTI[jti] = s
	return nil
}

func (f *fakeSessions) MarkExpired(_ context.Context, jti uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byJTI[jti]
	if !ok || s.Status != domain.SessionActive {
		return nil
	}
	s.Status = domain.SessionExpired
	f.byJTI[jti] = s
	return nil
}

func (f *fakeSessions) RevokeAllByUser(_ context.Context, userID uuid.UUID, revokedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for jti, s := range f.byJTI {
		if s.UserID == userID && s.Status == domain.SessionActive {
			s.Status = domain.SessionRevoked
			s.RevokedAt = &revokedAt
			f.byJTI[jti] = s
			count++
		}
	}
	return count, nil
}

func (f *fakeSessions) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.byJTI {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeAttempts struct {
	mu   sync.Mutex
	rows []domain.AuthAttempt
}

func (f *fakeAttempts) Insert(_ context.Context, attempt domain.AuthAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, attempt)
	return nil
}

func (f *fakeAttempts) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int, since *time.Time) ([]domain.AuthAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuthAttempt
	for i := len(f.rows) - 1; i >= 0; i-- {
		a := f.rows[i]
		if a.UserID == nil || *a.UserID != userID {
			continue
		}
		if since != nil && a.OccurredAt.Before(*since) {
			continue
		}
		out = append(out, a)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type emailToken struct {
	userID    uuid.UUID
	expiresAt time.Time
}

type fakeRecovery struct {
	mu     sync.Mutex
	codes  map[uuid.UUID]domain.RecoveryCode
	tokens map[string]emailToken
}

func (f *fakeRecovery) CreateCode(_ context.Context, code domain.RecoveryCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code.RecoveryID] = code
	return nil
}

func (f *fakeRecovery) ConsumeCode(_ context.Context, recoveryID uuid.UUID, kind domain.RecoveryKind, codeHash string, now time.Time) (domain.RecoveryCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.codes[recoveryID]
	if !ok {
		return domain.RecoveryCode{}, domain.ErrNotFound
	}
	if !record.ExpiresAt.After(now) {
		return domain.RecoveryCode{}, domain.ErrRecoveryExpired
	}
	if record.ConsumedAt != nil {
		return domain.RecoveryCode{}, domain.ErrRecoveryConsumed
	}
	if record.Kind != kind {
		return domain.RecoveryCode{}, domain.ErrRecoveryMismatch
	}
	if subtle.ConstantTimeCompare([]byte(record.CodeHash), []byte(codeHash)) != 1 {
		return domain.RecoveryCode{}, domain.ErrRecoveryMismatch
	}
	record.ConsumedAt = &now
	f.codes[recoveryID] = record
	return record, nil
}

func (f *fakeRecovery) CreateEmailVerificationToken(_ context.Context, userID uuid.UUID, tokenHash string, _, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = emailToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeRecovery) ConsumeEmailVerificationToken(_ context.Context, tokenHash string, verifiedAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[tokenHash]
	if !ok || !tok.expiresAt.After(verifiedAt) {
		return uuid.Nil, domain.ErrNotFound
	}
	delete(f.tokens, tokenHash)
	return tok.userID, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type fakeIdempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (f *fakeIdempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	cp := v
	return &cp, nil
}

func (f *fakeIdempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[key]; ok {
		return domain.ErrConflict
	}
	f.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.records[key]
	v.Status = "COMPLETED"
	v.ResponseCode = responseCode
	v.ResponseBody = responseBody
	v.UpdatedAt = at
	f.records[key] = v
	return nil
}

type fakeLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		lockUntil := now.Add(lockoutWindow)
		st.LockedUntil = &lockUntil
	}
	f.state[key] = st
	return st, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

// downLockouts simulates a lockout store outage. With readsOK it fails only
// on writes.
type downLockouts struct {
	readsOK bool
}

func (d *downLockouts) Get(context.Context, string) (ports.LockoutState, error) {
	if d.readsOK {
		return ports.LockoutState{}, nil
	}
	return ports.LockoutState{}, errors.New("lockout store unavailable")
}

func (d *downLockouts) RecordFailure(context.Context, string, time.Time, int, time.Duration) (ports.LockoutState, error) {
	return ports.LockoutState{}, errors.New("lockout store unavailable")
}

func (d *downLockouts) Clear(context.Context, string) error {
	return errors.New("lockout store unavailable")
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]bool
}

func (f *fakeRevocations) MarkRevoked(_ context.Context, jti uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, jti uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	tokens map[string]ports.AuthClaims
}

func (f *fakeSigner) Sign(claims ports.AuthClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.tokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseAndValidate(token string) (ports.AuthClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.tokens[token]
	if !ok {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

func (f *fakeSigner) PublicJWKs() ([]map[string]any, error) {
	return []map[string]any{{"kid": "test"}}, nil
}

type fakeSender struct {
	mu    sync.Mutex
	codes []string
}

func (f *fakeSender) Send(_ context.Context, _ string, _ string, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeSender) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) == 0 {
		return ""
	}
	return f.codes[len(f.codes)-1]
}
