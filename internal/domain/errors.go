package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict signals a uniqueness or ownership collision, e.g. a device
	// fingerprint already bound to a different user.
	ErrConflict = errors.New("conflict")
	// ErrNoActiveSession is the idempotent logout outcome: the token resolved
	// to no ACTIVE session, and nothing was mutated.
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrSessionExpired  = errors.New("session expired")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrRecoveryExpired, ErrRecoveryConsumed, and ErrRecoveryMismatch are
	// distinguishable to internal callers; the HTTP boundary collapses all
	// three into a generic "invalid or expired code" response.
	ErrRecoveryExpired  = errors.New("recovery code expired")
	ErrRecoveryConsumed = errors.New("recovery code already consumed")
	ErrRecoveryMismatch = errors.New("recovery code mismatch")
)

// AuthReason is the login outcome taxonomy, recorded verbatim on every
// AuthAttempt and carried to the caller on failure.
type AuthReason string

const (
	ReasonOK                 AuthReason = "OK"
	ReasonUserNotFound       AuthReason = "USER_NOT_FOUND"
	ReasonBadCredentials     AuthReason = "BAD_CREDENTIALS"
	ReasonDeviceRequired     AuthReason = "DEVICE_REQUIRED"
	ReasonDeviceUnauthorized AuthReason = "DEVICE_UNAUTHORIZED"
	ReasonAccountBlocked     AuthReason = "ACCOUNT_BLOCKED"
	ReasonEmailNotVerified   AuthReason = "EMAIL_NOT_VERIFIED"
	ReasonPasswordReset      AuthReason = "PASSWORD_RESET"
)

// FaultClass is the HTTP-agnostic status class attached to auth failures.
type FaultClass string

const (
	ClassNotFound           FaultClass = "NOT_FOUND"
	ClassInvalidCredentials FaultClass = "INVALID_CREDENTIALS"
	ClassPolicyViolation    FaultClass = "POLICY_VIOLATION"
	ClassPrecondition       FaultClass = "PRECONDITION"
)

// AuthError is the tagged failure value of the login flow. It replaces
// exception-style control flow: callers branch on Reason via errors.As and
// read RemainingAttempts when the reason is BAD_CREDENTIALS.
type AuthError struct {
	Reason            AuthReason
	RemainingAttempts *int
}

func (e *AuthError) Error() string {
	if e.RemainingAttempts != nil {
		return fmt.Sprintf("authentication failed: %s (%d attempts remaining)", e.Reason, *e.RemainingAttempts)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Class maps the reason onto the transport-agnostic fault taxonomy.
func (e *AuthError) Class() FaultClass {
	switch e.Reason {
	case ReasonUserNotFound:
		return ClassNotFound
	case ReasonBadCredentials:
		return ClassInvalidCredentials
	case ReasonDeviceRequired:
		return ClassPrecondition
	default:
		return ClassPolicyViolation
	}
}

// NewAuthError builds a failure for the given reason.
func NewAuthError(reason AuthReason) *AuthError {
	return &AuthError{Reason: reason}
}

// NewBadCredentialsError carries the remaining-attempt budget alongside the reason.
func NewBadCredentialsError(remaining int) *AuthError {
	return &AuthError{Reason: ReasonBadCredentials, RemainingAttempts: &remaining}
}
