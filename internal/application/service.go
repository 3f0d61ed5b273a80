package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
	"github.com/andinopay/auth-service/internal/ports"
)

type Service struct {
	cfg         Config
	users       ports.UserRepository
	credentials ports.CredentialRepository
	devices     ports.DeviceRepository
	sessions    ports.SessionRepository
	attempts    ports.AuthAttemptRepository
	recovery    ports.RecoveryRepository
	outbox      ports.OutboxRepository
	idempotency ports.IdempotencyRepository
	lockouts    ports.LockoutStore
	revocations ports.SessionRevocationStore
	hasher      ports.PasswordHasher
	tokenSigner ports.TokenSigner
	sender      ports.CodeSender
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Users       ports.UserRepository
	Credentials ports.CredentialRepository
	Devices     ports.DeviceRepository
	Sessions    ports.SessionRepository
	Attempts    ports.AuthAttemptRepository
	Recovery    ports.RecoveryRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
	Lockouts    ports.LockoutStore
	Revocations ports.SessionRevocationStore
	Hasher      ports.PasswordHasher
	TokenSigner ports.TokenSigner
	Sender      ports.CodeSender
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:         deps.Config,
		users:       deps.Users,
		credentials: deps.Credentials,
		devices:     deps.Devices,
		sessions:    deps.Sessions,
		attempts:    deps.Attempts,
		recovery:    deps.Recovery,
		outbox:      deps.Outbox,
		idempotency: deps.Idempotency,
		lockouts:    deps.Lockouts,
		revocations: deps.Revocations,
		hasher:      deps.Hasher,
		tokenSigner: deps.TokenSigner,
		sender:      deps.Sender,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// resolveIdentifier looks a user up by email when the identifier contains an
// "@", otherwise by canonical RUT. Malformed identifiers resolve to
// ErrNotFound on purpose: the caller cannot distinguish "badly formed" from
// "absent", which keeps the enumeration surface uniform.
func (s *Service) resolveIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return domain.User{}, domain.ErrNotFound
	}
	if strings.Contains(trimmed, "@") {
		email, err := normalizeEmail(trimmed)
		if err != nil {
			return domain.User{}, domain.ErrNotFound
		}
		return s.users.GetByEmail(ctx, email)
	}
	rut, err := domain.NormalizeRUT(trimmed)
	if err != nil {
		return domain.User{}, domain.ErrNotFound
	}
	return s.users.GetByRUT(ctx, rut)
}

// recordAttempt appends one audit row. A failed write is an infrastructure
// fault: login must fail loudly rather than succeed without an audit trail.
func (s *Service) recordAttempt(ctx context.Context, attempt domain.AuthAttempt) error {
	if err := s.attempts.Insert(ctx, attempt); err != nil {
		return fmt.Errorf("record auth attempt: %w", err)
	}
	return nil
}

// failLogin records the single audit row for a failing branch and returns the
// tagged auth error. Audit persistence failures take precedence over the auth
// outcome so the one-attempt-per-call invariant is never silently broken.
func (s *Service) failLogin(ctx context.Context, userID *uuid.UUID, req LoginRequest, authErr *domain.AuthError) error {
	if err := s.recordAttempt(ctx, domain.AuthAttempt{
		UserID:      userID,
		Fingerprint: strings.TrimSpace(req.DeviceFingerprint),
		Success:     false,
		Reason:      authErr.Reason,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		OccurredAt:  s.nowFn(),
	}); err != nil {
		return err
	}
	return authErr
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload map[string]any) {
	raw, _ := json.Marshal(payload)
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   s.nowFn(),
	})
}

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashRequest computes a deterministic request fingerprint for idempotency conflict detection.
func hashRequest(req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// hashCode stores one-way code/token fingerprints instead of raw secrets.
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a cryptographically random hex token.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

// randomDigits returns a uniformly random zero-padded numeric code.
func randomDigits(size int) string {
	if size <= 0 {
		size = 6
	}
	bound := big.NewInt(10)
	bound.Exp(bound, big.NewInt(int64(size)), nil)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		panic(fmt.Sprintf("read random source: %v", err))
	}
	return fmt.Sprintf("%0*d", size, n)
}
