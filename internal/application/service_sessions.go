package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andinopay/auth-service/internal/domain"
	"github.com/andinopay/auth-service/internal/ports"
)

// ValidateToken verifies a bearer token cryptographically and then against the
// session store, so a revoked or lazily-expired session is rejected even while
// the token's own expiry is still in the future.
func (s *Service) ValidateToken(ctx context.Context, rawToken string) (ports.AuthClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(rawToken)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}

	if revoked, rerr := s.revocations.IsRevoked(ctx, claims.JTI); rerr == nil && revoked {
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	}

	session, err := s.sessions.GetByJTI(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ports.AuthClaims{}, domain.ErrUnauthorized
		}
		return ports.AuthClaims{}, fmt.Errorf("load session: %w", err)
	}

	switch session.Status {
	case domain.SessionRevoked:
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	case domain.SessionExpired:
		return ports.AuthClaims{}, domain.ErrSessionExpired
	}

	now := s.nowFn()
	if !session.ExpiresAt.After(now) {
		// Lazy expiry: flip the row on first observation past the deadline.
		// A concurrent revoke winning the CAS is fine, the session is
		// terminal either way.
		_ = s.sessions.MarkExpired(ctx, session.JTI, now)
		return ports.AuthClaims{}, domain.ErrSessionExpired
	}

	if session.UserID != claims.UserID {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

// ListSessions returns the caller's sessions, most recent first, flagging the
// one backing the presented token.
func (s *Service) ListSessions(ctx context.Context, userID, currentJTI uuid.UUID) ([]SessionItem, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, 100, 0)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	items := make([]SessionItem, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, toSessionItem(sess, currentJTI))
	}
	return items, nil
}

// RevokeAllSessions revokes every ACTIVE session for the user, including the
// one the request rode in on.
func (s *Service) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := s.nowFn()
	revoked, err := s.sessions.RevokeAllByUser(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	if revoked > 0 {
		s.enqueueEvent(ctx, "auth.sessions.revoked_all", userID.String(), map[string]any{
			"user_id":     userID,
			"revoked":     revoked,
			"occurred_at": now,
		})
	}
	return revoked, nil
}

// PublicJWKs exposes the signer's verification keys for JWKS consumers.
func (s *Service) PublicJWKs() ([]map[string]any, error) {
	return s.tokenSigner.PublicJWKs()
}

// ListLoginHistory pages through the caller's auth attempts, newest first.
func (s *Service) ListLoginHistory(ctx context.Context, userID uuid.UUID, q LoginHistoryQuery) ([]LoginHistoryItem, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	var since *time.Time
	if q.Days > 0 {
		t := s.nowFn().AddDate(0, 0, -q.Days)
		since = &t
	}

	attempts, err := s.attempts.ListByUser(ctx, userID, limit, (page-1)*limit, since)
	if err != nil {
		return nil, fmt.Errorf("list login history: %w", err)
	}

	items := make([]LoginHistoryItem, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, LoginHistoryItem{
			ID:          a.ID,
			Timestamp:   a.OccurredAt,
			Success:     a.Success,
			Reason:      string(a.Reason),
			Fingerprint: a.Fingerprint,
			IPAddress:   a.IPAddress,
		})
	}
	return items, nil
}
