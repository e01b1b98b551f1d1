package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"pds-auth/internal/security"
	sessionrepo "pds-auth/internal/session/repository"
)

// Refresh exchanges a refresh token for a new pair and rotates the session.
//
// The signed expiry and the stored session expiry are checked independently. Rotation deletes the
// old session and inserts the new one atomically; when two callers race with the same token only
// one wins and the other gets ErrInvalidRefreshToken. Once rotation starts the presented token is
// never valid again, even if inserting the new session fails. Earlier failures (bad signature,
// inactive account, lookup errors) leave the session as it was.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "identity.Refresh")
	defer span.End()

	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	now := s.now().UTC()
	oldHash := security.HashRefreshToken(refreshToken)
	sess, err := s.sessions.FindByTokenHash(ctx, oldHash, now)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("find session: %w", err))
	}
	if sess == nil || sess.AccountID != claims.Subject {
		return nil, ErrInvalidRefreshToken
	}
	acc, err := s.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("get account: %w", err))
	}
	if acc == nil {
		return nil, ErrInvalidRefreshToken
	}
	if !acc.Active {
		return nil, ErrInactiveAccount
	}
	pair, next, err := s.issueSession(acc)
	if err != nil {
		return nil, spanError(span, err)
	}
	if err := s.sessions.Rotate(ctx, oldHash, next, now); err != nil {
		if errors.Is(err, sessionrepo.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, spanError(span, fmt.Errorf("rotate session: %w", err))
	}
	span.SetAttributes(attribute.String("account.id", acc.ID))
	return s.result(ctx, acc, pair), nil
}
