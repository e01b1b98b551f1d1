package service

import (
	"context"
	"fmt"

	"pds-auth/internal/security"
)

// Logout deletes the session for refreshToken. An empty token or an unknown session is success.
// The token's signature is not checked; only its hash is used to find the row.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenHash(ctx, security.HashRefreshToken(refreshToken)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// LogoutAll deletes every session of the account and returns how many were removed.
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "identity.LogoutAll")
	defer span.End()

	n, err := s.sessions.DeleteAllByAccount(ctx, accountID)
	if err != nil {
		return 0, spanError(span, fmt.Errorf("delete sessions: %w", err))
	}
	return n, nil
}
