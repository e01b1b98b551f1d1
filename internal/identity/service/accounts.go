package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// ChangePassword verifies current, stores the hash of next and deletes every session of the account.
// Returns the number of sessions revoked.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, current, next string) (int64, error) {
	ctx, span := tracer.Start(ctx, "identity.ChangePassword")
	defer span.End()

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, spanError(span, fmt.Errorf("get account: %w", err))
	}
	if acc == nil || !acc.Active {
		return 0, ErrUnauthorized
	}
	if err := s.hasher.Compare(acc.PasswordHash, []byte(current)); err != nil {
		return 0, ErrInvalidCredentials
	}
	if err := validatePassword(next); err != nil {
		return 0, err
	}
	hashed, err := s.hasher.Hash([]byte(next))
	if err != nil {
		return 0, spanError(span, fmt.Errorf("hash password: %w", err))
	}
	if err := s.accounts.UpdatePasswordHash(ctx, accountID, hashed, s.now().UTC()); err != nil {
		return 0, spanError(span, fmt.Errorf("update password: %w", err))
	}
	return s.LogoutAll(ctx, accountID)
}

// SetActive activates or deactivates an account. Sessions are left in place: refresh and principal
// resolution check the active flag on every call.
func (s *AuthService) SetActive(ctx context.Context, accountID string, active bool) (*User, error) {
	ctx, span := tracer.Start(ctx, "identity.SetActive")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID), attribute.Bool("account.active", active))

	acc, err := s.accounts.SetActive(ctx, accountID, active, s.now().UTC())
	if err != nil {
		return nil, spanError(span, fmt.Errorf("set active: %w", err))
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	u := toUser(acc, s.lookupProfile(ctx, acc.ID))
	return &u, nil
}
