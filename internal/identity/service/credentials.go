package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	accountdomain "pds-auth/internal/account/domain"
)

// VerifyCredentials checks email and password against the stored account.
// An unknown email and a wrong password both return ErrInvalidCredentials, and an unknown email still
// pays for a bcrypt comparison. The active flag is checked only after the password matched.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*accountdomain.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	if acc == nil {
		s.hasher.CompareDummy([]byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(acc.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !acc.Active {
		return nil, ErrInactiveAccount
	}
	return acc, nil
}

// Login verifies credentials, issues a token pair and persists exactly one new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "identity.Login")
	defer span.End()

	acc, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	pair, sess, err := s.issueSession(acc)
	if err != nil {
		return nil, spanError(span, err)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, spanError(span, fmt.Errorf("create session: %w", err))
	}
	span.SetAttributes(attribute.String("account.id", acc.ID))
	return s.result(ctx, acc, pair), nil
}
