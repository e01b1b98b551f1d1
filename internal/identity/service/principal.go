package service

import (
	"context"
	"fmt"

	accountdomain "pds-auth/internal/account/domain"
)

// ResolvePrincipal verifies an access token and returns the principal built from the current
// account row. Role and active flag come from the row, not from the token, so deactivation takes
// effect on the next request.
func (s *AuthService) ResolvePrincipal(ctx context.Context, accessToken string) (accountdomain.Principal, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return accountdomain.Principal{}, ErrUnauthorized
	}
	acc, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		return accountdomain.Principal{}, fmt.Errorf("get account: %w", err)
	}
	if acc == nil || !acc.Active {
		return accountdomain.Principal{}, ErrUnauthorized
	}
	return acc.Principal(), nil
}

// Me returns the account summary for the principal, decorated with profile names.
func (s *AuthService) Me(ctx context.Context, p accountdomain.Principal) (*User, error) {
	acc, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc == nil || !acc.Active {
		return nil, ErrUnauthorized
	}
	u := toUser(acc, s.lookupProfile(ctx, acc.ID))
	return &u, nil
}
