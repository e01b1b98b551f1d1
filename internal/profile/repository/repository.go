package repository

import (
	"context"

	"pds-auth/internal/profile/domain"
)

// Repository defines persistence for profiles.
type Repository interface {
	// GetByAccountID returns the profile for the account, or nil if none exists.
	GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error)
	// Upsert creates or replaces the profile for p.AccountID.
	Upsert(ctx context.Context, p *domain.Profile) error
}
