package repository

import (
	"context"
	"errors"
	"time"

	"pds-auth/internal/session/domain"
)

var (
	// ErrSessionNotFound is returned by Rotate when the old session is absent or expired,
	// including when a concurrent rotation already consumed it.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenCollision is returned when a refresh token hash is already stored. Internal error only.
	ErrTokenCollision = errors.New("refresh token hash collision")
)

// Repository defines persistence for refresh sessions. Every read treats rows whose expiry has
// passed as absent.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// FindByTokenHash returns the session with this hash that is still active at now, or nil.
	FindByTokenHash(ctx context.Context, hash string, now time.Time) (*domain.Session, error)
	// DeleteByTokenHash removes the session if present. A missing row is not an error.
	DeleteByTokenHash(ctx context.Context, hash string) error
	// DeleteAllByAccount removes every session of the account and returns how many were removed.
	DeleteAllByAccount(ctx context.Context, accountID string) (int64, error)
	// Rotate atomically deletes the session identified by oldHash and inserts next. At most one
	// concurrent caller presenting the same oldHash succeeds; the others get ErrSessionNotFound.
	// The old session stays deleted even when inserting next fails.
	Rotate(ctx context.Context, oldHash string, next *domain.Session, now time.Time) error
	// DeleteExpired purges sessions whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
