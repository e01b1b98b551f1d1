package domain

import "time"

// Session is one outstanding refresh grant. Only the SHA-256 hash of the refresh token is kept.
// ExpiresAt is always CreatedAt plus the configured refresh lifetime.
type Session struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ActiveAt reports whether the session can still be used at now.
func (s *Session) ActiveAt(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}
