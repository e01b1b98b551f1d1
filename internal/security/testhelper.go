package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-do-not-use"
	testRefreshSecret = "test-refresh-secret-do-not-use"
)

// NewTestTokenIssuer returns a TokenIssuer with fixed test secrets, a 15m access TTL and a 7d refresh TTL.
// For unit tests only. Callers must not use in production.
func NewTestTokenIssuer(opts ...Option) *TokenIssuer {
	p, err := NewTokenIssuer([]byte(testAccessSecret), []byte(testRefreshSecret), "test-issuer", 15*time.Minute, 7*24*time.Hour, opts...)
	if err != nil {
		panic(err)
	}
	return p
}
