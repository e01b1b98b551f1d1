package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSubject = Subject{ID: "acc-1", Email: "user@example.com", Role: "employee"}

func TestTokenIssuer_IssuePair(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	p := NewTestTokenIssuer(WithClock(func() time.Time { return now }))

	pair, err := p.IssuePair(testSubject)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, now.Truncate(time.Second), pair.IssuedAt)
	assert.Equal(t, pair.IssuedAt.Add(15*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, pair.IssuedAt.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access, err := p.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", access.Subject)
	assert.Equal(t, "user@example.com", access.Email)
	assert.Equal(t, "employee", access.Role)
	assert.Equal(t, TokenTypeAccess, access.Type)
	assert.NotEmpty(t, access.ID)

	refresh, err := p.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", refresh.Subject)
	assert.Equal(t, TokenTypeRefresh, refresh.Type)
	assert.True(t, refresh.ExpiresAt.Time.Equal(pair.RefreshExpiresAt))
}

func TestTokenIssuer_PairsInSameSecondDiffer(t *testing.T) {
	now := time.Now()
	p := NewTestTokenIssuer(WithClock(func() time.Time { return now }))
	a, err := p.IssuePair(testSubject)
	require.NoError(t, err)
	b, err := p.IssuePair(testSubject)
	require.NoError(t, err)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
	assert.NotEqual(t, a.AccessToken, b.AccessToken)
}

func TestTokenIssuer_KindsAreNotInterchangeable(t *testing.T) {
	p := NewTestTokenIssuer()
	pair, err := p.IssuePair(testSubject)
	require.NoError(t, err)

	_, err = p.ValidateAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.ValidateRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	p := NewTestTokenIssuer(WithClock(func() time.Time { return clock() }))
	pair, err := p.IssuePair(testSubject)
	require.NoError(t, err)

	clock = func() time.Time { return now.Add(16 * time.Minute) }
	_, err = p.ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.ValidateRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	clock = func() time.Time { return now.Add(8 * 24 * time.Hour) }
	_, err = p.ValidateRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_WrongSecretOrIssuer(t *testing.T) {
	p := NewTestTokenIssuer()
	pair, err := p.IssuePair(testSubject)
	require.NoError(t, err)

	other, err := NewTokenIssuer([]byte("other-access"), []byte("other-refresh"), "test-issuer", time.Minute, time.Hour)
	require.NoError(t, err)
	_, err = other.ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = other.ValidateRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewTokenIssuer([]byte(testAccessSecret), []byte(testRefreshSecret), "someone-else", time.Minute, time.Hour)
	require.NoError(t, err)
	_, err = foreign.ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsNoneAndOtherAlgs(t *testing.T) {
	p := NewTestTokenIssuer()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenTypeAccess,
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = p.ValidateAccess(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)
	_, err = p.ValidateAccess(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_InvalidInput(t *testing.T) {
	p := NewTestTokenIssuer()
	_, err := p.ValidateAccess("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.ValidateRefresh("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.IssuePair(Subject{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuer_Secrets(t *testing.T) {
	_, err := NewTokenIssuer([]byte("same"), []byte("same"), "iss", time.Minute, time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecrets)
	_, err = NewTokenIssuer(nil, []byte("r"), "iss", time.Minute, time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecrets)
}
