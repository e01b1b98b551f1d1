package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, of the wrong kind or signed with the wrong secret.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakSecrets is returned when a signing secret is empty or both secrets are equal.
	ErrWeakSecrets = errors.New("access and refresh secrets must be non-empty and distinct")
)

// Token kinds carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Subject is the identity a token pair is minted for.
type Subject struct {
	ID    string
	Email string
	Role  string
}

// Claims is the claim shape shared by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"typ"`
}

// Pair is a freshly minted access/refresh token pair. IssuedAt is the instant both tokens were
// signed; session rows use it as their creation time so expiry = IssuedAt + refresh TTL.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	IssuedAt         time.Time
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens use separate secrets so a
// leaked access secret cannot mint refresh tokens and vice versa.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// Option configures a TokenIssuer.
type Option func(*TokenIssuer)

// WithClock overrides the wall clock used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(p *TokenIssuer) { p.now = now }
}

// NewTokenIssuer returns a TokenIssuer. Returns ErrWeakSecrets when either secret is empty or they are equal.
func NewTokenIssuer(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration, opts ...Option) (*TokenIssuer, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 || string(accessSecret) == string(refreshSecret) {
		return nil, ErrWeakSecrets
	}
	p := &TokenIssuer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenIssuer) RefreshTTL() time.Duration { return p.refreshTTL }

// IssuePair mints an access token and a refresh token for sub, both stamped with the same issued-at.
func (p *TokenIssuer) IssuePair(sub Subject) (Pair, error) {
	if sub.ID == "" {
		return Pair{}, ErrInvalidToken
	}
	// JWT timestamps have second precision; truncate so the stored session expiry matches exp exactly.
	now := p.now().UTC().Truncate(time.Second)
	pair := Pair{
		IssuedAt:         now,
		AccessExpiresAt:  now.Add(p.accessTTL),
		RefreshExpiresAt: now.Add(p.refreshTTL),
	}
	var err error
	pair.AccessToken, err = p.sign(sub, TokenTypeAccess, now, pair.AccessExpiresAt, p.accessSecret)
	if err != nil {
		return Pair{}, err
	}
	pair.RefreshToken, err = p.sign(sub, TokenTypeRefresh, now, pair.RefreshExpiresAt, p.refreshSecret)
	if err != nil {
		return Pair{}, err
	}
	return pair, nil
}

func (p *TokenIssuer) sign(sub Subject, typ string, now, exp time.Time, secret []byte) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: sub.Email,
		Role:  sub.Role,
		Type:  typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccess verifies an access token (signature, exp, iss, typ) and returns its claims.
func (p *TokenIssuer) ValidateAccess(tokenString string) (*Claims, error) {
	return p.validate(tokenString, TokenTypeAccess, p.accessSecret)
}

// ValidateRefresh verifies a refresh token (signature, exp, iss, typ) and returns its claims.
func (p *TokenIssuer) ValidateRefresh(tokenString string) (*Claims, error) {
	return p.validate(tokenString, TokenTypeRefresh, p.refreshSecret)
}

func (p *TokenIssuer) validate(tokenString, typ string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
