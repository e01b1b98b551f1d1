package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	accountdomain "pds-auth/internal/account/domain"
	accountrepo "pds-auth/internal/account/repository"
	"pds-auth/internal/logging"
	profiledomain "pds-auth/internal/profile/domain"
	"pds-auth/internal/security"
	sessiondomain "pds-auth/internal/session/domain"
)

var tracer = otel.Tracer("pds-auth/identity")

// User is the account summary returned to clients.
type User struct {
	ID        string
	Email     string
	Role      accountdomain.Role
	Active    bool
	FirstName string
	LastName  string
}

// AuthResult holds the outcome of Login and Refresh.
type AuthResult struct {
	User             User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RegisterInput holds the fields accepted at registration. Names are optional.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AccountRepo is the minimal account repository needed by the auth service.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) (*accountdomain.Account, error)
}

// ProfileRepo is the minimal profile repository needed by the auth service.
type ProfileRepo interface {
	GetByAccountID(ctx context.Context, accountID string) (*profiledomain.Profile, error)
	Upsert(ctx context.Context, p *profiledomain.Profile) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	FindByTokenHash(ctx context.Context, hash string, now time.Time) (*sessiondomain.Session, error)
	DeleteByTokenHash(ctx context.Context, hash string) error
	DeleteAllByAccount(ctx context.Context, accountID string) (int64, error)
	Rotate(ctx context.Context, oldHash string, next *sessiondomain.Session, now time.Time) error
}

// AuthService implements credential verification, token issuance, refresh rotation, revocation
// and principal resolution.
type AuthService struct {
	accounts AccountRepo
	profiles ProfileRepo
	sessions SessionRepo
	hasher   *security.Hasher
	tokens   *security.TokenIssuer
	now      func() time.Time
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock overrides the clock used for session expiry checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService returns an AuthService with the given dependencies. profiles may be nil, in which
// case names are never returned.
func NewAuthService(
	accounts AccountRepo,
	profiles ProfileRepo,
	sessions SessionRepo,
	hasher *security.Hasher,
	tokens *security.TokenIssuer,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		accounts: accounts,
		profiles: profiles,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates an active unprivileged account and its profile. It does not log the caller in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*User, error) {
	ctx, span := tracer.Start(ctx, "identity.Register")
	defer span.End()

	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("get account by email: %w", err))
	}
	if existing != nil {
		return nil, ErrEmailInUse
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, spanError(span, fmt.Errorf("hash password: %w", err))
	}
	now := s.now().UTC()
	acc := &accountdomain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		Role:         accountdomain.RoleUnprivileged,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := acc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, accountrepo.ErrDuplicateEmail) {
			return nil, ErrEmailInUse
		}
		return nil, spanError(span, fmt.Errorf("create account: %w", err))
	}
	user := toUser(acc, nil)
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if s.profiles != nil && (first != "" || last != "") {
		p := &profiledomain.Profile{AccountID: acc.ID, FirstName: first, LastName: last, UpdatedAt: now}
		if err := s.profiles.Upsert(ctx, p); err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "register: profile not saved", "account_id", acc.ID, "error", err)
		} else {
			user.FirstName, user.LastName = first, last
		}
	}
	span.SetAttributes(attribute.String("account.id", acc.ID))
	return &user, nil
}

// issueSession mints a token pair for acc and returns the pair with the session row to persist.
// The session expiry equals the refresh token expiry, which is IssuedAt plus the refresh lifetime.
func (s *AuthService) issueSession(acc *accountdomain.Account) (security.Pair, *sessiondomain.Session, error) {
	pair, err := s.tokens.IssuePair(security.Subject{ID: acc.ID, Email: acc.Email, Role: string(acc.Role)})
	if err != nil {
		return security.Pair{}, nil, fmt.Errorf("issue tokens: %w", err)
	}
	sess := &sessiondomain.Session{
		ID:        uuid.New().String(),
		AccountID: acc.ID,
		TokenHash: security.HashRefreshToken(pair.RefreshToken),
		CreatedAt: pair.IssuedAt,
		ExpiresAt: pair.RefreshExpiresAt,
	}
	return pair, sess, nil
}

// result decorates pair with the account summary. Profile lookup failures degrade to empty names.
func (s *AuthService) result(ctx context.Context, acc *accountdomain.Account, pair security.Pair) *AuthResult {
	return &AuthResult{
		User:             toUser(acc, s.lookupProfile(ctx, acc.ID)),
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func (s *AuthService) lookupProfile(ctx context.Context, accountID string) *profiledomain.Profile {
	if s.profiles == nil {
		return nil
	}
	p, err := s.profiles.GetByAccountID(ctx, accountID)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "profile lookup failed; returning without names", "account_id", accountID, "error", err)
		return nil
	}
	return p
}

func toUser(acc *accountdomain.Account, p *profiledomain.Profile) User {
	u := User{ID: acc.ID, Email: acc.Email, Role: acc.Role, Active: acc.Active}
	if p != nil {
		u.FirstName, u.LastName = p.FirstName, p.LastName
	}
	return u
}

// spanError records err on span and returns it unchanged.
func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
