package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer     = "meams"
	defaultTTL = 30 * time.Minute
)

// Claims is the signed token envelope: {sub, role, iat, exp}.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service authenticates principals and issues, verifies and refreshes
// short-lived bearer tokens. The signing secret lives here and is never
// exposed or logged.
type Service struct {
	store   AccountStore
	builtin []BuiltinUser
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithBuiltinUsers installs the process-constant admin credential set.
// Builtin users are always active, hold the admin role, and shadow the
// persistent store.
func WithBuiltinUsers(users []BuiltinUser) ServiceOption {
	return func(s *Service) error {
		for _, u := range users {
			if strings.TrimSpace(u.Username) == "" {
				continue
			}
			s.builtin = append(s.builtin, u)
		}
		return nil
	}
}

// WithTokenTTL overrides the default 30 minute token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.ttl = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the identity service. The secret is required.
func NewService(store AccountStore, secret string, opts ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	svc := &Service{
		store:  store,
		secret: []byte(secret),
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration { return s.ttl }

// Authenticate resolves an identifier (username or email) and password to a
// principal. The builtin set is checked first with a verbatim comparison;
// persistent accounts use bcrypt. Inactive accounts fail with
// ErrAccountDisabled, everything else with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (Principal, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Principal{}, ErrInvalidCredentials
	}

	for _, u := range s.builtin {
		if strings.EqualFold(u.Username, identifier) {
			if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
				return Principal{}, ErrInvalidCredentials
			}
			return Principal{Username: u.Username, Role: RoleAdmin, Builtin: true}, nil
		}
	}

	acct, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(acct.PasswordHash, password); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	if !acct.Active {
		return Principal{}, ErrAccountDisabled
	}
	_ = s.store.SetLastLogin(ctx, acct.Username)
	return Principal{Username: acct.Username, Role: acct.Role}, nil
}

// Issue signs a token for the principal with a fresh expiry.
func (s *Service) Issue(p Principal) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, shape and expiry. Every failure mode collapses to
// ErrInvalidCredentials so callers cannot leak why a token was rejected.
func (s *Service) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidCredentials
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidCredentials
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// Lookup resolves a username to its current principal, builtin set first.
// Inactive persistent accounts fail with ErrAccountDisabled.
func (s *Service) Lookup(ctx context.Context, username string) (Principal, error) {
	for _, u := range s.builtin {
		if strings.EqualFold(u.Username, username) {
			return Principal{Username: u.Username, Role: RoleAdmin, Builtin: true}, nil
		}
	}
	acct, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return Principal{}, err
	}
	if !acct.Active {
		return Principal{}, ErrAccountDisabled
	}
	return Principal{Username: acct.Username, Role: acct.Role}, nil
}

// Refresh verifies the presented token, reconfirms the principal still
// exists and is active, and issues a replacement with a fresh expiry.
func (s *Service) Refresh(ctx context.Context, token string) (string, time.Time, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", time.Time{}, err
	}
	principal, err := s.Lookup(ctx, claims.Subject)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.Issue(principal)
}

// ChangePassword verifies the current password and writes a new hash,
// clearing the first-login flag.
func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	if strings.TrimSpace(next) == "" {
		return ErrInvalidInput
	}
	acct, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := VerifyPassword(acct.PasswordHash, current); err != nil {
		return ErrWrongPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, acct.Username, hash, false)
}
