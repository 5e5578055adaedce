package auth

import "context"

// AccountStore describes persistence operations required by the identity
// service. Implementations: InMemoryStore (tests, DSN-less runs) and PGStore.
type AccountStore interface {
	Create(ctx context.Context, acct *Account) error
	FindByUsername(ctx context.Context, username string) (*Account, error)
	// FindByIdentifier resolves either a username or an email address; the
	// scan-access challenge accepts both.
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	Update(ctx context.Context, acct *Account) error
	UpdatePassword(ctx context.Context, username, passwordHash string, firstLogin bool) error
	SetLastLogin(ctx context.Context, username string) error
	Delete(ctx context.Context, username string) error
}
