package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func seedAccount(t *testing.T, store *InMemoryStore, username, password string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	acct := &Account{
		Username:     username,
		Email:        username + "@example.org",
		Role:         RoleStaff,
		Active:       active,
		PasswordHash: string(hash),
		FirstLogin:   true,
	}
	if err := store.Create(context.Background(), acct); err != nil {
		t.Fatalf("create account: %v", err)
	}
}

func newTestService(t *testing.T, store *InMemoryStore, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(store, "test-secret", opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService(t, NewInMemoryStore())

	token, exp, err := svc.Issue(Principal{Username: "tech1", Role: RoleStaff})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "tech1" || claims.Role != RoleStaff {
		t.Fatalf("unexpected claims: %s/%s", claims.Subject, claims.Role)
	}
}

func TestVerifyRejectsTamperedAndExpired(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, NewInMemoryStore(), WithClock(func() time.Time { return now }))

	token, _, err := svc.Issue(Principal{Username: "tech1", Role: RoleStaff})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := map[string]func() (*Claims, error){
		"garbage": func() (*Claims, error) {
			return svc.Verify("not.a.token")
		},
		"tampered": func() (*Claims, error) {
			return svc.Verify(token[:len(token)-4] + "AAAA")
		},
		"expired": func() (*Claims, error) {
			now = now.Add(31 * time.Minute)
			defer func() { now = time.Now() }()
			return svc.Verify(token)
		},
	}
	for name, fn := range cases {
		if _, err := fn(); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
	}
}

func TestRefreshIssuesFreshExpiry(t *testing.T) {
	store := NewInMemoryStore()
	seedAccount(t, store, "tech1", "p@ss", true)

	now := time.Now()
	svc := newTestService(t, store, WithClock(func() time.Time { return now }))

	token, origExp, err := svc.Issue(Principal{Username: "tech1", Role: RoleStaff})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = now.Add(10 * time.Minute)
	refreshed, newExp, err := svc.Refresh(context.Background(), token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !newExp.After(origExp) {
		t.Fatalf("expected fresh expiry: %v <= %v", newExp, origExp)
	}
	claims, err := svc.Verify(refreshed)
	if err != nil {
		t.Fatalf("Verify refreshed: %v", err)
	}
	if claims.Subject != "tech1" || claims.Role != RoleStaff {
		t.Fatalf("refresh changed identity: %s/%s", claims.Subject, claims.Role)
	}
}

func TestRefreshDeactivatedAndDeleted(t *testing.T) {
	store := NewInMemoryStore()
	seedAccount(t, store, "u1", "p@ss", true)
	svc := newTestService(t, store)

	token, _, err := svc.Issue(Principal{Username: "u1", Role: RoleStaff})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	acct, err := store.FindByUsername(context.Background(), "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	acct.Active = false
	if err := store.Update(context.Background(), acct); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), token); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}

	if err := store.Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthenticateBuiltinShadowsStore(t *testing.T) {
	store := NewInMemoryStore()
	seedAccount(t, store, "root", "store-pass", true)

	svc := newTestService(t, store, WithBuiltinUsers([]BuiltinUser{
		{Username: "root", Password: "builtin-pass"},
	}))

	p, err := svc.Authenticate(context.Background(), "root", "builtin-pass")
	if err != nil {
		t.Fatalf("builtin authenticate: %v", err)
	}
	if !p.Builtin || p.Role != RoleAdmin {
		t.Fatalf("expected builtin admin, got %+v", p)
	}

	// The persistent password does not work once shadowed.
	if _, err := svc.Authenticate(context.Background(), "root", "store-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticatePersistentAccounts(t *testing.T) {
	store := NewInMemoryStore()
	seedAccount(t, store, "tech1", "p@ss", true)
	seedAccount(t, store, "inactive", "p@ss", false)
	svc := newTestService(t, store)

	p, err := svc.Authenticate(context.Background(), "tech1", "p@ss")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.Username != "tech1" || p.Role != RoleStaff || p.Builtin {
		t.Fatalf("unexpected principal: %+v", p)
	}

	// Email works as identifier too.
	if _, err := svc.Authenticate(context.Background(), "tech1@example.org", "p@ss"); err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "tech1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "inactive", "p@ss"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := NewInMemoryStore()
	seedAccount(t, store, "tech1", "old-pass", true)
	svc := newTestService(t, store)

	if err := svc.ChangePassword(context.Background(), "tech1", "nope", "new-pass"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), "tech1", "old-pass", "new-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	acct, err := store.FindByUsername(context.Background(), "tech1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if acct.FirstLogin {
		t.Fatal("expected first-login flag cleared")
	}
	if err := VerifyPassword(acct.PasswordHash, "new-pass"); err != nil {
		t.Fatalf("new password not accepted: %v", err)
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(12)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if len(pw) != 12 {
		t.Fatalf("unexpected length: %d", len(pw))
	}
	for _, c := range pw {
		if !strings.ContainsRune(passwordAlphabet, c) {
			t.Fatalf("character outside alphabet: %q", c)
		}
	}
}
