package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"meams.org/internal/ids"
)

// InMemoryStore implements AccountStore with in-process concurrency safety.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // keyed by lower-cased username
}

// NewInMemoryStore creates an empty account store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[string]*Account)}
}

func (s *InMemoryStore) Create(ctx context.Context, acct *Account) error {
	username := strings.ToLower(strings.TrimSpace(acct.Username))
	email := strings.ToLower(strings.TrimSpace(acct.Email))
	if username == "" || email == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; ok {
		return ErrConflict
	}
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, email) {
			return ErrConflict
		}
	}

	if acct.ID == "" {
		acct.ID = ids.New()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	cp := *acct
	s.accounts[username] = &cp
	return nil
}

func (s *InMemoryStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *InMemoryStore) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.accounts[identifier]; ok {
		cp := *acct
		return &cp, nil
	}
	for _, acct := range s.accounts {
		if strings.EqualFold(acct.Email, identifier) {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) List(ctx context.Context) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		cp := *acct
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *InMemoryStore) Update(ctx context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(acct.Username))
	existing, ok := s.accounts[key]
	if !ok {
		return ErrNotFound
	}
	for _, other := range s.accounts {
		if other.Username != existing.Username && strings.EqualFold(other.Email, acct.Email) {
			return ErrConflict
		}
	}
	existing.Email = acct.Email
	existing.FullName = acct.FullName
	existing.Role = acct.Role
	existing.Active = acct.Active
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) UpdatePassword(ctx context.Context, username, passwordHash string, firstLogin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return ErrNotFound
	}
	acct.PasswordHash = passwordHash
	acct.FirstLogin = firstLogin
	acct.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) SetLastLogin(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	acct.LastLogin = &now
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(username))
	if _, ok := s.accounts[key]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, key)
	return nil
}

var _ AccountStore = (*InMemoryStore)(nil)
