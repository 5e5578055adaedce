package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"meams.org/internal/ids"
)

var _ AccountStore = (*PGStore)(nil)

// PGStore implements AccountStore using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const accountColumns = `id, username, email, full_name, role, active, password_hash, first_login, last_login, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, acct *Account) error {
	if acct.ID == "" {
		acct.ID = ids.New()
	}
	username := strings.ToLower(strings.TrimSpace(acct.Username))
	email := strings.ToLower(strings.TrimSpace(acct.Email))
	if username == "" || email == "" {
		return ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		insert into accounts(id, username, email, full_name, role, active, password_hash, first_login)
		values($1,$2,$3,$4,$5,$6,$7,$8)`,
		acct.ID, username, email, acct.FullName, acct.Role, acct.Active, acct.PasswordHash, acct.FirstLogin,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrConflict
	}
	return err
}

func (s *PGStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username=$1`,
		strings.ToLower(strings.TrimSpace(username)),
	)
	return scanAccount(row)
}

func (s *PGStore) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username=$1 or email=$1`,
		strings.ToLower(strings.TrimSpace(identifier)),
	)
	return scanAccount(row)
}

func (s *PGStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from accounts order by username asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, acct *Account) error {
	res, err := s.db.ExecContext(ctx, `
		update accounts
		set email=$2, full_name=$3, role=$4, active=$5, updated_at=now()
		where username=$1`,
		strings.ToLower(strings.TrimSpace(acct.Username)),
		strings.ToLower(strings.TrimSpace(acct.Email)),
		acct.FullName, acct.Role, acct.Active,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}

func (s *PGStore) UpdatePassword(ctx context.Context, username, passwordHash string, firstLogin bool) error {
	res, err := s.db.ExecContext(ctx, `
		update accounts set password_hash=$2, first_login=$3, updated_at=now()
		where username=$1`,
		strings.ToLower(strings.TrimSpace(username)), passwordHash, firstLogin,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) SetLastLogin(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set last_login=now() where username=$1`,
		strings.ToLower(strings.TrimSpace(username)),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) Delete(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from accounts where username=$1`,
		strings.ToLower(strings.TrimSpace(username)),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		acct      Account
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&acct.ID, &acct.Username, &acct.Email, &acct.FullName, &acct.Role,
		&acct.Active, &acct.PasswordHash, &acct.FirstLogin, &lastLogin,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		acct.LastLogin = &t
	}
	return &acct, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
