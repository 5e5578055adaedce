package auth

import "time"

// Roles understood by the authorization gateway.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Account represents a persistent principal stored in the accounts collection.
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name,omitempty"`
	Role         string     `json:"role"`
	Active       bool       `json:"active"`
	PasswordHash string     `json:"-"`
	FirstLogin   bool       `json:"first_login"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Principal is an authenticated identity as seen by request handlers.
// Builtin principals come from the process-constant admin set and have no
// backing Account row.
type Principal struct {
	Username string
	Role     string
	Builtin  bool
}

// IsAdmin reports whether the principal may perform admin-only operations.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// BuiltinUser is a process-constant credential pair. Passwords are compared
// verbatim; this mirrors long-standing deployment behavior and is kept.
type BuiltinUser struct {
	Username string
	Password string
}
