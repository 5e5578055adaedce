package auth

import "errors"

var (
	// ErrInvalidCredentials covers malformed, tampered and expired tokens as
	// well as wrong passwords. Callers must not be able to tell these apart.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrAccountDisabled = errors.New("auth: account deactivated")
	ErrWrongPassword   = errors.New("auth: wrong current password")
	ErrNotFound        = errors.New("auth: not found")
	ErrConflict        = errors.New("auth: already exists")
	ErrInvalidInput    = errors.New("auth: invalid input")
)
