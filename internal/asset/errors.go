package asset

import "errors"

var (
	ErrNotFound     = errors.New("asset: not found")
	ErrInvalidID    = errors.New("asset: invalid id format")
	ErrInvalidInput = errors.New("asset: invalid input")
	ErrConflict     = errors.New("asset: already exists")
)
