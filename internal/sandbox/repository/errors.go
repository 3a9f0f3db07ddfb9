package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the owner and id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint violation on insert.
	ErrDuplicate = errors.New("already exists")
)
