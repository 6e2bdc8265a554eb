package core

import "errors"

// The error taxonomy of the service. Every one of these is recoverable at the
// API boundary and maps to a 4xx response; none is fatal to the process.
var (
	ErrNotFound           = errors.New("post not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidAction      = errors.New("invalid action")
	ErrEmptyContent       = errors.New("content must not be empty")
	ErrContentTooLong     = errors.New("content too long")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
