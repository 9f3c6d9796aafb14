package auth

import "errors"

// Typed outcomes returned by the auth flows. The HTTP handler translates
// these into status codes; anything else is an internal fault.
var (
	ErrAlreadyExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSignature   = errors.New("invalid wallet signature")
	ErrAccountLocked      = errors.New("account locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is not active")
	ErrNotFound           = errors.New("account not found")
	ErrAlreadyVerified    = errors.New("email is already verified")
	ErrNoEmail            = errors.New("no email address associated with this account")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)
