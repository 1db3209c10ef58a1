package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown accounts and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled marks a valid login on a deactivated account.
	ErrAccountDisabled = errors.New("account is disabled")
)
