package user

import "errors"

var (
	// ErrEmailExists is returned when trying to register with an email that already exists
	ErrEmailExists = errors.New("email already exists")
	// ErrHandleExists is returned when trying to register with a handle that already exists
	ErrHandleExists = errors.New("handle already exists")
	// ErrUserNotFound is returned when a user lookup matches no row
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for any failed credential check.
	// The message is identical for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotActive is returned when credentials are valid but the account is suspended, pending or disabled
	ErrAccountNotActive = errors.New("account is not active")
	// ErrInvalidHandle is returned when a handle contains forbidden characters
	ErrInvalidHandle = errors.New("handle must be 3-30 characters of letters, digits or underscore")
	// ErrWeakPassword is returned when a password fails the strength requirements
	ErrWeakPassword = errors.New("password must be at least 8 characters with upper, lower and digit")
	// ErrTermsNotAccepted is returned when registration omits terms acceptance
	ErrTermsNotAccepted = errors.New("terms must be accepted")
)
