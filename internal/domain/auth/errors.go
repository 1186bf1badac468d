package auth

import "errors"

var (
	// ErrUnknownKey is returned when the active key id is not in the key set
	ErrUnknownKey = errors.New("unknown signing key")
	// ErrKeyNotFound is returned when retiring or looking up a missing kid
	ErrKeyNotFound = errors.New("key not found in key set")
	// ErrNoKeys is returned when the key directory holds no usable key pair
	ErrNoKeys = errors.New("no signing keys available")

	// ErrInvalidToken is returned for malformed tokens or bad signatures
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is past its expiration
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when the backing session was revoked
	ErrTokenRevoked = errors.New("token revoked")
	// ErrMissingAuthorizationHeader is returned when no bearer token is present
	ErrMissingAuthorizationHeader = errors.New("missing authorization header")
	// ErrInvalidAuthorizationHeader is returned for non-Bearer authorization headers
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")
)
