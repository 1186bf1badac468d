package client

import "errors"

var (
	// ErrClientNotFound is returned when a client is not found
	ErrClientNotFound = errors.New("client not found")

	// ErrClientNotActive is returned when a client registration is disabled
	ErrClientNotActive = errors.New("client is not active")

	// ErrClientIDExists is returned when a client_id is already registered
	ErrClientIDExists = errors.New("client id already exists")

	// ErrInvalidClientSecret is returned when the presented secret does not match
	ErrInvalidClientSecret = errors.New("invalid client secret")
)
