package oidc

import (
	"errors"
	"net/http"
)

// Standard OAuth2/OIDC error codes as defined in RFC 6749 and OIDC Core 1.0
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeServerError             = "server_error"
	ErrorCodeLoginRequired           = "login_required"
)

var (
	// ErrInvalidClientID is returned when the client_id is unknown or malformed
	ErrInvalidClientID = errors.New("invalid_client_id")

	// ErrInvalidRedirectURI is returned when the redirect_uri does not match a pre-registered value
	ErrInvalidRedirectURI = errors.New("invalid_redirect_uri")

	// ErrInvalidScope is returned when a requested scope is not allowed for the client
	ErrInvalidScope = errors.New("invalid_scope")

	// ErrInvalidResponseType is returned when the response_type is not supported
	ErrInvalidResponseType = errors.New("unsupported_response_type")

	// ErrUnsupportedGrantType is returned when the grant_type is not supported
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")

	// ErrInvalidCodeChallenge is returned when the code_challenge is missing or malformed
	ErrInvalidCodeChallenge = errors.New("invalid_code_challenge")

	// ErrInvalidCodeChallengeMethod is returned when the code_challenge_method is not supported
	ErrInvalidCodeChallengeMethod = errors.New("unsupported_code_challenge_method")

	// ErrPKCERequired is returned when a public client omits the code_challenge
	ErrPKCERequired = errors.New("pkce_required")

	// ErrClientNotActive is returned when the client has been disabled
	ErrClientNotActive = errors.New("client_not_active")

	// ErrUnauthorizedClient is returned when the client may not use the grant type
	ErrUnauthorizedClient = errors.New("unauthorized_client")

	// ErrInvalidGrant is returned when the presented grant is invalid or expired
	ErrInvalidGrant = errors.New("invalid_grant")

	// ErrInvalidCode is returned when the authorization code is invalid or expired
	ErrInvalidCode = errors.New("invalid_code")

	// ErrCodeAlreadyUsed is returned on a second consumption attempt of the same code
	ErrCodeAlreadyUsed = errors.New("code_already_used")

	// ErrInvalidCodeVerifier is returned when the PKCE verifier does not match the challenge
	ErrInvalidCodeVerifier = errors.New("invalid_code_verifier")

	// ErrInvalidClientSecret is returned when client authentication fails
	ErrInvalidClientSecret = errors.New("invalid_client_secret")
)

// OAuthError represents a standardized OAuth2/OIDC protocol error
type OAuthError struct {
	// Code is the error code returned to the client (e.g. "invalid_request")
	Code string
	// Description is a human-readable ASCII text with additional information
	Description string
	// StatusCode is the HTTP status associated with this error
	StatusCode int
}

// MapErrorToOAuth maps an internal domain error to a standardized protocol
// error. Unrecognized errors map to server_error with HTTP 500.
func MapErrorToOAuth(err error) OAuthError {
	switch {
	case errors.Is(err, ErrInvalidClientID):
		return OAuthError{Code: ErrorCodeInvalidClient, Description: "Invalid client_id", StatusCode: http.StatusUnauthorized}
	case errors.Is(err, ErrInvalidClientSecret):
		return OAuthError{Code: ErrorCodeInvalidClient, Description: "Client authentication failed", StatusCode: http.StatusUnauthorized}
	case errors.Is(err, ErrClientNotActive):
		return OAuthError{Code: ErrorCodeUnauthorizedClient, Description: "Client is not active", StatusCode: http.StatusUnauthorized}
	case errors.Is(err, ErrUnauthorizedClient):
		return OAuthError{Code: ErrorCodeUnauthorizedClient, Description: "Client is not authorized for this grant type", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidRedirectURI):
		return OAuthError{Code: ErrorCodeInvalidRequest, Description: "The redirect_uri is not allowed for this client", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidScope):
		return OAuthError{Code: ErrorCodeInvalidScope, Description: "One or more requested scopes are not allowed", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidResponseType):
		return OAuthError{Code: ErrorCodeUnsupportedResponseType, Description: "Only 'code' response_type is supported", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrUnsupportedGrantType):
		return OAuthError{Code: ErrorCodeUnsupportedGrantType, Description: "The authorization grant type is not supported", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidCodeChallenge):
		return OAuthError{Code: ErrorCodeInvalidRequest, Description: "Invalid code_challenge format", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidCodeChallengeMethod):
		return OAuthError{Code: ErrorCodeInvalidRequest, Description: "Unsupported code_challenge_method", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrPKCERequired):
		return OAuthError{Code: ErrorCodeInvalidRequest, Description: "Public clients must use PKCE with S256", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrCodeAlreadyUsed):
		return OAuthError{Code: ErrorCodeInvalidGrant, Description: "The provided authorization code is invalid, expired, or already used", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidCodeVerifier):
		return OAuthError{Code: ErrorCodeInvalidGrant, Description: "code_verifier is invalid", StatusCode: http.StatusBadRequest}
	case errors.Is(err, ErrInvalidGrant):
		return OAuthError{Code: ErrorCodeInvalidGrant, Description: "The provided grant is invalid", StatusCode: http.StatusBadRequest}
	default:
		return OAuthError{Code: ErrorCodeServerError, Description: "internal_server_error", StatusCode: http.StatusInternalServerError}
	}
}
