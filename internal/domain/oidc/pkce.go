package oidc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE methods per RFC 7636. S256 is mandatory for public clients; plain is
// tolerated for confidential clients that also present a secret.
const (
	ChallengeMethodPlain = "plain"
	ChallengeMethodS256  = "S256"
)

// ValidateChallenge checks the challenge format at authorization time
func ValidateChallenge(challenge, method string) error {
	if challenge == "" {
		return ErrInvalidCodeChallenge
	}

	switch method {
	case ChallengeMethodS256:
		// base64url encoded SHA-256 digest, always 43 characters
		if len(challenge) != 43 {
			return ErrInvalidCodeChallenge
		}
		if _, err := base64.RawURLEncoding.DecodeString(challenge); err != nil {
			return ErrInvalidCodeChallenge
		}
	case ChallengeMethodPlain, "":
		// RFC 7636 bounds for the verifier apply to plain challenges too
		if len(challenge) < 43 || len(challenge) > 128 {
			return ErrInvalidCodeChallenge
		}
	default:
		return ErrInvalidCodeChallengeMethod
	}

	return nil
}

// VerifyVerifier checks a code_verifier against the stored challenge using
// a constant-time comparison.
func VerifyVerifier(verifier, challenge, method string) error {
	if verifier == "" {
		return ErrInvalidCodeVerifier
	}

	var computed string
	switch method {
	case ChallengeMethodS256:
		hash := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(hash[:])
	case ChallengeMethodPlain, "":
		computed = verifier
	default:
		return ErrInvalidCodeChallengeMethod
	}

	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return ErrInvalidCodeVerifier
	}

	return nil
}
