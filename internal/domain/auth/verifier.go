package auth

import (
	"time"

	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Verify parses a signed token and checks its signature against the key set.
// The key is selected by the kid in the token header; tokens without a
// matching kid fail outright. Expiry is checked here so the caller can tell
// an expired token from a forged one; issuer and audience checks live in
// AccessTokenClaims.Validate.
func (ks *KeyStore) Verify(tokenString string) (*AccessTokenClaims, error) {
	ks.mu.RLock()
	keySet := ks.keySet
	ks.mu.RUnlock()

	verifiedToken, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(keySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &AccessTokenClaims{Token: verifiedToken}

	exp := claims.Expiration()
	if exp.IsZero() {
		return nil, ErrInvalidToken
	}
	if time.Now().After(exp) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
