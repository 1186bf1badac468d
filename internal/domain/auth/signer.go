package auth

import (
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// SignToken signs a token with the active key. The key carries its kid, so
// the signed header identifies the verification key.
func (ks *KeyStore) SignToken(token jwt.Token) (string, error) {
	key, err := ks.GetActiveKey()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), key))
	if err != nil {
		return "", err
	}

	return string(signed), nil
}
