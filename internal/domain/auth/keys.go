package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// KeyStore holds the signing key pairs. The active kid signs new tokens;
// every loaded public key stays in the published set so tokens signed before
// a rotation keep verifying until their keys are retired.
type KeyStore struct {
	mu        sync.RWMutex
	activeKid string
	keySet    jwk.Set
}

// LoadKeys reads private-<kid>.pem / public-<kid>.pem pairs from path into a
// kid-indexed key set. When the directory holds no keys and allowGenerate is
// set, a fresh in-memory pair is created under the requested kid; production
// deployments must provision real keys.
func LoadKeys(path, activeKid string, allowGenerate bool) (*KeyStore, error) {
	keySet := jwk.NewSet()
	loaded := 0

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		files, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read keys directory: %w", err)
		}

		for _, file := range files {
			if file.IsDir() {
				continue
			}

			fileName := file.Name()
			if !strings.HasPrefix(fileName, "private-") || filepath.Ext(fileName) != ".pem" {
				continue
			}

			kid := strings.TrimPrefix(fileName, "private-")
			kid = strings.TrimSuffix(kid, ".pem")
			if kid == "" {
				continue
			}

			priv, err := readPrivateKey(filepath.Join(path, fileName))
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", fileName, err)
			}

			if err := addKeyToSet(keySet, priv, kid); err != nil {
				return nil, err
			}
			loaded++
		}
	}

	if loaded == 0 {
		if !allowGenerate {
			return nil, ErrNoKeys
		}
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key pair: %w", err)
		}
		if err := addKeyToSet(keySet, priv, activeKid); err != nil {
			return nil, err
		}
	}

	ks := &KeyStore{
		activeKid: normalizeKid(activeKid),
		keySet:    keySet,
	}

	if _, err := ks.GetActiveKey(); err != nil {
		return nil, err
	}

	return ks, nil
}

func readPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if priv, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return priv, nil
	}

	pkcs8Key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an RSA private key")
	}

	return rsaKey, nil
}

func addKeyToSet(keySet jwk.Set, priv *rsa.PrivateKey, kid string) error {
	jwkKey, err := jwk.Import(priv)
	if err != nil {
		return fmt.Errorf("failed to convert private key to JWK: %w", err)
	}

	if err := jwkKey.Set(jwk.KeyIDKey, normalizeKid(kid)); err != nil {
		return fmt.Errorf("failed to set key ID: %w", err)
	}

	if err := jwkKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		return fmt.Errorf("failed to set algorithm: %w", err)
	}

	return keySet.AddKey(jwkKey)
}

func normalizeKid(kid string) string {
	if strings.HasPrefix(kid, "key-") {
		return kid
	}
	return "key-" + kid
}

// ActiveKid returns the key id used for signing
func (ks *KeyStore) ActiveKid() string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.activeKid
}

// GetActiveKey returns the private key currently used for signing
func (ks *KeyStore) GetActiveKey() (jwk.Key, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	key, ok := ks.keySet.LookupKeyID(ks.activeKid)
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// Rotate installs a new signing key pair and makes it active. Public keys of
// previous kids remain published until retired.
func (ks *KeyStore) Rotate(priv *rsa.PrivateKey, kid string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if err := addKeyToSet(ks.keySet, priv, kid); err != nil {
		return err
	}
	ks.activeKid = normalizeKid(kid)
	return nil
}

// Retire removes a key from the set. The active key cannot be retired.
func (ks *KeyStore) Retire(kid string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	full := normalizeKid(kid)
	if full == ks.activeKid {
		return fmt.Errorf("cannot retire the active signing key %s", full)
	}

	key, ok := ks.keySet.LookupKeyID(full)
	if !ok {
		return ErrKeyNotFound
	}
	return ks.keySet.RemoveKey(key)
}

// JWKS returns the publishable public key set
func (ks *KeyStore) JWKS() jwk.Set {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	publicSet, err := jwk.PublicSetOf(ks.keySet)
	if err != nil {
		return jwk.NewSet()
	}
	return publicSet
}
