package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/oklog/ulid/v2"

	"github.com/nexauth/nexauth/internal/domain/permission"
	"github.com/nexauth/nexauth/internal/domain/user"
)

// TokenIssuer mints the signed tokens handed to relying parties. It is
// stateless: everything a verifier needs is embedded in the claims.
type TokenIssuer struct {
	keyStore  *KeyStore
	issuer    string
	accessTTL time.Duration
	idTTL     time.Duration
}

// NewTokenIssuer creates a TokenIssuer signing with keyStore
func NewTokenIssuer(keyStore *KeyStore, issuer string, accessTTL, idTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		keyStore:  keyStore,
		issuer:    issuer,
		accessTTL: accessTTL,
		idTTL:     idTTL,
	}
}

// AccessTTL returns the access token lifetime
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// Issuer returns the configured issuer URL
func (t *TokenIssuer) Issuer() string {
	return t.issuer
}

// RoleFlagsFor extracts the role flags from a user record
func RoleFlagsFor(u *user.User) permission.RoleFlags {
	return permission.RoleFlags{
		Admin:     u.IsAdmin,
		Moderator: u.IsModerator,
		Creator:   u.IsCreator,
		Verified:  u.IsVerified,
	}
}

// GenerateAccessToken mints a short-lived access token. The permission set
// is derived from role flags and granted scopes at signing time, so
// verification never needs a database round trip.
func (t *TokenIssuer) GenerateAccessToken(u *user.User, sid, cluster, audience string, scopes []string) (string, error) {
	now := time.Now()
	flags := RoleFlagsFor(u)
	perms := permission.Derive(flags, scopes)

	token, err := jwt.NewBuilder().
		Subject(u.ID.String()).
		Audience([]string{audience}).
		Issuer(t.issuer).
		IssuedAt(now).
		Expiration(now.Add(t.accessTTL)).
		JwtID(ulid.Make().String()).
		Claim("sid", sid).
		Claim("cluster", cluster).
		Claim("role", permission.RoleName(flags)).
		Claim("scope", strings.Join(scopes, " ")).
		Claim("is_creator", u.IsCreator).
		Claim("is_verified", u.IsVerified).
		Claim("token_type", "access").
		Build()
	if err != nil {
		return "", err
	}

	if len(perms) > 0 {
		if err := token.Set("permissions", perms); err != nil {
			return "", fmt.Errorf("failed to set permissions claim: %w", err)
		}
	}

	return t.keyStore.SignToken(token)
}

// GenerateIDToken mints an OIDC ID token with profile claims filtered by the
// granted scopes for the given relying-party audience.
func (t *TokenIssuer) GenerateIDToken(u *user.User, audience, nonce string, authTime time.Time, scopes []string) (string, error) {
	now := time.Now()

	builder := jwt.NewBuilder().
		Subject(u.ID.String()).
		Audience([]string{audience}).
		Issuer(t.issuer).
		IssuedAt(now).
		Expiration(now.Add(t.idTTL)).
		JwtID(ulid.Make().String()).
		Claim("auth_time", authTime.Unix())

	if nonce != "" {
		builder.Claim("nonce", nonce)
	}

	for k, v := range ProfileClaims(u, scopes) {
		if reservedIDTokenClaims[k] {
			return "", fmt.Errorf("cannot override reserved claim: %s", k)
		}
		builder.Claim(k, v)
	}

	token, err := builder.Build()
	if err != nil {
		return "", err
	}

	return t.keyStore.SignToken(token)
}

// reservedIDTokenClaims cannot be supplied through profile claims
var reservedIDTokenClaims = map[string]bool{
	"iss": true, "sub": true, "aud": true, "exp": true, "iat": true,
	"auth_time": true, "nonce": true, "acr": true, "amr": true, "azp": true,
}

// ProfileClaims returns the identity claims unlocked by the granted scopes.
// Shared between ID token minting and the userinfo endpoint so both stay in
// agreement about what each scope exposes.
func ProfileClaims(u *user.User, scopes []string) map[string]any {
	scopeSet := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = true
	}

	claims := map[string]any{
		"cluster": u.PrimaryCluster,
	}

	if scopeSet["profile"] {
		claims["preferred_username"] = u.Handle
		if u.DisplayName != "" {
			claims["name"] = u.DisplayName
		}
		if u.AvatarURL != "" {
			claims["picture"] = u.AvatarURL
		}
		claims["is_creator"] = u.IsCreator
		claims["is_verified"] = u.IsVerified
	}

	if scopeSet["email"] {
		claims["email"] = u.Email
		claims["email_verified"] = u.IsVerified
	}

	return claims
}
