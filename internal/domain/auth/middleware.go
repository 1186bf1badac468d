package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nexauth/nexauth/internal/utils"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
	// ClaimsKey is the key used to store raw token claims in Fiber context
	ClaimsKey = "token_claims"
)

// Middleware returns a Fiber middleware that authenticates requests using a
// bearer token from the Authorization header. The token signature is checked
// against the key set, issuer and expiry are enforced, and the backing
// session is checked for revocation. On success the resolved Identity is
// stored under IdentityKey for downstream handlers.
func Middleware(keyStore *KeyStore, svc AuthService, issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, ErrMissingAuthorizationHeader.Error(), fiber.StatusUnauthorized)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return utils.ErrorResponse(c, ErrInvalidAuthorizationHeader.Error(), fiber.StatusUnauthorized)
		}

		claims, err := keyStore.Verify(parts[1])
		if err != nil {
			return utils.ErrorResponse(c, ErrInvalidToken.Error(), fiber.StatusUnauthorized)
		}

		if err := claims.Validate(issuer, nil); err != nil {
			return utils.ErrorResponse(c, ErrInvalidToken.Error(), fiber.StatusUnauthorized)
		}

		if svc.IsTokenRevoked(claims) {
			return utils.ErrorResponse(c, ErrTokenRevoked.Error(), fiber.StatusUnauthorized)
		}

		identity := &Identity{
			UserID:      claims.Subject(),
			SessionID:   claims.GetSid(),
			Cluster:     claims.GetCluster(),
			Role:        claims.GetRole(),
			Permissions: claims.GetPermissions(),
			IsCreator:   claims.IsCreator(),
			IsVerified:  claims.IsVerified(),
		}

		c.Locals(IdentityKey, identity)
		c.Locals(ClaimsKey, claims)

		return c.Next()
	}
}

// RequirePermission returns a middleware that rejects requests whose token
// does not carry the given permission.
func RequirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := GetIdentity(c)
		if identity == nil || !identity.HasPermission(perm) {
			return utils.ErrorResponse(c, utils.ErrAuthorization.Message, fiber.StatusForbidden)
		}
		return c.Next()
	}
}

// GetIdentity extracts the identity from Fiber context
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetClaims extracts the raw verified claims from Fiber context
func GetClaims(c *fiber.Ctx) *AccessTokenClaims {
	claims, ok := c.Locals(ClaimsKey).(*AccessTokenClaims)
	if !ok {
		return nil
	}
	return claims
}
