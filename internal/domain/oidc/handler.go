package oidc

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nexauth/nexauth/internal/domain/auth"
	"github.com/nexauth/nexauth/internal/domain/permission"
	"github.com/nexauth/nexauth/internal/utils"
)

type Handler struct {
	service  ServiceInterface
	keyStore *auth.KeyStore
}

// NewHandler creates a Handler serving the OAuth2/OIDC endpoints
func NewHandler(service ServiceInterface, keyStore *auth.KeyStore) *Handler {
	return &Handler{
		service:  service,
		keyStore: keyStore,
	}
}

// OpenIDConfigurationHandler serves the OIDC discovery document
func OpenIDConfigurationHandler(issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"issuer": issuer,

			"authorization_endpoint": issuer + "/v1/oauth/authorize",
			"token_endpoint":         issuer + "/v1/oauth/token",
			"userinfo_endpoint":      issuer + "/v1/oauth/userinfo",
			"introspection_endpoint": issuer + "/v1/oauth/introspect",
			"revocation_endpoint":    issuer + "/v1/oauth/revoke",
			"jwks_uri":               issuer + "/.well-known/jwks.json",

			"scopes_supported": permission.KnownScopes(),

			"response_types_supported": []string{"code"},
			"grant_types_supported": []string{
				"authorization_code",
				"refresh_token",
			},
			"code_challenge_methods_supported": []string{
				ChallengeMethodPlain,
				ChallengeMethodS256,
			},
			"token_endpoint_auth_methods_supported": []string{
				"client_secret_post",
				"none",
			},

			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{"RS256"},
			"claims_supported": []string{
				"sub", "iss", "aud", "exp", "iat", "auth_time", "nonce",
				"preferred_username", "name", "picture", "email",
				"email_verified", "cluster", "is_creator", "is_verified",
			},
		})
	}
}

// JWKS serves the public key set for token verification
func (h *Handler) JWKS(c *fiber.Ctx) error {
	c.Set("Cache-Control", "public, max-age=300")
	return c.JSON(h.keyStore.JWKS())
}

// Authorize handles the OAuth2/OIDC authorization request. The caller must
// already be authenticated; on success the browser is redirected back to the
// client with the code and state.
func (h *Handler) Authorize(c *fiber.Ctx) error {
	var req AuthorizeRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, err.Error())
	}

	if req.ResponseType == "" || req.ClientID == "" || req.RedirectURI == "" || req.Scope == "" {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest,
			"response_type, client_id, redirect_uri and scope are required")
	}

	identity := auth.GetIdentity(c)
	if identity == nil {
		return utils.OAuthErrorResponse(c, ErrorCodeLoginRequired, "Authentication required", fiber.StatusUnauthorized)
	}

	userID, err := uuid.Parse(identity.UserID)
	if err != nil {
		return utils.OAuthErrorResponse(c, ErrorCodeServerError, "Invalid user identity", fiber.StatusInternalServerError)
	}

	res, err := h.service.Authorize(&req, userID)
	if err != nil {
		oauthErr := MapErrorToOAuth(err)
		return utils.OAuthErrorResponse(c, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode)
	}

	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, "Invalid redirect_uri format")
	}

	q := u.Query()
	q.Set("code", res.Code)
	if res.State != "" {
		q.Set("state", res.State)
	}
	u.RawQuery = q.Encode()

	return c.Redirect(u.String(), fiber.StatusFound)
}

// Token handles the token endpoint and dispatches on grant_type
func (h *Handler) Token(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, err.Error())
	}

	if req.GrantType == "" {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, "grant_type is required")
	}
	if req.ClientID == "" {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, "client_id is required")
	}

	var (
		res *TokenResponse
		err error
	)
	switch req.GrantType {
	case "authorization_code":
		res, err = h.service.ExchangeCode(&req, c.IP(), c.Get("User-Agent"))
	case "refresh_token":
		res, err = h.service.RefreshGrant(&req)
	default:
		return utils.OAuthErrorResponse(c, ErrorCodeUnsupportedGrantType,
			"The authorization grant type is not supported")
	}
	if err != nil {
		oauthErr := MapErrorToOAuth(err)
		return utils.OAuthErrorResponse(c, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode)
	}

	c.Set("Cache-Control", "no-store")
	c.Set("Pragma", "no-cache")
	return c.Status(fiber.StatusOK).JSON(res)
}

// UserInfo serves the OIDC userinfo endpoint. Claims are filtered by the
// scopes carried in the verified access token.
func (h *Handler) UserInfo(c *fiber.Ctx) error {
	identity := auth.GetIdentity(c)
	claims := auth.GetClaims(c)
	if identity == nil || claims == nil {
		return utils.OAuthErrorResponse(c, "invalid_token", "Invalid or missing access token", fiber.StatusUnauthorized)
	}

	scopes := strings.Fields(claims.GetScope())
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}

	userInfo, err := h.service.UserInfo(identity.UserID, scopes)
	if err != nil {
		oauthErr := MapErrorToOAuth(err)
		return utils.OAuthErrorResponse(c, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode)
	}

	return c.Status(fiber.StatusOK).JSON(userInfo)
}

// Introspect serves RFC 7662 token introspection for authenticated clients
func (h *Handler) Introspect(c *fiber.Ctx) error {
	var req IntrospectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, err.Error())
	}

	if req.Token == "" || req.ClientID == "" {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, "token and client_id are required")
	}

	res, err := h.service.Introspect(&req)
	if err != nil {
		oauthErr := MapErrorToOAuth(err)
		return utils.OAuthErrorResponse(c, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

// Revoke serves RFC 7009 token revocation. Per the RFC the endpoint answers
// 200 even for tokens it does not know.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	var req RevokeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, err.Error())
	}

	if req.Token == "" || req.ClientID == "" {
		return utils.OAuthErrorResponse(c, ErrorCodeInvalidRequest, "token and client_id are required")
	}

	if err := h.service.Revoke(&req); err != nil {
		oauthErr := MapErrorToOAuth(err)
		// Client authentication failures still surface; everything else
		// about the token stays opaque
		if oauthErr.Code == ErrorCodeInvalidClient || oauthErr.Code == ErrorCodeUnauthorizedClient {
			return utils.OAuthErrorResponse(c, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode)
		}
	}

	return c.SendStatus(fiber.StatusOK)
}
