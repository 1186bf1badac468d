package oidc

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexauth/nexauth/internal/database"
)

// AuthorizeRequest represents the OAuth2/OIDC authorization request
type AuthorizeRequest struct {
	ResponseType        string `query:"response_type" validate:"required,oneof=code"`
	ClientID            string `query:"client_id" validate:"required"`
	RedirectURI         string `query:"redirect_uri" validate:"required,url"`
	Scope               string `query:"scope" validate:"required"`
	State               string `query:"state"`
	Nonce               string `query:"nonce"`
	CodeChallenge       string `query:"code_challenge"`
	CodeChallengeMethod string `query:"code_challenge_method" validate:"omitempty,oneof=plain S256"`
}

// AuthorizeResponse carries the issued code back to the redirect URI
type AuthorizeResponse struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

// TokenRequest represents the OAuth2 token request for both supported grants
type TokenRequest struct {
	GrantType    string `form:"grant_type" validate:"required,oneof=authorization_code refresh_token"`
	Code         string `form:"code"`
	RedirectURI  string `form:"redirect_uri"`
	ClientID     string `form:"client_id" validate:"required"`
	ClientSecret string `form:"client_secret"`
	CodeVerifier string `form:"code_verifier"`
	RefreshToken string `form:"refresh_token"`
}

// TokenResponse represents the OAuth2 token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// IntrospectRequest represents an RFC 7662 introspection request
type IntrospectRequest struct {
	Token        string `form:"token" validate:"required"`
	ClientID     string `form:"client_id" validate:"required"`
	ClientSecret string `form:"client_secret"`
}

// IntrospectResponse represents an RFC 7662 introspection response.
// Inactive tokens carry only Active=false.
type IntrospectResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Audience  string `json:"aud,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Cluster   string `json:"cluster,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	JTI       string `json:"jti,omitempty"`
}

// RevokeRequest represents an RFC 7009 revocation request
type RevokeRequest struct {
	Token         string `form:"token" validate:"required"`
	TokenTypeHint string `form:"token_type_hint"`
	ClientID      string `form:"client_id" validate:"required"`
	ClientSecret  string `form:"client_secret"`
}

// AuthorizationCode represents a single-use OAuth2 authorization code
type AuthorizationCode struct {
	database.BaseModel

	Code          string    `gorm:"column:code;type:varchar(255);uniqueIndex;not null" json:"-"`
	ClientID      string    `gorm:"column:client_id;type:varchar(255);not null;index" json:"client_id"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Cluster       string    `gorm:"column:cluster;type:varchar(50);not null" json:"cluster"`
	RedirectURI   string    `gorm:"column:redirect_uri;type:text;not null" json:"redirect_uri"`
	Scopes        string    `gorm:"column:scopes;type:text;not null" json:"scopes"` // space-separated
	CodeChallenge string    `gorm:"column:code_challenge;type:varchar(255)" json:"-"`
	ChallengeMeth string    `gorm:"column:challenge_meth;type:varchar(10)" json:"-"`
	Nonce         string    `gorm:"column:nonce;type:varchar(255)" json:"-"`
	ExpiresAt     time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	Used          bool      `gorm:"column:used;default:false;index" json:"used"`
}

func (AuthorizationCode) TableName() string {
	return "authorization_codes"
}

// ScopeList returns the granted scopes as a slice
func (a *AuthorizationCode) ScopeList() []string {
	return strings.Fields(a.Scopes)
}
