package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nexauth/nexauth/internal/database"
)

// Client represents a relying-party registration. One registration exists
// per downstream cluster; redirect URIs and the active flag are the only
// fields expected to change after provisioning.
type Client struct {
	database.BaseModel
	ClientID     string         `gorm:"column:client_id;type:varchar(255);uniqueIndex;not null"`
	SecretHash   string         `gorm:"column:secret_hash;type:varchar(255)"`
	Name         string         `gorm:"column:name;type:varchar(255);not null"`
	Cluster      string         `gorm:"column:cluster;type:varchar(50);uniqueIndex;not null"`
	RedirectURIs pq.StringArray `gorm:"column:redirect_uris;type:text[];not null"`
	Scopes       pq.StringArray `gorm:"column:scopes;type:text[];not null"`
	GrantTypes   pq.StringArray `gorm:"column:grant_types;type:text[];not null"`
	Public       bool           `gorm:"column:public;default:false"`
	Active       bool           `gorm:"column:active;default:true"`
}

func (Client) TableName() string {
	return "oauth_clients"
}

// ClientResponse represents a safe client response without the secret hash
type ClientResponse struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ClientID     string    `json:"client_id"`
	Name         string    `json:"name"`
	Cluster      string    `json:"cluster"`
	RedirectURIs []string  `json:"redirect_uris"`
	Scopes       []string  `json:"scopes"`
	GrantTypes   []string  `json:"grant_types"`
	Public       bool      `json:"public"`
	Active       bool      `json:"active"`
}

// ToResponse converts a Client to ClientResponse
func (c *Client) ToResponse() *ClientResponse {
	return &ClientResponse{
		ID:           c.ID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		ClientID:     c.ClientID,
		Name:         c.Name,
		Cluster:      c.Cluster,
		RedirectURIs: c.RedirectURIs,
		Scopes:       c.Scopes,
		GrantTypes:   c.GrantTypes,
		Public:       c.Public,
		Active:       c.Active,
	}
}

// AllowsRedirectURI reports whether uri matches the allow-list exactly
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// AllowsScope reports whether scope is in the allowed scope set
func (c *Client) AllowsScope(scope string) bool {
	for _, allowed := range c.Scopes {
		if allowed == scope {
			return true
		}
	}
	return false
}

// AllowsGrantType reports whether grantType is in the allowed grant set
func (c *Client) AllowsGrantType(grantType string) bool {
	for _, allowed := range c.GrantTypes {
		if allowed == grantType {
			return true
		}
	}
	return false
}
