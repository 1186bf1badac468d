package client

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/nexauth/nexauth/internal/domain/user"
)

// Service interface for relying-party operations
type Service interface {
	// Register provisions a new relying party and returns the plaintext
	// secret exactly once. Only the Argon2id hash is persisted.
	Register(req RegisterRequest) (*Client, string, error)
	// Authenticate verifies client credentials. Public clients may omit
	// the secret; confidential clients must present the matching one.
	Authenticate(clientID, secret string) (*Client, error)
	GetByClientID(clientID string) (*Client, error)
	// GetByCluster resolves a registration by its downstream cluster,
	// regardless of the active flag. Intended for operator tooling.
	GetByCluster(cluster string) (*Client, error)
	ListActive() ([]*Client, error)
	UpdateRedirectURIs(clientID string, uris []string) error
	SetActive(clientID string, active bool) error
}

// RegisterRequest represents the input for client provisioning
type RegisterRequest struct {
	ClientID     string   `json:"client_id" validate:"required,min=3,max=100"`
	Name         string   `json:"name" validate:"required,max=255"`
	Cluster      string   `json:"cluster" validate:"required,max=50"`
	RedirectURIs []string `json:"redirect_uris" validate:"required,min=1,dive,url"`
	Scopes       []string `json:"scopes" validate:"required,min=1"`
	GrantTypes   []string `json:"grant_types" validate:"required,min=1"`
	Public       bool     `json:"public"`
}

type service struct {
	repo Repository
}

// NewService creates a new client service
func NewService(repo Repository) Service {
	return &service{repo}
}

func (s *service) Register(req RegisterRequest) (*Client, string, error) {
	var secret, secretHash string
	if !req.Public {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, "", fmt.Errorf("failed to generate client secret: %w", err)
		}
		secret = base64.RawURLEncoding.EncodeToString(raw)

		hash, err := user.HashPassword(secret)
		if err != nil {
			return nil, "", err
		}
		secretHash = hash
	}

	c := &Client{
		ClientID:     req.ClientID,
		SecretHash:   secretHash,
		Name:         req.Name,
		Cluster:      req.Cluster,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
		GrantTypes:   req.GrantTypes,
		Public:       req.Public,
		Active:       true,
	}

	if err := s.repo.Create(c); err != nil {
		return nil, "", err
	}

	return c, secret, nil
}

func (s *service) Authenticate(clientID, secret string) (*Client, error) {
	c, err := s.repo.FindByClientID(clientID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrClientNotActive
	}

	if c.Public {
		return c, nil
	}

	if secret == "" || !user.VerifyPassword(secret, c.SecretHash) {
		return nil, ErrInvalidClientSecret
	}

	return c, nil
}

func (s *service) GetByClientID(clientID string) (*Client, error) {
	c, err := s.repo.FindByClientID(clientID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrClientNotActive
	}
	return c, nil
}

func (s *service) GetByCluster(cluster string) (*Client, error) {
	return s.repo.FindByCluster(cluster)
}

func (s *service) ListActive() ([]*Client, error) {
	return s.repo.FindActive()
}

func (s *service) UpdateRedirectURIs(clientID string, uris []string) error {
	return s.repo.UpdateRedirectURIs(clientID, uris)
}

func (s *service) SetActive(clientID string, active bool) error {
	return s.repo.SetActive(clientID, active)
}
