package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexauth/nexauth/internal/cache"
	"github.com/nexauth/nexauth/internal/domain/auth"
	"github.com/nexauth/nexauth/internal/domain/client"
	"github.com/nexauth/nexauth/internal/domain/session"
	"github.com/nexauth/nexauth/internal/domain/user"
)

// ServiceInterface defines the OAuth2/OIDC provider operations
type ServiceInterface interface {
	Authorize(req *AuthorizeRequest, userID uuid.UUID) (*AuthorizeResponse, error)
	ExchangeCode(req *TokenRequest, ip, userAgent string) (*TokenResponse, error)
	RefreshGrant(req *TokenRequest) (*TokenResponse, error)
	Introspect(req *IntrospectRequest) (*IntrospectResponse, error)
	Revoke(req *RevokeRequest) error
	UserInfo(userID string, scopes []string) (map[string]any, error)
	SweepExpiredCodes() (int64, error)
}

// Service implements the authorization code flow on top of the relying-party
// registry, session manager and token issuer.
type Service struct {
	clients     client.Service
	clientCache *cache.ClientCache
	codes       Repository
	sessions    session.Service
	users       user.Service
	issuer      *auth.TokenIssuer
	authService auth.AuthService
	codeTTL     time.Duration
	sessionTTL  time.Duration
}

// NewService creates a new OIDC service. clientCache may be nil, in which
// case read-only client lookups go straight to the registry.
func NewService(
	clients client.Service,
	clientCache *cache.ClientCache,
	codes Repository,
	sessions session.Service,
	users user.Service,
	issuer *auth.TokenIssuer,
	authService auth.AuthService,
	codeTTL, sessionTTL time.Duration,
) ServiceInterface {
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &Service{
		clients:     clients,
		clientCache: clientCache,
		codes:       codes,
		sessions:    sessions,
		users:       users,
		issuer:      issuer,
		authService: authService,
		codeTTL:     codeTTL,
		sessionTTL:  sessionTTL,
	}
}

// Authorize validates the authorization request and issues a single-use code
// bound to the authenticated user and the client's cluster.
func (s *Service) Authorize(req *AuthorizeRequest, userID uuid.UUID) (*AuthorizeResponse, error) {
	if req.ResponseType != "code" {
		return nil, ErrInvalidResponseType
	}

	cl, err := s.lookupClient(req.ClientID)
	if err != nil {
		return nil, err
	}

	if !cl.AllowsGrantType("authorization_code") {
		return nil, ErrUnauthorizedClient
	}

	if !cl.AllowsRedirectURI(req.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	requestedScopes := strings.Fields(req.Scope)
	for _, scope := range requestedScopes {
		if !cl.AllowsScope(scope) {
			return nil, ErrInvalidScope
		}
	}

	if cl.Public {
		// Public clients cannot keep a secret, PKCE with S256 is their
		// only proof of possession
		if req.CodeChallenge == "" {
			return nil, ErrPKCERequired
		}
		if req.CodeChallengeMethod != ChallengeMethodS256 {
			return nil, ErrInvalidCodeChallengeMethod
		}
	}

	if req.CodeChallenge != "" {
		if err := ValidateChallenge(req.CodeChallenge, req.CodeChallengeMethod); err != nil {
			return nil, err
		}
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate authorization code: %w", err)
	}

	authCode := &AuthorizationCode{
		Code:          code,
		ClientID:      req.ClientID,
		UserID:        userID,
		Cluster:       cl.Cluster,
		RedirectURI:   req.RedirectURI,
		Scopes:        strings.Join(requestedScopes, " "),
		CodeChallenge: req.CodeChallenge,
		ChallengeMeth: req.CodeChallengeMethod,
		Nonce:         req.Nonce,
		ExpiresAt:     time.Now().Add(s.codeTTL),
		Used:          false,
	}

	if err := s.codes.Create(authCode); err != nil {
		return nil, fmt.Errorf("failed to save authorization code: %w", err)
	}

	return &AuthorizeResponse{
		Code:  code,
		State: req.State,
	}, nil
}

// UserInfo returns the scope-filtered claims for the userinfo endpoint
func (s *Service) UserInfo(userID string, scopes []string) (map[string]any, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidGrant
	}

	u, err := s.users.GetByID(id)
	if err != nil {
		return nil, ErrInvalidGrant
	}

	claims := auth.ProfileClaims(u, scopes)
	claims["sub"] = u.ID.String()
	return claims, nil
}

// SweepExpiredCodes deletes authorization codes past their expiry
func (s *Service) SweepExpiredCodes() (int64, error) {
	return s.codes.DeleteExpired(time.Now())
}

// lookupClient resolves a registration for the read-only authorize path,
// through the cache when one is wired, and maps registry errors onto
// protocol errors.
func (s *Service) lookupClient(clientID string) (*client.Client, error) {
	var (
		cl  *client.Client
		err error
	)
	if s.clientCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cl, err = s.clientCache.GetByClientID(ctx, clientID)
		if err == nil && !cl.Active {
			return nil, ErrClientNotActive
		}
	} else {
		cl, err = s.clients.GetByClientID(clientID)
	}

	if err != nil {
		switch {
		case errors.Is(err, client.ErrClientNotFound):
			return nil, ErrInvalidClientID
		case errors.Is(err, client.ErrClientNotActive):
			return nil, ErrClientNotActive
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return cl, nil
}

// authenticateClient maps credential errors onto protocol errors
func (s *Service) authenticateClient(clientID, secret string) (*client.Client, error) {
	cl, err := s.clients.Authenticate(clientID, secret)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrClientNotFound):
			return nil, ErrInvalidClientID
		case errors.Is(err, client.ErrClientNotActive):
			return nil, ErrClientNotActive
		case errors.Is(err, client.ErrInvalidClientSecret):
			return nil, ErrInvalidClientSecret
		}
		return nil, fmt.Errorf("failed to authenticate client: %w", err)
	}
	return cl, nil
}

// generateCode generates a cryptographically random authorization code
func generateCode() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
