package oidc

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nexauth/nexauth/internal/domain/session"
)

// ExchangeCode implements the authorization_code grant. The client is
// authenticated first, the code binding is validated, and only then is the
// code consumed; a replayed code fails with invalid_grant.
func (s *Service) ExchangeCode(req *TokenRequest, ip, userAgent string) (*TokenResponse, error) {
	if req.GrantType != "authorization_code" {
		return nil, ErrUnsupportedGrantType
	}
	if req.Code == "" || req.RedirectURI == "" {
		return nil, ErrInvalidGrant
	}

	cl, err := s.authenticateClient(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	authCode, err := s.codes.FindByCode(req.Code)
	if err != nil {
		return nil, err
	}

	// Binding checks run before consumption so a mismatched request does
	// not burn the code
	if authCode.ClientID != req.ClientID {
		return nil, ErrInvalidGrant
	}
	if authCode.RedirectURI != req.RedirectURI {
		return nil, ErrInvalidRedirectURI
	}
	if time.Now().After(authCode.ExpiresAt) {
		return nil, ErrInvalidCode
	}

	if authCode.CodeChallenge != "" {
		if err := VerifyVerifier(req.CodeVerifier, authCode.CodeChallenge, authCode.ChallengeMeth); err != nil {
			return nil, err
		}
	} else if cl.Public {
		return nil, ErrPKCERequired
	}

	consumed, err := s.codes.Consume(req.Code)
	if err != nil {
		if errors.Is(err, ErrCodeAlreadyUsed) {
			slog.Warn("Authorization code replay detected",
				"client_id", req.ClientID, "user_id", authCode.UserID.String())
		}
		return nil, err
	}

	u, err := s.users.GetByID(consumed.UserID)
	if err != nil {
		return nil, ErrInvalidGrant
	}

	scopes := consumed.ScopeList()

	sess, _, refreshToken, err := s.sessions.Create(u.ID, consumed.Cluster, scopes, ip, userAgent, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, err := s.issuer.GenerateAccessToken(u, sess.ID.String(), consumed.Cluster, req.ClientID, scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	res := &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
		RefreshToken: refreshToken,
		Scope:        consumed.Scopes,
	}

	if slices.Contains(scopes, "openid") {
		idToken, err := s.issuer.GenerateIDToken(u, req.ClientID, consumed.Nonce, consumed.CreatedAt, scopes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate id token: %w", err)
		}
		res.IDToken = idToken
	}

	return res, nil
}

// RefreshGrant implements the refresh_token grant through single-use
// rotation. The old refresh token is dead after this call either way.
func (s *Service) RefreshGrant(req *TokenRequest) (*TokenResponse, error) {
	if req.GrantType != "refresh_token" {
		return nil, ErrUnsupportedGrantType
	}
	if req.RefreshToken == "" {
		return nil, ErrInvalidGrant
	}

	cl, err := s.authenticateClient(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	if !cl.AllowsGrantType("refresh_token") {
		return nil, ErrUnauthorizedClient
	}

	sess, _, newRefreshToken, err := s.sessions.Rotate(req.RefreshToken, s.sessionTTL)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) ||
			errors.Is(err, session.ErrExpiredSession) ||
			errors.Is(err, session.ErrReplayDetected) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	u, err := s.users.GetByID(sess.UserID)
	if err != nil {
		return nil, ErrInvalidGrant
	}

	scopes := sess.Scopes()

	accessToken, err := s.issuer.GenerateAccessToken(u, sess.ID.String(), sess.Cluster, req.ClientID, scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
		RefreshToken: newRefreshToken,
		Scope:        strings.Join(scopes, " "),
	}, nil
}

// Introspect implements RFC 7662 for authenticated clients. Anything that
// fails verification is reported as inactive rather than an error.
func (s *Service) Introspect(req *IntrospectRequest) (*IntrospectResponse, error) {
	if _, err := s.authenticateClient(req.ClientID, req.ClientSecret); err != nil {
		return nil, err
	}

	result, err := s.authService.Verify(req.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	if !result.Valid {
		return &IntrospectResponse{Active: false}, nil
	}

	claims := result.Claims
	return &IntrospectResponse{
		Active:    true,
		Scope:     claims.GetScope(),
		ClientID:  req.ClientID,
		Subject:   claims.Subject(),
		Audience:  strings.Join(claims.Audience(), " "),
		Issuer:    claims.Issuer(),
		TokenType: "Bearer",
		Cluster:   claims.GetCluster(),
		ExpiresAt: claims.Expiration().Unix(),
		IssuedAt:  claims.IssuedAt().Unix(),
		JTI:       claims.JTI(),
	}, nil
}

// Revoke implements RFC 7009. Unknown or already-revoked tokens are not an
// error; the client only learns that the token is no longer usable.
func (s *Service) Revoke(req *RevokeRequest) error {
	if _, err := s.authenticateClient(req.ClientID, req.ClientSecret); err != nil {
		return err
	}

	sess, err := s.sessions.RevokeByRefreshToken(req.Token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			return nil
		}
		return err
	}

	slog.Info("Refresh token revoked",
		"client_id", req.ClientID, "user_id", sess.UserID.String(), "cluster", sess.Cluster)
	return nil
}
