package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nexauth/nexauth/internal/cache"
	"github.com/nexauth/nexauth/internal/domain/session"
	"github.com/nexauth/nexauth/internal/domain/user"
	"github.com/nexauth/nexauth/internal/ratelimit"
)

// defaultScopes are granted to first-party logins that skip the
// authorization-code flow.
var defaultScopes = []string{"openid", "profile", "email"}

// LoginRequest represents the input for a direct login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Cluster    string `json:"cluster" validate:"max=50"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshRequest represents the input for a token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse carries the full token set issued on login or registration
type AuthResponse struct {
	User         *user.UserResponse `json:"user"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	SessionToken string             `json:"session_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int                `json:"expires_in"`
}

// VerifyResult is the outcome of a pure token verification
type VerifyResult struct {
	Valid  bool
	User   *user.UserResponse
	Claims *AccessTokenClaims
}

// AuthService drives registration, login, logout and token refresh
type AuthService interface {
	Register(req user.RegisterRequest, ip, userAgent string) (*AuthResponse, error)
	Login(req LoginRequest, ip, userAgent string) (*AuthResponse, error)
	Logout(sessionToken string) error
	Refresh(refreshToken string) (*AuthResponse, error)
	Verify(tokenString string) (*VerifyResult, error)
	GetProfile(userID string) (*user.UserResponse, error)
	ValidateSession(sessionToken string) (*session.Session, *user.UserResponse, error)
	IsTokenRevoked(claims *AccessTokenClaims) bool
}

// Service composes the credential store, session manager and token issuer
type Service struct {
	users           user.Service
	sessions        session.Service
	issuer          *TokenIssuer
	keyStore        *KeyStore
	revocationCache *cache.RevocationCache
	loginLimiter    *ratelimit.Limiter
	registerLimiter *ratelimit.Limiter
	sessionTTL      time.Duration
	rememberMeTTL   time.Duration
}

// NewService constructs the auth orchestrator. Limiters and the revocation
// cache may be nil, which disables the respective checks.
func NewService(
	users user.Service,
	sessions session.Service,
	issuer *TokenIssuer,
	keyStore *KeyStore,
	revocationCache *cache.RevocationCache,
	loginLimiter, registerLimiter *ratelimit.Limiter,
	sessionTTL, rememberMeTTL time.Duration,
) *Service {
	return &Service{
		users:           users,
		sessions:        sessions,
		issuer:          issuer,
		keyStore:        keyStore,
		revocationCache: revocationCache,
		loginLimiter:    loginLimiter,
		registerLimiter: registerLimiter,
		sessionTTL:      sessionTTL,
		rememberMeTTL:   rememberMeTTL,
	}
}

func (s *Service) Register(req user.RegisterRequest, ip, userAgent string) (*AuthResponse, error) {
	if s.registerLimiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if allowed, retryAfter := s.registerLimiter.Allow(ctx, ip); !allowed {
			return nil, &ratelimit.LimitExceededError{RetryAfter: retryAfter}
		}
		// Registrations count per attempt, not per failure
		s.registerLimiter.RecordFailure(ctx, ip)
	}

	u, err := s.users.Register(req)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(u, u.PrimaryCluster, defaultScopes, ip, userAgent, s.sessionTTL)
}

func (s *Service) Login(req LoginRequest, ip, userAgent string) (*AuthResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.loginLimiter != nil {
		if allowed, retryAfter := s.loginLimiter.Allow(ctx, ip); !allowed {
			slog.Warn("Login rate limit exceeded", "ip", ip)
			return nil, &ratelimit.LimitExceededError{RetryAfter: retryAfter}
		}
	}

	u, err := s.users.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) && s.loginLimiter != nil {
			s.loginLimiter.RecordFailure(ctx, ip)
		}
		return nil, err
	}

	cluster := req.Cluster
	if cluster == "" {
		cluster = u.PrimaryCluster
	}

	ttl := s.sessionTTL
	if req.RememberMe {
		ttl = s.rememberMeTTL
	}

	if err := s.users.TouchLogin(u.ID); err != nil {
		slog.Warn("Failed to update last login", "error", err, "user_id", u.ID.String())
	}

	return s.issueTokens(u, cluster, defaultScopes, ip, userAgent, ttl)
}

func (s *Service) issueTokens(u *user.User, cluster string, scopes []string, ip, userAgent string, ttl time.Duration) (*AuthResponse, error) {
	sess, sessionToken, refreshToken, err := s.sessions.Create(u.ID, cluster, scopes, ip, userAgent, ttl)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.issuer.GenerateAccessToken(u, sess.ID.String(), cluster, cluster, scopes)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         u.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionToken: sessionToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// Logout deletes the backing session. Logging out twice is not an error.
func (s *Service) Logout(sessionToken string) error {
	return s.sessions.Delete(sessionToken)
}

// Refresh rotates the single-use refresh token and mints a fresh token set
func (s *Service) Refresh(refreshToken string) (*AuthResponse, error) {
	sess, sessionToken, newRefreshToken, err := s.sessions.Rotate(refreshToken, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(sess.UserID)
	if err != nil {
		// Session points at a user that is gone or inactive; drop it
		if delErr := s.sessions.Delete(sessionToken); delErr != nil {
			slog.Warn("Failed to drop orphaned session", "error", delErr)
		}
		return nil, user.ErrAccountNotActive
	}

	accessToken, err := s.issuer.GenerateAccessToken(u, sess.ID.String(), sess.Cluster, sess.Cluster, sess.Scopes())
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         u.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		SessionToken: sessionToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// Verify checks a token's signature, expiry and subject. An invalid token
// yields Valid=false with a nil error; errors are reserved for
// infrastructure failures.
func (s *Service) Verify(tokenString string) (*VerifyResult, error) {
	claims, err := s.keyStore.Verify(tokenString)
	if err != nil {
		return &VerifyResult{Valid: false}, nil
	}

	if err := claims.Validate(s.issuer.Issuer(), nil); err != nil {
		return &VerifyResult{Valid: false}, nil
	}

	if s.IsTokenRevoked(claims) {
		return &VerifyResult{Valid: false}, nil
	}

	userID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return &VerifyResult{Valid: false}, nil
	}

	u, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return &VerifyResult{Valid: false}, nil
		}
		return nil, err
	}

	return &VerifyResult{
		Valid:  true,
		User:   u.ToResponse(),
		Claims: claims,
	}, nil
}

func (s *Service) GetProfile(userID string) (*user.UserResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, user.ErrUserNotFound
	}
	u, err := s.users.GetByID(id)
	if err != nil {
		return nil, err
	}
	return u.ToResponse(), nil
}

// ValidateSession resolves an opaque session token to its session and owner
func (s *Service) ValidateSession(sessionToken string) (*session.Session, *user.UserResponse, error) {
	sess, err := s.sessions.ValidateToken(sessionToken)
	if err != nil {
		return nil, nil, err
	}

	u, err := s.users.GetByID(sess.UserID)
	if err != nil {
		return nil, nil, session.ErrInvalidSession
	}

	return sess, u.ToResponse(), nil
}

// IsTokenRevoked consults the revocation cache for the token's session ID.
// Without Redis the check is skipped and short expiry bounds the exposure.
func (s *Service) IsTokenRevoked(claims *AccessTokenClaims) bool {
	if s.revocationCache == nil {
		return false
	}

	sid := claims.GetSid()
	if sid == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.revocationCache.IsRevoked(ctx, sid)
}
