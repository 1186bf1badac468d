package oidc

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nexauth/nexauth/internal/domain/auth"
	"github.com/nexauth/nexauth/internal/domain/client"
	"github.com/nexauth/nexauth/internal/domain/session"
	"github.com/nexauth/nexauth/internal/domain/user"
)

// MockClientService is a mock implementation of client.Service
type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) Register(req client.RegisterRequest) (*client.Client, string, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*client.Client), args.String(1), args.Error(2)
}

func (m *MockClientService) Authenticate(clientID, secret string) (*client.Client, error) {
	args := m.Called(clientID, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientService) GetByClientID(clientID string) (*client.Client, error) {
	args := m.Called(clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientService) GetByCluster(cluster string) (*client.Client, error) {
	args := m.Called(cluster)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientService) ListActive() ([]*client.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*client.Client), args.Error(1)
}

func (m *MockClientService) UpdateRedirectURIs(clientID string, uris []string) error {
	args := m.Called(clientID, uris)
	return args.Error(0)
}

func (m *MockClientService) SetActive(clientID string, active bool) error {
	args := m.Called(clientID, active)
	return args.Error(0)
}

// MockSessionService is a mock implementation of session.Service
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(userID uuid.UUID, cluster string, scopes []string, ip, userAgent string, ttl time.Duration) (*session.Session, string, string, error) {
	args := m.Called(userID, cluster, scopes, ip, userAgent, ttl)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*session.Session), args.String(1), args.String(2), args.Error(3)
}

func (m *MockSessionService) ValidateToken(sessionToken string) (*session.Session, error) {
	args := m.Called(sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) Rotate(refreshToken string, ttl time.Duration) (*session.Session, string, string, error) {
	args := m.Called(refreshToken, ttl)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*session.Session), args.String(1), args.String(2), args.Error(3)
}

func (m *MockSessionService) Delete(sessionToken string) error {
	args := m.Called(sessionToken)
	return args.Error(0)
}

func (m *MockSessionService) RevokeByRefreshToken(refreshToken string) (*session.Session, error) {
	args := m.Called(refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) RevokeAllForUserCluster(userID uuid.UUID, cluster string) error {
	args := m.Called(userID, cluster)
	return args.Error(0)
}

func (m *MockSessionService) SweepExpired() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// MockUserService is a mock implementation of user.Service
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(req user.RegisterRequest) (*user.User, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Authenticate(email, password string) (*user.User, error) {
	args := m.Called(email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetByID(id uuid.UUID) (*user.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) TouchLogin(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockUserService) Deactivate(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

// fakeCodeRepository is an in-memory Repository keyed by code
type fakeCodeRepository struct {
	codes map[string]*AuthorizationCode
}

func newFakeCodeRepository() *fakeCodeRepository {
	return &fakeCodeRepository{codes: make(map[string]*AuthorizationCode)}
}

func (f *fakeCodeRepository) Create(code *AuthorizationCode) error {
	cp := *code
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.codes[code.Code] = &cp
	return nil
}

func (f *fakeCodeRepository) FindByCode(code string) (*AuthorizationCode, error) {
	stored, ok := f.codes[code]
	if !ok {
		return nil, ErrInvalidCode
	}
	cp := *stored
	return &cp, nil
}

func (f *fakeCodeRepository) Consume(code string) (*AuthorizationCode, error) {
	stored, ok := f.codes[code]
	if !ok {
		return nil, ErrInvalidCode
	}
	if stored.Used {
		return nil, ErrCodeAlreadyUsed
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidCode
	}
	stored.Used = true
	cp := *stored
	return &cp, nil
}

func (f *fakeCodeRepository) DeleteExpired(before time.Time) (int64, error) {
	var n int64
	for code, stored := range f.codes {
		if stored.ExpiresAt.Before(before) {
			delete(f.codes, code)
			n++
		}
	}
	return n, nil
}

func newTestClient(public bool) *client.Client {
	c := &client.Client{
		ClientID:     "music-web",
		Name:         "Music Web",
		Cluster:      "music",
		RedirectURIs: []string{"https://music.example.com/callback"},
		Scopes:       []string{"openid", "profile", "email", "content"},
		GrantTypes:   []string{"authorization_code", "refresh_token"},
		Public:       public,
		Active:       true,
	}
	c.ID = uuid.New()
	return c
}

func newTestUser() *user.User {
	u := &user.User{
		Handle:         "alice",
		Email:          "alice@example.com",
		DisplayName:    "Alice",
		PrimaryCluster: "music",
		IsCreator:      true,
		Status:         user.StatusActive,
	}
	u.ID = uuid.New()
	return u
}

func newTestSession(userID uuid.UUID, cluster, scopes string) *session.Session {
	sess := &session.Session{
		UserID:        userID,
		Cluster:       cluster,
		GrantedScopes: scopes,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}
	sess.ID = uuid.New()
	return sess
}

type testEnv struct {
	clients  *MockClientService
	sessions *MockSessionService
	users    *MockUserService
	codes    *fakeCodeRepository
	keyStore *auth.KeyStore
	service  ServiceInterface
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ks, err := auth.LoadKeys(t.TempDir(), "2025-01", true)
	require.NoError(t, err)

	clients := new(MockClientService)
	sessions := new(MockSessionService)
	users := new(MockUserService)
	codes := newFakeCodeRepository()

	issuer := auth.NewTokenIssuer(ks, "https://auth.example.com", 15*time.Minute, time.Hour)
	authService := auth.NewService(users, sessions, issuer, ks, nil, nil, nil, 24*time.Hour, 720*time.Hour)

	svc := NewService(clients, nil, codes, sessions, users, issuer, authService, 10*time.Minute, 24*time.Hour)
	return &testEnv{
		clients:  clients,
		sessions: sessions,
		users:    users,
		codes:    codes,
		keyStore: ks,
		service:  svc,
	}
}

func validAuthorizeRequest() *AuthorizeRequest {
	return &AuthorizeRequest{
		ResponseType: "code",
		ClientID:     "music-web",
		RedirectURI:  "https://music.example.com/callback",
		Scope:        "openid profile",
		State:        "xyz",
		Nonce:        "n-0S6_WzA2Mj",
	}
}

func TestService_Authorize(t *testing.T) {
	t.Run("issues a code bound to the client cluster", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(newTestClient(false), nil)
		userID := uuid.New()

		res, err := env.service.Authorize(validAuthorizeRequest(), userID)

		require.NoError(t, err)
		assert.NotEmpty(t, res.Code)
		assert.Equal(t, "xyz", res.State)

		stored, err := env.codes.FindByCode(res.Code)
		require.NoError(t, err)
		assert.Equal(t, userID, stored.UserID)
		assert.Equal(t, "music", stored.Cluster)
		assert.Equal(t, "openid profile", stored.Scopes)
		assert.Equal(t, "n-0S6_WzA2Mj", stored.Nonce)
		assert.False(t, stored.Used)
	})

	t.Run("rejects non-code response types", func(t *testing.T) {
		env := newTestEnv(t)
		req := validAuthorizeRequest()
		req.ResponseType = "token"

		_, err := env.service.Authorize(req, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidResponseType)
	})

	t.Run("unknown client", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(nil, client.ErrClientNotFound)

		_, err := env.service.Authorize(validAuthorizeRequest(), uuid.New())
		assert.ErrorIs(t, err, ErrInvalidClientID)
	})

	t.Run("disabled client", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(nil, client.ErrClientNotActive)

		_, err := env.service.Authorize(validAuthorizeRequest(), uuid.New())
		assert.ErrorIs(t, err, ErrClientNotActive)
	})

	t.Run("unregistered redirect URI", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(newTestClient(false), nil)
		req := validAuthorizeRequest()
		req.RedirectURI = "https://evil.example.com/callback"

		_, err := env.service.Authorize(req, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidRedirectURI)
	})

	t.Run("scope outside the client allow-list", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(newTestClient(false), nil)
		req := validAuthorizeRequest()
		req.Scope = "openid admin"

		_, err := env.service.Authorize(req, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("client without the authorization_code grant", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		cl.GrantTypes = []string{"refresh_token"}
		env.clients.On("GetByClientID", "music-web").Return(cl, nil)

		_, err := env.service.Authorize(validAuthorizeRequest(), uuid.New())
		assert.ErrorIs(t, err, ErrUnauthorizedClient)
	})

	t.Run("public client requires PKCE", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(newTestClient(true), nil)

		_, err := env.service.Authorize(validAuthorizeRequest(), uuid.New())
		assert.ErrorIs(t, err, ErrPKCERequired)
	})

	t.Run("public client may not use plain PKCE", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(newTestClient(true), nil)
		req := validAuthorizeRequest()
		req.CodeChallenge = rfcVerifier
		req.CodeChallengeMethod = ChallengeMethodPlain

		_, err := env.service.Authorize(req, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidCodeChallengeMethod)
	})

	t.Run("public client with S256 succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("GetByClientID", "music-web").Return(newTestClient(true), nil)
		req := validAuthorizeRequest()
		req.CodeChallenge = rfcChallenge
		req.CodeChallengeMethod = ChallengeMethodS256

		res, err := env.service.Authorize(req, uuid.New())
		require.NoError(t, err)

		stored, err := env.codes.FindByCode(res.Code)
		require.NoError(t, err)
		assert.Equal(t, rfcChallenge, stored.CodeChallenge)
		assert.Equal(t, ChallengeMethodS256, stored.ChallengeMeth)
	})
}

func issueCode(t *testing.T, env *testEnv, cl *client.Client, userID uuid.UUID, req *AuthorizeRequest) string {
	t.Helper()
	env.clients.On("GetByClientID", cl.ClientID).Return(cl, nil)
	res, err := env.service.Authorize(req, userID)
	require.NoError(t, err)
	return res.Code
}

func validTokenRequest(code string) *TokenRequest {
	return &TokenRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  "https://music.example.com/callback",
		ClientID:     "music-web",
		ClientSecret: "shhh",
	}
}

func TestService_ExchangeCode(t *testing.T) {
	t.Run("full exchange with openid scope mints an ID token", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		u := newTestUser()
		code := issueCode(t, env, cl, u.ID, validAuthorizeRequest())

		env.clients.On("Authenticate", "music-web", "shhh").Return(cl, nil)
		env.users.On("GetByID", u.ID).Return(u, nil)
		env.sessions.On("Create", u.ID, "music", []string{"openid", "profile"}, "1.2.3.4", "agent", 24*time.Hour).
			Return(newTestSession(u.ID, "music", "openid profile"), "sess-token", "refresh-token", nil)

		res, err := env.service.ExchangeCode(validTokenRequest(code), "1.2.3.4", "agent")

		require.NoError(t, err)
		assert.Equal(t, "Bearer", res.TokenType)
		assert.Equal(t, "refresh-token", res.RefreshToken)
		assert.Equal(t, "openid profile", res.Scope)
		require.NotEmpty(t, res.IDToken)

		claims, err := env.keyStore.Verify(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.Subject())
		assert.Equal(t, []string{"music-web"}, claims.Audience())
		assert.Equal(t, "music", claims.GetCluster())

		idClaims, err := env.keyStore.Verify(res.IDToken)
		require.NoError(t, err)
		var nonce any
		require.NoError(t, idClaims.Token.Get("nonce", &nonce))
		assert.Equal(t, "n-0S6_WzA2Mj", nonce)
	})

	t.Run("no ID token without the openid scope", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		u := newTestUser()
		authReq := validAuthorizeRequest()
		authReq.Scope = "profile"
		code := issueCode(t, env, cl, u.ID, authReq)

		env.clients.On("Authenticate", "music-web", "shhh").Return(cl, nil)
		env.users.On("GetByID", u.ID).Return(u, nil)
		env.sessions.On("Create", u.ID, "music", []string{"profile"}, mock.Anything, mock.Anything, mock.Anything).
			Return(newTestSession(u.ID, "music", "profile"), "s", "r", nil)

		res, err := env.service.ExchangeCode(validTokenRequest(code), "", "")

		require.NoError(t, err)
		assert.Empty(t, res.IDToken)
	})

	t.Run("a code is single use", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		u := newTestUser()
		code := issueCode(t, env, cl, u.ID, validAuthorizeRequest())

		env.clients.On("Authenticate", "music-web", "shhh").Return(cl, nil)
		env.users.On("GetByID", u.ID).Return(u, nil)
		env.sessions.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(newTestSession(u.ID, "music", "openid profile"), "s", "r", nil)

		_, err := env.service.ExchangeCode(validTokenRequest(code), "", "")
		require.NoError(t, err)

		_, err = env.service.ExchangeCode(validTokenRequest(code), "", "")
		assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
	})

	t.Run("mismatched redirect URI does not burn the code", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		u := newTestUser()
		code := issueCode(t, env, cl, u.ID, validAuthorizeRequest())

		env.clients.On("Authenticate", "music-web", "shhh").Return(cl, nil)
		env.users.On("GetByID", u.ID).Return(u, nil)
		env.sessions.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(newTestSession(u.ID, "music", "openid profile"), "s", "r", nil)

		bad := validTokenRequest(code)
		bad.RedirectURI = "https://other.example.com/callback"
		_, err := env.service.ExchangeCode(bad, "", "")
		assert.ErrorIs(t, err, ErrInvalidRedirectURI)

		// The untouched code still exchanges
		_, err = env.service.ExchangeCode(validTokenRequest(code), "", "")
		assert.NoError(t, err)
	})

	t.Run("mismatched client does not burn the code", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		u := newTestUser()
		code := issueCode(t, env, cl, u.ID, validAuthorizeRequest())

		other := newTestClient(false)
		other.ClientID = "video-web"
		env.clients.On("Authenticate", "video-web", "shhh").Return(other, nil)

		bad := validTokenRequest(code)
		bad.ClientID = "video-web"
		_, err := env.service.ExchangeCode(bad, "", "")
		assert.ErrorIs(t, err, ErrInvalidGrant)

		stored, err := env.codes.FindByCode(code)
		require.NoError(t, err)
		assert.False(t, stored.Used)
	})

	t.Run("PKCE verifier is enforced when a challenge is bound", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(true)
		u := newTestUser()
		authReq := validAuthorizeRequest()
		authReq.CodeChallenge = rfcChallenge
		authReq.CodeChallengeMethod = ChallengeMethodS256
		code := issueCode(t, env, cl, u.ID, authReq)

		env.clients.On("Authenticate", "music-web", "").Return(cl, nil)
		env.users.On("GetByID", u.ID).Return(u, nil)
		env.sessions.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(newTestSession(u.ID, "music", "openid profile"), "s", "r", nil)

		req := validTokenRequest(code)
		req.ClientSecret = ""
		req.CodeVerifier = "wrong-verifier-wrong-verifier-wrong-verifier"
		_, err := env.service.ExchangeCode(req, "", "")
		assert.ErrorIs(t, err, ErrInvalidCodeVerifier)

		req.CodeVerifier = rfcVerifier
		_, err = env.service.ExchangeCode(req, "", "")
		assert.NoError(t, err)
	})

	t.Run("unknown code", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("Authenticate", "music-web", "shhh").Return(newTestClient(false), nil)

		_, err := env.service.ExchangeCode(validTokenRequest("never-issued"), "", "")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("wrong grant type", func(t *testing.T) {
		env := newTestEnv(t)
		req := validTokenRequest("whatever")
		req.GrantType = "client_credentials"

		_, err := env.service.ExchangeCode(req, "", "")
		assert.ErrorIs(t, err, ErrUnsupportedGrantType)
	})

	t.Run("bad client secret", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("Authenticate", "music-web", "shhh").Return(nil, client.ErrInvalidClientSecret)

		_, err := env.service.ExchangeCode(validTokenRequest("whatever"), "", "")
		assert.ErrorIs(t, err, ErrInvalidClientSecret)
	})
}

func TestService_RefreshGrant(t *testing.T) {
	refreshReq := &TokenRequest{
		GrantType:    "refresh_token",
		ClientID:     "music-web",
		ClientSecret: "shhh",
		RefreshToken: "old-refresh",
	}

	t.Run("rotation issues fresh tokens", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		u := newTestUser()

		env.clients.On("Authenticate", "music-web", "shhh").Return(cl, nil)
		env.sessions.On("Rotate", "old-refresh", 24*time.Hour).
			Return(newTestSession(u.ID, "music", "openid profile"), "new-sess", "new-refresh", nil)
		env.users.On("GetByID", u.ID).Return(u, nil)

		res, err := env.service.RefreshGrant(refreshReq)

		require.NoError(t, err)
		assert.Equal(t, "new-refresh", res.RefreshToken)
		assert.Equal(t, "openid profile", res.Scope)

		claims, err := env.keyStore.Verify(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, []string{"music-web"}, claims.Audience())
	})

	t.Run("replayed refresh token maps to invalid_grant", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("Authenticate", "music-web", "shhh").Return(newTestClient(false), nil)
		env.sessions.On("Rotate", "old-refresh", mock.Anything).
			Return(nil, "", "", session.ErrReplayDetected)

		_, err := env.service.RefreshGrant(refreshReq)
		assert.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("client without the refresh_token grant", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		cl.GrantTypes = []string{"authorization_code"}
		env.clients.On("Authenticate", "music-web", "shhh").Return(cl, nil)

		_, err := env.service.RefreshGrant(refreshReq)
		assert.ErrorIs(t, err, ErrUnauthorizedClient)
	})
}

func TestService_Introspect(t *testing.T) {
	t.Run("live token reports full claims", func(t *testing.T) {
		env := newTestEnv(t)
		cl := newTestClient(false)
		u := newTestUser()
		env.clients.On("Authenticate", "music-web", "shhh").Return(cl, nil)
		env.users.On("GetByID", u.ID).Return(u, nil)

		issuer := auth.NewTokenIssuer(env.keyStore, "https://auth.example.com", 15*time.Minute, time.Hour)
		signed, err := issuer.GenerateAccessToken(u, "sess-1", "music", "music-web", []string{"openid", "profile"})
		require.NoError(t, err)

		res, err := env.service.Introspect(&IntrospectRequest{Token: signed, ClientID: "music-web", ClientSecret: "shhh"})

		require.NoError(t, err)
		assert.True(t, res.Active)
		assert.Equal(t, u.ID.String(), res.Subject)
		assert.Equal(t, "openid profile", res.Scope)
		assert.Equal(t, "music", res.Cluster)
		assert.NotEmpty(t, res.JTI)
	})

	t.Run("garbage token reports inactive", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("Authenticate", "music-web", "shhh").Return(newTestClient(false), nil)

		res, err := env.service.Introspect(&IntrospectRequest{Token: "garbage", ClientID: "music-web", ClientSecret: "shhh"})

		require.NoError(t, err)
		assert.False(t, res.Active)
	})

	t.Run("unauthenticated client gets an error, not a claim set", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("Authenticate", "music-web", "wrong").Return(nil, client.ErrInvalidClientSecret)

		_, err := env.service.Introspect(&IntrospectRequest{Token: "whatever", ClientID: "music-web", ClientSecret: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidClientSecret)
	})
}

func TestService_Revoke(t *testing.T) {
	t.Run("known refresh token is revoked", func(t *testing.T) {
		env := newTestEnv(t)
		u := newTestUser()
		env.clients.On("Authenticate", "music-web", "shhh").Return(newTestClient(false), nil)
		env.sessions.On("RevokeByRefreshToken", "refresh-token").Return(newTestSession(u.ID, "music", ""), nil)

		err := env.service.Revoke(&RevokeRequest{Token: "refresh-token", ClientID: "music-web", ClientSecret: "shhh"})
		assert.NoError(t, err)
		env.sessions.AssertExpectations(t)
	})

	t.Run("unknown token is not an error", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("Authenticate", "music-web", "shhh").Return(newTestClient(false), nil)
		env.sessions.On("RevokeByRefreshToken", "unknown").Return(nil, session.ErrInvalidSession)

		err := env.service.Revoke(&RevokeRequest{Token: "unknown", ClientID: "music-web", ClientSecret: "shhh"})
		assert.NoError(t, err)
	})

	t.Run("client authentication failures surface", func(t *testing.T) {
		env := newTestEnv(t)
		env.clients.On("Authenticate", "music-web", "wrong").Return(nil, client.ErrInvalidClientSecret)

		err := env.service.Revoke(&RevokeRequest{Token: "whatever", ClientID: "music-web", ClientSecret: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidClientSecret)
	})
}

func TestService_SweepExpiredCodes(t *testing.T) {
	env := newTestEnv(t)
	env.clients.On("GetByClientID", "music-web").Return(newTestClient(false), nil)

	_, err := env.service.Authorize(validAuthorizeRequest(), uuid.New())
	require.NoError(t, err)

	expired := &AuthorizationCode{
		Code:        "expired-code",
		ClientID:    "music-web",
		UserID:      uuid.New(),
		Cluster:     "music",
		RedirectURI: "https://music.example.com/callback",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	require.NoError(t, env.codes.Create(expired))

	n, err := env.service.SweepExpiredCodes()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
