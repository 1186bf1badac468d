package server

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/nexauth/nexauth/internal/cache"
	"github.com/nexauth/nexauth/internal/config"
	"github.com/nexauth/nexauth/internal/database"
	"github.com/nexauth/nexauth/internal/domain/auth"
	"github.com/nexauth/nexauth/internal/domain/client"
	"github.com/nexauth/nexauth/internal/domain/oidc"
	"github.com/nexauth/nexauth/internal/domain/session"
	"github.com/nexauth/nexauth/internal/domain/user"
	"github.com/nexauth/nexauth/internal/ratelimit"
	"github.com/nexauth/nexauth/internal/validation"
)

// SetupRoutes initializes repositories, caches, services and handlers, then
// registers every route. It returns the background sweeper so the caller can
// run it for the lifetime of the process.
func SetupRoutes(app *fiber.App, envConfig *config.Environment, cfg *config.Config) (*Sweeper, error) {
	api := app.Group("/v1")

	// Repositories
	userRepo := user.NewRepository(database.DB)
	sessionRepo := session.NewRepository(database.DB)
	clientRepo := client.NewRepository(database.DB)
	codeRepo := oidc.NewRepository(database.DB)

	// Redis-backed caches, all optional at runtime
	revocationCache := cache.NewRevocationCache()
	rotationLedger := cache.NewRotationLedger()
	clientCache := cache.NewClientCache(clientRepo)

	// Core services
	userService := user.NewService(userRepo)
	sessionService := session.NewServiceWithCaches(sessionRepo, revocationCache, rotationLedger)
	clientService := client.NewService(clientRepo)

	// Keys are generated on the fly in development only; production must
	// ship real PEM material
	allowGenerate := envConfig.Environment != config.EnvironmentProduction
	keyStore, err := auth.LoadKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID, allowGenerate)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}

	activeKey, err := keyStore.GetActiveKey()
	if err != nil {
		return nil, fmt.Errorf("active key %s not found in key store: %w", cfg.Auth.ActiveKID, err)
	}
	keyID, _ := activeKey.KeyID()
	slog.Info("Active signing key loaded", "key_id", keyID)

	issuer := cfg.App.Issuer
	tokenIssuer := auth.NewTokenIssuer(keyStore, issuer, cfg.Auth.AccessTokenTTL, cfg.Auth.IDTokenTTL)

	loginLimiter := ratelimit.New("login", cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow)
	registerLimiter := ratelimit.New("register", cfg.RateLimit.RegisterMax, cfg.RateLimit.RegisterWindow)

	authService := auth.NewService(
		userService, sessionService, tokenIssuer, keyStore, revocationCache,
		loginLimiter, registerLimiter,
		cfg.Auth.SessionTTL, cfg.Auth.RememberMeTTL,
	)

	validator := validation.New()
	authHandler := auth.NewHandler(authService, validator)
	authMiddleware := auth.Middleware(keyStore, authService, issuer)

	oidcService := oidc.NewService(
		clientService, clientCache, codeRepo, sessionService, userService,
		tokenIssuer, authService,
		cfg.Auth.AuthCodeTTL, cfg.Auth.SessionTTL,
	)
	oidcHandler := oidc.NewHandler(oidcService, keyStore)

	// Direct auth endpoints
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/validate-session", authHandler.ValidateSession)
	authGroup.Get("/verify", authHandler.Verify)
	authGroup.Get("/me", authMiddleware, authHandler.Me)

	// OAuth2/OIDC endpoints
	oauthGroup := api.Group("/oauth")
	oauthGroup.Get("/authorize", authMiddleware, oidcHandler.Authorize)
	oauthGroup.Post("/token", oidcHandler.Token)
	oauthGroup.Get("/userinfo", authMiddleware, oidcHandler.UserInfo)
	oauthGroup.Post("/introspect", oidcHandler.Introspect)
	oauthGroup.Post("/revoke", oidcHandler.Revoke)

	// Discovery
	app.Get("/.well-known/openid-configuration", oidc.OpenIDConfigurationHandler(issuer))
	app.Get("/.well-known/jwks.json", oidcHandler.JWKS)

	app.Get("/health", healthHandler(cfg))

	return NewSweeper(sessionService, oidcService, cfg.Auth.SweepInterval), nil
}

// healthHandler reports liveness of the process and its dependencies
func healthHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		dbStatus := "ok"
		if err := database.Ping(); err != nil {
			dbStatus = "down"
			status = fiber.StatusServiceUnavailable
		}

		redisStatus := "disabled"
		if cfg.Redis.Enabled {
			if err := cache.Ping(c.UserContext()); err != nil {
				redisStatus = "down"
			} else {
				redisStatus = "ok"
			}
		}

		return c.Status(status).JSON(fiber.Map{
			"status":   dbStatus,
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}
