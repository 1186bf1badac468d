package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/nexauth/nexauth/internal/cache"
	"github.com/nexauth/nexauth/internal/config"
	"github.com/nexauth/nexauth/internal/database"
	"github.com/nexauth/nexauth/internal/migrations"
	"github.com/nexauth/nexauth/internal/ratelimit"
	"github.com/nexauth/nexauth/internal/utils"
)

// Start wires the whole service together and blocks until SIGINT or SIGTERM.
// Redis being down degrades caching and rate limiting but is not fatal; the
// database is required.
func Start(cfg *config.Config, envConfig *config.Environment) error {
	initLogger(cfg.Logging.Level)

	if err := database.ConnectDB(&cfg.Database); err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()
	slog.Info("Database connected successfully")

	if err := migrations.RunMigrations(cfg); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	if cfg.Redis.Enabled {
		if err := cache.ConnectRedis(&cfg.Redis); err != nil {
			slog.Warn("Redis unavailable, running without revocation cache and shared rate limits", "error", err)
		} else {
			defer cache.CloseRedis()
		}
	}

	app := newApp(cfg)

	sweeper, err := SetupRoutes(app, envConfig, cfg)
	if err != nil {
		slog.Error("Failed to setup routes", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Server.Address()
		slog.Info("Server starting", "address", addr, "app", cfg.App.Name)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		slog.Error("Server stopped unexpectedly", "error", err)
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Warn("Graceful shutdown failed", "error", err)
		return err
	}

	return nil
}

// newApp builds the Fiber app with security headers, CORS and a coarse
// global rate limit in front of the per-endpoint credential limiters.
func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.Server.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var limitErr *ratelimit.LimitExceededError
			if errors.As(err, &limitErr) {
				c.Set("Retry-After", strconv.Itoa(limitErr.RetryAfterSeconds()))
				return utils.ErrorResponse(c, utils.ErrRateLimited.Message, fiber.StatusTooManyRequests)
			}

			var apiErr *utils.APIError
			if errors.As(err, &apiErr) {
				return c.Status(apiErr.Status).JSON(fiber.Map{
					"success": false,
					"error":   apiErr.Message,
					"code":    apiErr.Code,
				})
			}

			var e *fiber.Error
			if errors.As(err, &e) {
				return utils.ErrorResponse(c, e.Message, e.Code)
			}

			slog.Error("Unhandled error", "error", err, "path", c.Path())
			return utils.ErrorResponse(c, utils.ErrInternalServer.Message, fiber.StatusInternalServerError)
		},
	})

	app.Use(helmet.New())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.GlobalMax,
		Expiration: cfg.RateLimit.GlobalWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, utils.ErrRateLimited.Message, fiber.StatusTooManyRequests)
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.CORSOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		ExposeHeaders:    "Content-Length,Retry-After",
		MaxAge:           3600,
	}))

	return app
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
