package auth

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nexauth/nexauth/internal/domain/session"
	"github.com/nexauth/nexauth/internal/domain/user"
	"github.com/nexauth/nexauth/internal/ratelimit"
	"github.com/nexauth/nexauth/internal/utils"
	"github.com/nexauth/nexauth/internal/validation"
)

type Handler struct {
	authService AuthService
	validator   *validation.Validator
}

func NewHandler(s AuthService, v *validation.Validator) *Handler {
	return &Handler{
		authService: s,
		validator:   v,
	}
}

// sessionTokenRequest carries an opaque session token in the body
type sessionTokenRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req user.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest)
	}
	if err := h.validator.Validate(req); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
	}

	res, err := h.authService.Register(req, c.IP(), c.Get("User-Agent"))
	if err != nil {
		return h.mapError(c, err)
	}

	return utils.SuccessResponse(c, res, "User registered successfully", fiber.StatusCreated)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest)
	}
	if err := h.validator.Validate(req); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
	}

	res, err := h.authService.Login(req, c.IP(), c.Get("User-Agent"))
	if err != nil {
		return h.mapError(c, err)
	}

	return utils.SuccessResponse(c, res, "Login successful")
}

// Logout deletes the caller's session. Unknown tokens still return 200 so
// the operation stays idempotent.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req sessionTokenRequest
	if err := c.BodyParser(&req); err != nil || req.SessionToken == "" {
		return utils.ErrorResponse(c, "session_token is required", fiber.StatusBadRequest)
	}

	if err := h.authService.Logout(req.SessionToken); err != nil {
		slog.Warn("Logout failed", "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer.Message, fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, nil, "Logged out")
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest)
	}
	if err := h.validator.Validate(req); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
	}

	res, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		return h.mapError(c, err)
	}

	return utils.SuccessResponse(c, res, "Token refreshed")
}

// Me returns the profile of the authenticated caller
func (h *Handler) Me(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, utils.ErrAuthentication.Message, fiber.StatusUnauthorized)
	}

	profile, err := h.authService.GetProfile(identity.UserID)
	if err != nil {
		return h.mapError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user":        profile,
		"cluster":     identity.Cluster,
		"role":        identity.Role,
		"permissions": identity.Permissions,
	}, "User information retrieved successfully")
}

// Verify checks a bearer token without requiring middleware, so relying
// parties can probe tokens directly. Invalid tokens yield valid=false with
// a 200 status.
func (h *Handler) Verify(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return utils.ErrorResponse(c, ErrMissingAuthorizationHeader.Error(), fiber.StatusUnauthorized)
	}

	result, err := h.authService.Verify(parts[1])
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrInternalServer.Message, fiber.StatusInternalServerError)
	}

	if !result.Valid {
		return utils.SuccessResponse(c, fiber.Map{"valid": false}, "Token is not valid")
	}

	return utils.SuccessResponse(c, fiber.Map{
		"valid":       true,
		"user":        result.User,
		"cluster":     result.Claims.GetCluster(),
		"role":        result.Claims.GetRole(),
		"permissions": result.Claims.GetPermissions(),
		"expires_at":  result.Claims.Expiration().Unix(),
	}, "Token is valid")
}

// ValidateSession resolves an opaque session token for first-party callers
func (h *Handler) ValidateSession(c *fiber.Ctx) error {
	var req sessionTokenRequest
	if err := c.BodyParser(&req); err != nil || req.SessionToken == "" {
		return utils.ErrorResponse(c, "session_token is required", fiber.StatusBadRequest)
	}

	sess, owner, err := h.authService.ValidateSession(req.SessionToken)
	if err != nil {
		return h.mapError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user":         owner,
		"cluster":      sess.Cluster,
		"scopes":       sess.Scopes(),
		"expires_at":   sess.ExpiresAt.Unix(),
		"last_used_at": sess.LastUsedAt.Unix(),
	}, "Session is valid")
}

// mapError translates domain errors into HTTP responses. Credential
// failures stay non-specific so the API cannot be used to enumerate
// accounts.
func (h *Handler) mapError(c *fiber.Ctx, err error) error {
	var limitErr *ratelimit.LimitExceededError
	if errors.As(err, &limitErr) {
		c.Set("Retry-After", strconv.Itoa(limitErr.RetryAfterSeconds()))
		return utils.ErrorResponse(c, utils.ErrRateLimited.Message, fiber.StatusTooManyRequests)
	}

	switch {
	case errors.Is(err, user.ErrEmailExists), errors.Is(err, user.ErrHandleExists):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict)
	case errors.Is(err, user.ErrWeakPassword),
		errors.Is(err, user.ErrInvalidHandle),
		errors.Is(err, user.ErrTermsNotAccepted):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrAccountNotActive):
		return utils.ErrorResponse(c, utils.ErrAuthentication.Message, fiber.StatusUnauthorized)
	case errors.Is(err, user.ErrUserNotFound):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusNotFound)
	case errors.Is(err, session.ErrReplayDetected),
		errors.Is(err, session.ErrInvalidSession),
		errors.Is(err, session.ErrExpiredSession):
		return utils.ErrorResponse(c, utils.ErrAuthentication.Message, fiber.StatusUnauthorized)
	}

	slog.Error("Unhandled auth error", "error", err)
	return utils.ErrorResponse(c, utils.ErrInternalServer.Message, fiber.StatusInternalServerError)
}
