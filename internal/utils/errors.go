package utils

import "github.com/gofiber/fiber/v2"

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string, status int) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// WithDetails returns a copy of the error carrying field-level detail
func (e *APIError) WithDetails(details any) *APIError {
	return &APIError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Details: details,
	}
}

// Common API errors. Authentication errors stay deliberately vague so
// responses cannot be used to enumerate accounts.
var (
	ErrInternalServer = NewAPIError("INTERNAL_ERROR", "An unexpected error occurred", fiber.StatusInternalServerError)
	ErrValidation     = NewAPIError("VALIDATION_ERROR", "Invalid request", fiber.StatusBadRequest)
	ErrAuthentication = NewAPIError("AUTHENTICATION_ERROR", "Authentication failed", fiber.StatusUnauthorized)
	ErrAuthorization  = NewAPIError("AUTHORIZATION_ERROR", "You do not have permission to access this resource", fiber.StatusForbidden)
	ErrConflict       = NewAPIError("CONFLICT_ERROR", "Resource already exists", fiber.StatusConflict)
	ErrRateLimited    = NewAPIError("RATE_LIMITED", "Too many requests", fiber.StatusTooManyRequests)
	ErrNotFound       = NewAPIError("NOT_FOUND", "Resource not found", fiber.StatusNotFound)
)
