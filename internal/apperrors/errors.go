package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the one error shape that crosses the service/pipeline boundary.
// Details carries structured context that is only rendered in development.
type APIError struct {
	Code       ErrorCode      `json:"error_code"`
	Message    string         `json:"message"`
	Field      string         `json:"field,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	RetryAfter int            `json:"retry_after,omitempty"`
	Status     int            `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails attaches a structured detail entry to the error
func (e *APIError) WithDetails(key string, value any) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// As extracts an *APIError from an error chain, or nil
func As(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// Validation creates a VALIDATION_ERROR (422) for a named field
func Validation(field, message string) *APIError {
	return &APIError{
		Code:    ErrValidation,
		Message: message,
		Field:   field,
		Status:  http.StatusUnprocessableEntity,
	}
}

// NotFound creates a NOT_FOUND error (404)
func NotFound(resource string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Unauthenticated creates an AUTHENTICATION_ERROR (401)
func Unauthenticated(message string) *APIError {
	if message == "" {
		message = "authentication required"
	}
	return &APIError{
		Code:    ErrAuthentication,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// Forbidden creates an AUTHORIZATION_ERROR (403)
func Forbidden(message string) *APIError {
	return &APIError{
		Code:    ErrAuthorization,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// Conflict creates a CONFLICT error (409)
func Conflict(message string) *APIError {
	return &APIError{
		Code:    ErrConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// BusinessRule creates a BUSINESS_LOGIC_ERROR (400)
func BusinessRule(message string) *APIError {
	return &APIError{
		Code:    ErrBusinessLogic,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// RateLimited creates a RATE_LIMITED error (429) carrying retry_after seconds
func RateLimited(retryAfter int) *APIError {
	return &APIError{
		Code:       ErrRateLimited,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
		Status:     http.StatusTooManyRequests,
	}
}

// ExternalService creates an EXTERNAL_SERVICE_ERROR (502)
func ExternalService(service string) *APIError {
	return &APIError{
		Code:    ErrExternalService,
		Message: fmt.Sprintf("%s is temporarily unavailable", service),
		Status:  http.StatusBadGateway,
	}
}

// Internal creates an INTERNAL_ERROR (500)
func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return &APIError{
		Code:    ErrInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}
