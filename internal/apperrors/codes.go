package apperrors

import "net/http"

// ErrorCode identifies the kind of failure. The set is closed: domain code
// raises one of these and the pipeline translates it to HTTP exactly once.
type ErrorCode string

const (
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrAuthorization   ErrorCode = "AUTHORIZATION_ERROR"
	ErrConflict        ErrorCode = "CONFLICT"
	ErrBusinessLogic   ErrorCode = "BUSINESS_LOGIC_ERROR"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrValidation:      http.StatusUnprocessableEntity,
	ErrNotFound:        http.StatusNotFound,
	ErrAuthentication:  http.StatusUnauthorized,
	ErrAuthorization:   http.StatusForbidden,
	ErrConflict:        http.StatusConflict,
	ErrBusinessLogic:   http.StatusBadRequest,
	ErrRateLimited:     http.StatusTooManyRequests,
	ErrExternalService: http.StatusBadGateway,
	ErrInternal:        http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
