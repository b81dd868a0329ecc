package util

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/logger"
	"go.uber.org/zap"
)

// Envelope is the uniform response shape. Every endpoint, success or
// failure, returns this; paginated lists add a Pagination block.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ErrorBody is the error half of the envelope
type ErrorBody struct {
	Code    string         `json:"error_code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Pagination describes a page of a larger result set
type Pagination struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// NewPagination derives page math from a total count
func NewPagination(total int64, page, perPage int) *Pagination {
	if perPage < 1 {
		perPage = 20
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Pagination{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// Respond sends a success envelope
func Respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// RespondPage sends a success envelope with pagination metadata
func RespondPage(c *gin.Context, message string, data any, p *Pagination) {
	c.JSON(http.StatusOK, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: p,
		Timestamp:  time.Now().UTC(),
	})
}

// RespondAppError renders an APIError as the error envelope. Server faults
// log at error level, client faults at warn. Details are stripped outside
// development mode by the caller (the error trap middleware).
func RespondAppError(c *gin.Context, apiErr *apperrors.APIError, includeDetails bool) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("API error",
			zap.String("error_code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", apiErr.Status),
		)
	} else {
		logger.Warn("API error",
			zap.String("error_code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	body := &ErrorBody{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
	}
	if includeDetails {
		body.Details = apiErr.Details
	}

	if apiErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(apiErr.RetryAfter))
		if body.Details == nil {
			body.Details = map[string]any{}
		}
		body.Details["retry_after"] = apiErr.RetryAfter
	}

	c.JSON(apiErr.Status, Envelope{
		Success:   false,
		Message:   apiErr.Message,
		Error:     body,
		Timestamp: time.Now().UTC(),
	})
}

// Fail aborts the request and hands the error to the trap middleware,
// which owns the HTTP translation.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
