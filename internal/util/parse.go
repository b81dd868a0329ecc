package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
)

// PageParams reads ?page and ?limit with defaults and a hard cap.
func PageParams(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// IDParam parses a numeric path parameter, failing the request with 422
// when it is not a positive integer.
func IDParam(c *gin.Context, name string) (uint64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		Fail(c, apperrors.Validation(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// QueryUint parses an optional numeric query parameter.
func QueryUint(c *gin.Context, name string) (uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// QueryFloat parses an optional float query parameter.
func QueryFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
