package util

import (
	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
)

// CurrentUserID returns the authenticated principal's id from the gin
// context, or (0, false) for anonymous requests.
func CurrentUserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// RequireUserID returns the principal's id or aborts with 401
func RequireUserID(c *gin.Context) (uint64, bool) {
	id, ok := CurrentUserID(c)
	if !ok {
		Fail(c, apperrors.Unauthenticated(""))
		return 0, false
	}
	return id, true
}
