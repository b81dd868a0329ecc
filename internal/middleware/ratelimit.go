package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/metrics"
	"github.com/reviewinn/backend/internal/ratelimit"
	"github.com/reviewinn/backend/internal/util"
)

// RateLimitIP applies the IP-scoped bucket before any authentication work.
func RateLimitIP(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Allow(c.Request.Context(), ratelimit.ScopeIP, c.ClientIP(), c.Request.URL.Path)
		applyResult(c, result, ratelimit.ScopeIP)
	}
}

// RateLimitUser re-checks the authenticated principal's bucket. Anonymous
// requests pass through; the IP bucket already covered them.
func RateLimitUser(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := util.CurrentUserID(c)
		if !ok {
			c.Next()
			return
		}
		result := limiter.Allow(c.Request.Context(), ratelimit.ScopeUser, strconv.FormatUint(userID, 10), c.Request.URL.Path)
		applyResult(c, result, ratelimit.ScopeUser)
	}
}

func applyResult(c *gin.Context, result ratelimit.Result, scope string) {
	c.Header("X-Rate-Limit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-Rate-Limit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-Rate-Limit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

	if !result.Allowed {
		metrics.RecordRateLimitExceeded(scope, c.Request.URL.Path)
		util.Fail(c, apperrors.RateLimited(result.RetryAfter))
		return
	}
	c.Next()
}
