package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/util"
)

// Middleware requires a valid bearer token and places the principal on the
// request state for downstream handlers.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := s.bearerClaims(c)
		if !ok {
			util.Fail(c, apperrors.Unauthenticated("missing or invalid credentials"))
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

// OptionalMiddleware resolves the principal when a token is present but
// lets anonymous requests through.
func (s *Service) OptionalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := s.bearerClaims(c); ok {
			c.Set("user_id", claims.UserID)
			c.Set("user_role", claims.Role)
		}
		c.Next()
	}
}

func (s *Service) bearerClaims(c *gin.Context) (*Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, false
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}
