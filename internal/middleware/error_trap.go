package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/util"
	"go.uber.org/zap"
)

// ErrorTrap is the single place domain errors become HTTP. Handlers push
// errors via util.Fail; panics and unknown errors become a 500 with a
// deterministic error_id so the same fault can be found in the logs.
func ErrorTrap(development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				apiErr := apperrors.Internal("").
					WithDetails("error_id", errorID(c.Request.URL.Path, fmt.Sprint(r)))
				util.RespondAppError(c, apiErr, true)
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		if c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if apiErr := apperrors.As(err); apiErr != nil {
			util.RespondAppError(c, apiErr, development)
			return
		}

		id := errorID(c.Request.URL.Path, err.Error())
		logger.Error("unhandled error",
			zap.String("error_id", id),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		apiErr := apperrors.Internal("").WithDetails("error_id", id)
		util.RespondAppError(c, apiErr, true)
	}
}

// errorID hashes path+cause so repeated occurrences of one fault share an id.
func errorID(path, cause string) string {
	sum := sha256.Sum256([]byte(path + ":" + cause))
	return hex.EncodeToString(sum[:])[:16]
}
