package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/logger"
	"go.uber.org/zap"
)

// slowRequestThreshold flags requests worth investigating.
const slowRequestThreshold = 2 * time.Second

// RequestLogger logs structured start/finish entries for every request and
// echoes the measured latency as X-Process-Time.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetString("request_id")
		method := c.Request.Method
		path := c.Request.URL.Path
		clientIP := c.ClientIP()

		logger.Log.Debug("request started",
			logger.WithRequestID(requestID),
			logger.WithIP(clientIP),
			zap.String("method", method),
			zap.String("path", path),
		)

		// The header must be in place before the first body write, so the
		// writer is wrapped rather than setting it after c.Next().
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: startTime}

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		fields := []zap.Field{
			logger.WithRequestID(requestID),
			logger.WithIP(clientIP),
			logger.WithStatus(statusCode),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Duration("latency", latency),
			zap.Int("response_size", c.Writer.Size()),
		}
		if latency > slowRequestThreshold {
			fields = append(fields, zap.Bool("slow", true))
		}

		switch {
		case statusCode >= 500:
			logger.Log.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}

// timingWriter injects X-Process-Time just before the response headers flush.
type timingWriter struct {
	gin.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *timingWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		elapsed := time.Since(w.start)
		w.Header().Set("X-Process-Time", fmt.Sprintf("%.6f", elapsed.Seconds()))
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *timingWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.Status())
	}
	return w.ResponseWriter.Write(data)
}
