package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/util"
)

var startTime = time.Now().UTC()

// Health handles GET /health. The cache being down degrades the status
// without failing it; the database being down fails it.
func (h *Handlers) Health(c *gin.Context) {
	dbStatus := "ok"
	status := http.StatusOK
	overall := "healthy"

	if err := database.Health(); err != nil {
		dbStatus = "unavailable"
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	cacheStatus := h.cache.Health(c.Request.Context())
	if overall == "healthy" && cacheStatus != "ok" {
		overall = "degraded"
	}

	util.Respond(c, status, overall, gin.H{
		"status":   overall,
		"database": dbStatus,
		"cache":    cacheStatus,
		"uptime":   time.Since(startTime).Round(time.Second).String(),
	})
}
