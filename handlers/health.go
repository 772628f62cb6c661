package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tourneyhub/tourneyhub/client-core/internal/roles"
)

var startTime = time.Now()

// RegisterHealth adds GET /health (liveness) and GET /ready, which reports
// ready once bootstrap left the initializing phase.
func RegisterHealth(rg gin.IRoutes, phase func() roles.Phase) {
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(startTime).Round(time.Second).String()})
	})
	rg.GET("/ready", func(c *gin.Context) {
		p := phase()
		if p == roles.PhaseInitializing {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "bootstrapping", "phase": p.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "phase": p.String()})
	})
}
