package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleHealth handles health check requests.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"executor": "ok",
		},
	})
}

// handleExecutorState returns a read-only snapshot of the executor tables.
func (s *Server) handleExecutorState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data":      s.executor.Snapshot(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
