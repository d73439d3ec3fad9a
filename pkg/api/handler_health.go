package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readyCheckTimeout = 5 * time.Second

// handleHealth is the liveness probe: always 200 while the process serves.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
	})
}

// handleReady is the readiness probe: the checkpoint store must be reachable
// and the queue must accept turns.
func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  "checkpoint store unreachable",
		})
		return
	}
	if !s.pool.Accepting() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  "turn queue not accepting",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
