package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// ThreadSummary is the ops view of one thread's checkpoint.
type ThreadSummary struct {
	ThreadID     string            `json:"thread_id"`
	ContactID    string            `json:"contact_id"`
	LeadScore    int               `json:"lead_score"`
	Category     string            `json:"category"`
	CurrentAgent string            `json:"current_agent,omitempty"`
	Extracted    map[string]string `json:"extracted_data"`
	MessageCount int               `json:"message_count"`
	LastActivity time.Time         `json:"last_activity"`
}

// handleGetThread serves GET /api/v1/threads/:id.
func (s *Server) handleGetThread(c *gin.Context) {
	state, err := s.store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		s.logger.Error("Thread lookup failed", "thread_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, &ThreadSummary{
		ThreadID:     state.ThreadID,
		ContactID:    state.ContactID,
		LeadScore:    state.LeadScore,
		Category:     string(models.CategoryForScore(state.LeadScore)),
		CurrentAgent: string(state.CurrentAgent),
		Extracted:    state.ExtractedData,
		MessageCount: len(state.Messages),
		LastActivity: state.UpdatedAt,
	})
}
