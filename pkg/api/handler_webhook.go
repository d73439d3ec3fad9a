package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nivelo-ai/leadrouter/pkg/models"
	"github.com/nivelo-ai/leadrouter/pkg/queue"
)

// webhookKnownFields are the payload keys the router interprets; everything
// else is carried through as webhook_data.
var webhookKnownFields = map[string]struct{}{
	"contactId":      {},
	"conversationId": {},
	"locationId":     {},
	"body":           {},
}

// handleWebhook accepts one CRM message delivery and queues a turn. The
// webhook is answered before any processing happens.
func (s *Server) handleWebhook(c *gin.Context) {
	if !s.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	webhook, err := parseWebhook(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	turn := queue.NewTurn(webhook)
	if err := s.pool.Enqueue(turn); err != nil {
		s.logger.Warn("Webhook rejected",
			"thread_id", turn.ThreadID,
			"error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable, retry later"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "queued",
		"thread_id": turn.ThreadID,
		"turn_id":   turn.TurnID,
	})
}

// authorized verifies the shared webhook secret in constant time. An empty
// configured token disables verification.
func (s *Server) authorized(c *gin.Context) bool {
	if s.token == "" {
		return true
	}
	sent := c.GetHeader("X-Webhook-Token")
	return subtle.ConstantTimeCompare([]byte(sent), []byte(s.token)) == 1
}

// parseWebhook validates the payload and normalizes it into an InboundMessage.
func parseWebhook(payload map[string]any) (models.InboundMessage, error) {
	m := models.InboundMessage{
		ContactID:      stringField(payload, "contactId"),
		ConversationID: stringField(payload, "conversationId"),
		LocationID:     stringField(payload, "locationId"),
		Body:           stringField(payload, "body"),
	}
	if m.ContactID == "" {
		return m, errors.New("contactId field is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return m, errors.New("body field is required")
	}

	for k, v := range payload {
		if _, known := webhookKnownFields[k]; known {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = v
	}
	return m, nil
}

func stringField(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
