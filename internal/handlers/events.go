package handlers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mteuf/chatbot-testing/internal/services"
	"github.com/mteuf/chatbot-testing/pkg/logger"
)

// EventsHandler lets additional clients watch a transcript live over SSE.
type EventsHandler struct {
	hub *services.SSEHub
}

func NewEventsHandler(hub *services.SSEHub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /api/events. An optional session_id query narrows the
// stream to one conversation.
func (h *EventsHandler) Stream(c *gin.Context) {
	sessionID := c.Query("session_id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()

	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			if sessionID != "" && event.SessionID != sessionID {
				return true
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
