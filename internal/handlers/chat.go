package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mteuf/chatbot-testing/internal/config"
	"github.com/mteuf/chatbot-testing/internal/models"
	"github.com/mteuf/chatbot-testing/internal/services"
	"github.com/mteuf/chatbot-testing/pkg/logger"
	"github.com/mteuf/chatbot-testing/pkg/response"
	"gorm.io/gorm"
)

// ChatHandler drives one conversation turn per request and relays reply
// fragments to the caller as server-sent events.
type ChatHandler struct {
	sessions *services.SessionService
	client   *services.ChatClient
	hub      *services.SSEHub
}

func NewChatHandler(db *gorm.DB, cfg *config.EndpointConfig) *ChatHandler {
	return &ChatHandler{
		sessions: services.NewSessionService(db),
		client:   services.NewChatClient(cfg),
		hub:      services.GetSSEHub(),
	}
}

type chatTurnRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send handles POST /api/sessions/:id/chat. The user message is appended to
// history, the upstream consumer is driven to exhaustion, fragments are
// relayed over SSE as they arrive, and the finished reply is appended as the
// assistant message.
func (h *ChatHandler) Send(c *gin.Context) {
	id := c.Param("id")

	var req chatTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}

	userMsg, err := h.sessions.Append(id, models.RoleUser, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	history := append(session.Messages, *userMsg)
	assistantIdx := userMsg.Idx + 1

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	onFragment := func(fragment string) {
		event := services.TurnEvent{
			SessionID:    id,
			MessageIndex: assistantIdx,
			Fragment:     fragment,
		}
		h.writeEvent(c, event)
		h.hub.Publish(event)
	}

	// The turn runs to stream exhaustion once initiated; a watcher going away
	// does not interrupt it, and the reply is recorded either way.
	reply := h.client.Reply(context.Background(), history, onFragment)

	if _, err := h.sessions.Append(id, models.RoleAssistant, reply); err != nil {
		logger.Errorf("[Chat] Could not append assistant message: %v", err)
	}

	done := services.TurnEvent{
		SessionID:    id,
		MessageIndex: assistantIdx,
		Content:      reply,
		Done:         true,
	}
	h.writeEvent(c, done)
	h.hub.Publish(done)

	fmt.Fprintf(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

func (h *ChatHandler) writeEvent(c *gin.Context, event services.TurnEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("[Chat] SSE marshal error: %v", err)
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
