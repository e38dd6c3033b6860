package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mteuf/chatbot-testing/internal/services"
	"github.com/mteuf/chatbot-testing/pkg/response"
	"gorm.io/gorm"
)

type SessionHandler struct {
	service *services.SessionService
}

func NewSessionHandler(db *gorm.DB) *SessionHandler {
	return &SessionHandler{service: services.NewSessionService(db)}
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	session, err := h.service.Create()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// List handles GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.service.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sessions)
}

// Get handles GET /api/sessions/:id and returns the transcript with
// per-message feedback states.
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}
	response.Success(c, session)
}

// Reset handles DELETE /api/sessions/:id/messages and clears the
// conversation history and feedback state.
func (h *SessionHandler) Reset(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.service.Get(id); err != nil {
		response.NotFound(c, "session not found")
		return
	}
	if err := h.service.Reset(id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}
