package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mteuf/chatbot-testing/internal/services"
	"github.com/mteuf/chatbot-testing/pkg/response"
	"gorm.io/gorm"
)

type FeedbackHandler struct {
	service *services.FeedbackService
}

func NewFeedbackHandler(db *gorm.DB, queue services.TaskQueue) *FeedbackHandler {
	return &FeedbackHandler{service: services.NewFeedbackService(db, queue)}
}

type rateRequest struct {
	Score string `json:"score" binding:"required,oneof=thumbs_up thumbs_down"`
}

type submitRequest struct {
	Category string `json:"category"`
	Comment  string `json:"comment"`
}

func messageIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		response.BadRequest(c, "invalid message index")
		return 0, false
	}
	return idx, true
}

// Rate handles POST /api/sessions/:id/messages/:idx/rating
func (h *FeedbackHandler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	idx, ok := messageIndex(c)
	if !ok {
		return
	}

	if err := h.service.Rate(c.Param("id"), idx, req.Score); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"index": idx, "feedback_state": req.Score})
}

// Submit handles POST /api/sessions/:id/messages/:idx/feedback. The
// acknowledgment does not wait for the warehouse write.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	idx, ok := messageIndex(c)
	if !ok {
		return
	}

	if err := h.service.Submit(c.Param("id"), idx, req.Category, req.Comment); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"index": idx, "feedback_state": "submitted"})
}

// Categories handles GET /api/feedback/categories so the capture form can
// offer the fixed set.
func (h *FeedbackHandler) Categories(c *gin.Context) {
	response.Success(c, services.FeedbackCategories)
}
