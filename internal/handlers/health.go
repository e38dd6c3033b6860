package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mteuf/chatbot-testing/internal/models"
	"github.com/mteuf/chatbot-testing/internal/services"
)

// HealthHandler provides the health check endpoint.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	taskQueue := services.GetTaskQueue()
	queueMode := "in-process"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	var sessionCount int64
	models.GetDB().Model(&models.Session{}).Count(&sessionCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "fieldchat",
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"sse_clients": services.GetSSEHub().ClientCount(),
			"sessions":    sessionCount,
		},
	})
}
