package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/mteuf/chatbot-testing/internal/config"
	"github.com/mteuf/chatbot-testing/internal/handlers"
	"github.com/mteuf/chatbot-testing/internal/middleware"
	"github.com/mteuf/chatbot-testing/internal/models"
	"github.com/mteuf/chatbot-testing/internal/services"
	"github.com/mteuf/chatbot-testing/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	// Feedback persistence: detached dispatch, best-effort writes.
	queue := services.InitTaskQueue(cfg)
	defer queue.Close()

	feedbackService := services.NewFeedbackService(db, queue)
	if syncQueue, ok := queue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(feedbackService.Store)
	}
	if worker := services.NewWorker(&cfg.Redis); worker != nil {
		worker.SetProcessor(feedbackService.Store)
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start worker: %v", err)
		}
		defer worker.Stop()
	}

	cleanup := services.StartSessionCleanup(db, cfg.Session.RetentionHours)
	defer cleanup.Stop()

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	sessionHandler := handlers.NewSessionHandler(db)
	chatHandler := handlers.NewChatHandler(db, &cfg.Endpoint)
	feedbackHandler := handlers.NewFeedbackHandler(db, queue)
	eventsHandler := handlers.NewEventsHandler(services.GetSSEHub())

	api := r.Group("/api")
	{
		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions", sessionHandler.List)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.DELETE("/sessions/:id/messages", sessionHandler.Reset)

		api.POST("/sessions/:id/chat", middleware.RateLimit(2, 5), chatHandler.Send)

		api.POST("/sessions/:id/messages/:idx/rating", feedbackHandler.Rate)
		api.POST("/sessions/:id/messages/:idx/feedback", feedbackHandler.Submit)
		api.GET("/feedback/categories", feedbackHandler.Categories)

		api.GET("/events", eventsHandler.Stream)
	}

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
