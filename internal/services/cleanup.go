package services

import (
	"time"

	"github.com/mteuf/chatbot-testing/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartSessionCleanup runs an hourly purge of sessions idle longer than the
// configured retention. Returns the scheduler so callers can stop it.
func StartSessionCleanup(db *gorm.DB, retentionHours int) *cron.Cron {
	service := NewSessionService(db)
	retention := time.Duration(retentionHours) * time.Hour

	scheduler := cron.New()
	scheduler.AddFunc("@hourly", func() {
		if _, err := service.PurgeIdle(retention); err != nil {
			logger.Warnf("[Session] Cleanup failed: %v", err)
		}
	})
	scheduler.Start()

	logger.Infof("[Session] Cleanup scheduler started, retention: %v", retention)
	return scheduler
}
