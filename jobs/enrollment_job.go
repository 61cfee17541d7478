package jobs

import (
	"time"

	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/services"
)

const pendingEnrollmentTTL = 24 * time.Hour

func ExpirePendingEnrollments() {
	expired, err := services.ExpirePendingEnrollments(database.DB, pendingEnrollmentTTL)
	if err != nil {
		logger.Log.Error("expiring pending enrollments failed", "error", err)
		return
	}
	if expired > 0 {
		logger.Log.Info("expired pending enrollments", "count", expired)
	}
}
