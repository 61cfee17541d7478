package jobs

import (
	"context"

	"github.com/anjiri1684/mock_exams/cache"
	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/anjiri1684/mock_exams/websocket"
)

// AuditSlugPaths repairs any stored test path that no longer matches its category,
// series and test slugs. Renames keep paths in step, so a repair means something
// wrote to the tables outside the services.
func AuditSlugPaths() {
	changes, err := services.AuditLinks(database.DB)
	if err != nil {
		logger.Log.Error("slug audit failed", "error", err)
		return
	}
	if len(changes) == 0 {
		logger.Log.Debug("slug audit found no drift")
		return
	}

	for _, ch := range changes {
		logger.Log.Warn("repaired drifted test path", "old", ch.Old, "new", ch.New)
	}
	cache.Resolve.Invalidate(context.Background())
	websocket.BroadcastPathChanges(changes)
}
