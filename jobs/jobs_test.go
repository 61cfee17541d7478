package jobs

import (
	"testing"
	"time"

	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditSlugPathsRepairsDrift(t *testing.T) {
	db := testutil.DB(t)
	database.DB = db
	c := testutil.SeedCategory(t, db, "SSC Exams")
	s := testutil.SeedSeries(t, db, c.ID, "CGL 2025", nil)
	tt := testutil.SeedTest(t, db, "Tier I", true)
	testutil.SeedLink(t, db, c, s, tt)

	require.NoError(t, db.Model(&models.Category{}).Where("id = ?", c.ID).Update("slug", "ssc").Error)

	AuditSlugPaths()

	var link models.SeriesTest
	require.NoError(t, db.Take(&link, "series_id = ? AND test_id = ?", s.ID, tt.ID).Error)
	assert.Equal(t, "ssc/cgl-2025/tier-i", link.FullSlug)
}

func TestExpirePendingEnrollmentsJob(t *testing.T) {
	db := testutil.DB(t)
	database.DB = db
	student := testutil.SeedUser(t, db, "student@example.com", "student")
	c := testutil.SeedCategory(t, db, "Banking")
	s := testutil.SeedSeries(t, db, c.ID, "PO Prelims", testutil.Price(499))

	e := models.Enrollment{StudentID: student.ID, SeriesID: s.ID, Status: models.EnrollmentPending}
	require.NoError(t, db.Omit("Series").Create(&e).Error)
	require.NoError(t, db.Model(&e).Update("created_at", time.Now().UTC().Add(-pendingEnrollmentTTL-time.Hour)).Error)

	ExpirePendingEnrollments()

	require.NoError(t, db.Take(&e, "id = ?", e.ID).Error)
	assert.Equal(t, models.EnrollmentExpired, e.Status)
}
