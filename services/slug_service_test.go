package services

import (
	"strings"
	"testing"

	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type tree struct {
	category *models.Category
	series   *models.Series
	test     *models.Test
}

// seedTree builds SSC Exams / CGL 2025 / Tier I with two questions.
func seedTree(t *testing.T, db *gorm.DB) tree {
	t.Helper()
	c := testutil.SeedCategory(t, db, "SSC Exams")
	s := testutil.SeedSeries(t, db, c.ID, "CGL 2025", nil)
	tt := testutil.SeedTest(t, db, "Tier I", false)
	testutil.SeedLink(t, db, c, s, tt)
	testutil.SeedQuestion(t, db, tt.ID, "a", 2)
	testutil.SeedQuestion(t, db, tt.ID, "b", 1)
	return tree{c, s, tt}
}

func TestResolvePath(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	got, err := ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	require.NoError(t, err)
	assert.Equal(t, "ssc-exams/cgl-2025/tier-i", got.Path)
	assert.Equal(t, tr.category.ID, got.Category.ID)
	assert.Equal(t, tr.series.ID, got.Series.ID)
	assert.Equal(t, tr.category.ID, got.Series.Category.ID)
	assert.Equal(t, tr.test.ID, got.Test.ID)
	assert.Len(t, got.Questions, 2)

	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-ii")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolvePath(db, "ssc-exams/cgl-2025")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRenameCategoryMovesPaths(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	category, changes, err := RenameCategory(db, tr.category.ID, "SSC Exams 2026")
	require.NoError(t, err)
	assert.Equal(t, "ssc-exams-2026", category.Slug)
	assert.Equal(t, []PathChange{{Old: "ssc-exams/cgl-2025/tier-i", New: "ssc-exams-2026/cgl-2025/tier-i"}}, changes)

	got, err := ResolvePath(db, "ssc-exams-2026/cgl-2025/tier-i")
	require.NoError(t, err)
	assert.Equal(t, "SSC Exams 2026", got.Category.Name)

	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameSequenceKeepsPathsResolvable(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	steps := []struct {
		rename  func() error
		oldPath string
		newPath string
	}{
		{
			rename: func() error {
				_, _, err := RenameCategory(db, tr.category.ID, "Staff Selection")
				return err
			},
			oldPath: "ssc-exams/cgl-2025/tier-i",
			newPath: "staff-selection/cgl-2025/tier-i",
		},
		{
			rename: func() error {
				_, _, err := RenameSeries(db, tr.series.ID, "CGL 2026")
				return err
			},
			oldPath: "staff-selection/cgl-2025/tier-i",
			newPath: "staff-selection/cgl-2026/tier-i",
		},
		{
			rename: func() error {
				_, _, err := RenameTest(db, tr.test.ID, "Tier I Mock 1")
				return err
			},
			oldPath: "staff-selection/cgl-2026/tier-i",
			newPath: "staff-selection/cgl-2026/tier-i-mock-1",
		},
	}

	for _, step := range steps {
		require.NoError(t, step.rename())
		got, err := ResolvePath(db, step.newPath)
		require.NoError(t, err, step.newPath)
		assert.Equal(t, tr.test.ID, got.Test.ID)
		_, err = ResolvePath(db, step.oldPath)
		assert.ErrorIs(t, err, ErrNotFound, step.oldPath)
	}

	got, err := ResolvePath(db, "staff-selection/cgl-2026/tier-i-mock-1")
	require.NoError(t, err)
	assert.Equal(t, "Staff Selection", got.Category.Name)
	assert.Equal(t, "CGL 2026", got.Series.Title)
	assert.Equal(t, "Tier I Mock 1", got.Test.Title)
}

func TestRenameTestUpdatesEveryMembership(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)
	bank := testutil.SeedCategory(t, db, "Banking")
	po := testutil.SeedSeries(t, db, bank.ID, "PO Prelims", testutil.Price(499))
	testutil.SeedLink(t, db, bank, po, tr.test)

	_, changes, err := RenameTest(db, tr.test.ID, "Reasoning Drill")
	require.NoError(t, err)
	assert.ElementsMatch(t, []PathChange{
		{Old: "ssc-exams/cgl-2025/tier-i", New: "ssc-exams/cgl-2025/reasoning-drill"},
		{Old: "banking/po-prelims/tier-i", New: "banking/po-prelims/reasoning-drill"},
	}, changes)

	for _, p := range []string{"ssc-exams/cgl-2025/reasoning-drill", "banking/po-prelims/reasoning-drill"} {
		_, err := ResolvePath(db, p)
		assert.NoError(t, err, p)
	}
}

func TestRenameCollisionRollsBack(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)
	testutil.SeedCategory(t, db, "Railways")

	_, _, err := RenameCategory(db, tr.category.ID, "RAILWAYS")
	assert.ErrorIs(t, err, ErrSlugConflict)

	var c models.Category
	require.NoError(t, db.Take(&c, "id = ?", tr.category.ID).Error)
	assert.Equal(t, "SSC Exams", c.Name)
	assert.Equal(t, "ssc-exams", c.Slug)
	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	assert.NoError(t, err)
}

func TestRenameTestPathCollisionRollsBack(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)
	other := testutil.SeedTest(t, db, "Tier II", false)
	testutil.SeedLink(t, db, tr.category, tr.series, other)

	_, _, err := RenameTest(db, other.ID, "Tier I")
	assert.ErrorIs(t, err, ErrSlugConflict)

	var got models.Test
	require.NoError(t, db.Take(&got, "id = ?", other.ID).Error)
	assert.Equal(t, "tier-ii", got.Slug)
	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-ii")
	assert.NoError(t, err)
}

func TestRenameRejectsEmptySlug(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	_, _, err := RenameSeries(db, tr.series.ID, "???")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = RenameCategory(db, tr.category.ID, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSlugLongerThanColumnIsRejected(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	// "㎒" expands to "mhz", so 100 runes become a 300 byte slug.
	title := strings.Repeat("㎒", 100)

	_, _, err := RenameCategory(db, tr.category.ID, title)
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = RenameTest(db, tr.test.ID, title)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = CreateCategory(db, title)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = CreateTag(db, strings.Repeat("㎒", 34))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	assert.NoError(t, err)
}

func TestResyncKeepsDatabaseErrors(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	connLost := errors.New("connection reset by peer")
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(connLost)
	}))

	_, err := resyncLinks(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("series_id = ?", tr.series.ID)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, connLost)
	assert.NotErrorIs(t, err, ErrConsistency)
}

func TestRenameMissingEntity(t *testing.T) {
	db := testutil.DB(t)
	seedTree(t, db)
	missing := testutil.SeedUser(t, db, "x@example.com", "student").ID

	_, _, err := RenameCategory(db, missing, "Anything")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = RenameSeries(db, missing, "Anything")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = RenameTest(db, missing, "Anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeriesAddedAfterRenameUsesNewCategorySlug(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	_, _, err := RenameCategory(db, tr.category.ID, "SSC Exams 2026")
	require.NoError(t, err)

	series, err := CreateSeries(db, SeriesInput{CategoryID: tr.category.ID, Title: "CHSL 2026"})
	require.NoError(t, err)
	link, err := AttachTest(db, series.ID, tr.test.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, "ssc-exams-2026/chsl-2026/tier-i", link.FullSlug)

	_, err = ResolvePath(db, "ssc-exams-2026/chsl-2026/tier-i")
	assert.NoError(t, err)
	_, err = ResolvePath(db, "ssc-exams/chsl-2026/tier-i")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachAndDetachTest(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)
	extra := testutil.SeedTest(t, db, "Tier II", false)

	link, err := AttachTest(db, tr.series.ID, extra.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, link.Position)
	assert.Equal(t, "ssc-exams/cgl-2025/tier-ii", link.FullSlug)

	_, err = AttachTest(db, tr.series.ID, extra.ID, -1)
	assert.ErrorIs(t, err, ErrSlugConflict)

	removed, err := DetachTest(db, tr.series.ID, extra.ID)
	require.NoError(t, err)
	assert.Equal(t, "ssc-exams/cgl-2025/tier-ii", removed.FullSlug)
	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-ii")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = DetachTest(db, tr.series.ID, extra.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditLinksRepairsDrift(t *testing.T) {
	db := testutil.DB(t)
	tr := seedTree(t, db)

	changes, err := AuditLinks(db)
	require.NoError(t, err)
	assert.Empty(t, changes)

	require.NoError(t, db.Model(&models.SeriesTest{}).
		Where("series_id = ? AND test_id = ?", tr.series.ID, tr.test.ID).
		Update("full_slug", "stale/path/here").Error)

	changes, err = AuditLinks(db)
	require.NoError(t, err)
	assert.Equal(t, []PathChange{{Old: "stale/path/here", New: "ssc-exams/cgl-2025/tier-i"}}, changes)

	_, err = ResolvePath(db, "ssc-exams/cgl-2025/tier-i")
	assert.NoError(t, err)
}
