package services

import (
	"sort"

	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// composedFullSlug rebuilds a series_tests row's path from the current ancestor slugs.
const composedFullSlug = `(SELECT c.slug || '/' || s.slug || '/' || t.slug
	FROM series s
	JOIN categories c ON c.id = s.category_id
	JOIN tests t ON t.id = series_tests.test_id
	WHERE s.id = series_tests.series_id)`

type PathChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type ResolvedTest struct {
	Path      string
	Category  models.Category
	Series    models.Series
	Test      models.Test
	Questions []models.Question
}

func orderQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("created_at ASC")
}

// ResolvePath looks a test up by the exact full_slug of one of its series memberships.
func ResolvePath(db *gorm.DB, path string) (*ResolvedTest, error) {
	if _, _, _, ok := utils.SplitPath(path); !ok {
		return nil, errors.Wrapf(ErrValidation, "path %q must be category/series/test", path)
	}

	var link models.SeriesTest
	err := db.
		Preload("Series.Category").
		Preload("Series.Tags").
		Preload("Test.Questions", orderQuestions).
		Where("full_slug = ?", path).
		Take(&link).Error
	if err != nil {
		return nil, dbError(err, "path "+path)
	}

	return &ResolvedTest{
		Path:      link.FullSlug,
		Category:  link.Series.Category,
		Series:    link.Series,
		Test:      link.Test,
		Questions: link.Test.Questions,
	}, nil
}

func lockByIDs(tx *gorm.DB, dest interface{}, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(dest).Error
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// lockChain takes row locks on the given categories, series and tests, in that order.
func lockChain(tx *gorm.DB, categoryIDs, seriesIDs, testIDs []uuid.UUID) error {
	var categories []models.Category
	if err := lockByIDs(tx, &categories, uniqueIDs(categoryIDs)); err != nil {
		return dbError(err, "lock categories")
	}
	var series []models.Series
	if err := lockByIDs(tx, &series, uniqueIDs(seriesIDs)); err != nil {
		return dbError(err, "lock series")
	}
	var tests []models.Test
	if err := lockByIDs(tx, &tests, uniqueIDs(testIDs)); err != nil {
		return dbError(err, "lock tests")
	}
	return nil
}

type linkKey struct {
	seriesID uuid.UUID
	testID   uuid.UUID
}

// resyncLinks recomputes full_slug for every link selected by scope with a single
// UPDATE and reports the paths that moved.
func resyncLinks(tx *gorm.DB, scope func(*gorm.DB) *gorm.DB) ([]PathChange, error) {
	var before []models.SeriesTest
	if err := tx.Scopes(scope).Find(&before).Error; err != nil {
		return nil, dbError(err, "load links")
	}
	if len(before) == 0 {
		return nil, nil
	}

	res := tx.Model(&models.SeriesTest{}).Scopes(scope).Update("full_slug", gorm.Expr(composedFullSlug))
	if res.Error != nil {
		return nil, dbError(res.Error, "resync links")
	}
	if res.RowsAffected != int64(len(before)) {
		return nil, errors.Wrapf(ErrConsistency, "rewrote %d of %d links", res.RowsAffected, len(before))
	}

	var after []models.SeriesTest
	if err := tx.Scopes(scope).Find(&after).Error; err != nil {
		return nil, dbError(err, "reload links")
	}
	if len(after) != len(before) {
		return nil, errors.Wrapf(ErrConsistency, "expected %d links, found %d", len(before), len(after))
	}

	old := make(map[linkKey]string, len(before))
	for _, l := range before {
		old[linkKey{l.SeriesID, l.TestID}] = l.FullSlug
	}
	var changes []PathChange
	for _, l := range after {
		prev, ok := old[linkKey{l.SeriesID, l.TestID}]
		if !ok {
			return nil, errors.Wrap(ErrConsistency, "link set changed during resync")
		}
		if prev != l.FullSlug {
			changes = append(changes, PathChange{Old: prev, New: l.FullSlug})
		}
	}
	return changes, nil
}

// Slug column widths.
const (
	maxSlugLen    = 255
	maxTagSlugLen = 100
)

func requireSlug(text, what string, limit int) (string, error) {
	slug := utils.DeriveSlug(text)
	if slug == "" {
		return "", errors.Wrapf(ErrValidation, "%s %q has no characters usable in a slug", what, text)
	}
	if len(slug) > limit {
		return "", errors.Wrapf(ErrValidation, "%s slug is %d bytes, longer than %d", what, len(slug), limit)
	}
	return slug, nil
}

// RenameCategory renames a category and rewrites every path beneath it in one transaction.
func RenameCategory(db *gorm.DB, categoryID uuid.UUID, name string) (*models.Category, []PathChange, error) {
	var category models.Category
	var changes []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		category, changes, err = renameCategoryTx(tx, categoryID, name)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &category, changes, nil
}

func renameCategoryTx(tx *gorm.DB, categoryID uuid.UUID, name string) (models.Category, []PathChange, error) {
	var category models.Category
	slug, err := requireSlug(name, "category name", maxSlugLen)
	if err != nil {
		return category, nil, err
	}

	// Series and links are listed after the category lock, so none can be added under us.
	if err := lockChain(tx, []uuid.UUID{categoryID}, nil, nil); err != nil {
		return category, nil, err
	}
	var seriesIDs []uuid.UUID
	if err := tx.Model(&models.Series{}).Where("category_id = ?", categoryID).Pluck("id", &seriesIDs).Error; err != nil {
		return category, nil, dbError(err, "list series")
	}
	var testIDs []uuid.UUID
	if len(seriesIDs) > 0 {
		if err := tx.Model(&models.SeriesTest{}).Where("series_id IN ?", seriesIDs).Pluck("test_id", &testIDs).Error; err != nil {
			return category, nil, dbError(err, "list tests")
		}
	}
	if err := lockChain(tx, nil, seriesIDs, testIDs); err != nil {
		return category, nil, err
	}

	if err := tx.Take(&category, "id = ?", categoryID).Error; err != nil {
		return category, nil, dbError(err, "category")
	}
	if err := tx.Model(&category).Updates(map[string]interface{}{"name": name, "slug": slug}).Error; err != nil {
		return category, nil, dbError(err, "category "+slug)
	}

	category.Name, category.Slug = name, slug
	if len(seriesIDs) == 0 {
		return category, nil, nil
	}

	changes, err := resyncLinks(tx, func(db *gorm.DB) *gorm.DB {
		return db.Where("series_id IN ?", seriesIDs)
	})
	return category, changes, err
}

// RenameSeries retitles a series and rewrites the paths of all its tests.
func RenameSeries(db *gorm.DB, seriesID uuid.UUID, title string) (*models.Series, []PathChange, error) {
	var series models.Series
	var changes []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&series, "id = ?", seriesID).Error; err != nil {
			return dbError(err, "series")
		}
		in := seriesInputFrom(&series)
		in.Title = title
		var err error
		series, changes, err = updateSeriesTx(tx, seriesID, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &series, changes, nil
}

// RenameTest retitles a test and rewrites its path in every series it belongs to.
func RenameTest(db *gorm.DB, testID uuid.UUID, title string) (*models.Test, []PathChange, error) {
	var test models.Test
	var changes []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&test, "id = ?", testID).Error; err != nil {
			return dbError(err, "test")
		}
		in := testInputFrom(&test)
		in.Title = title
		var err error
		test, changes, err = updateTestTx(tx, testID, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &test, changes, nil
}

// attachTestTx adds a test to a series, composing its path from the ancestors as they
// stand under lock. A negative position appends the test after the existing ones.
func attachTestTx(tx *gorm.DB, seriesID, testID uuid.UUID, position int) (*models.SeriesTest, error) {
	var series models.Series
	if err := tx.Take(&series, "id = ?", seriesID).Error; err != nil {
		return nil, dbError(err, "series")
	}
	if err := lockChain(tx, []uuid.UUID{series.CategoryID}, []uuid.UUID{seriesID}, []uuid.UUID{testID}); err != nil {
		return nil, err
	}

	var category models.Category
	if err := tx.Take(&category, "id = ?", series.CategoryID).Error; err != nil {
		return nil, dbError(err, "category")
	}
	if err := tx.Take(&series, "id = ?", seriesID).Error; err != nil {
		return nil, dbError(err, "series")
	}
	if series.CategoryID != category.ID {
		return nil, errors.Wrap(ErrConsistency, "series moved to another category")
	}
	var test models.Test
	if err := tx.Take(&test, "id = ?", testID).Error; err != nil {
		return nil, dbError(err, "test")
	}

	if position < 0 {
		var count int64
		if err := tx.Model(&models.SeriesTest{}).Where("series_id = ?", seriesID).Count(&count).Error; err != nil {
			return nil, dbError(err, "count series tests")
		}
		position = int(count)
	}

	link := models.SeriesTest{
		SeriesID: seriesID,
		TestID:   testID,
		Position: position,
		FullSlug: utils.ComposePath(category.Slug, series.Slug, test.Slug),
	}
	if err := tx.Create(&link).Error; err != nil {
		return nil, dbError(err, "path "+link.FullSlug)
	}
	return &link, nil
}

func AttachTest(db *gorm.DB, seriesID, testID uuid.UUID, position int) (*models.SeriesTest, error) {
	var link *models.SeriesTest
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		link, err = attachTestTx(tx, seriesID, testID, position)
		return err
	})
	return link, err
}

func DetachTest(db *gorm.DB, seriesID, testID uuid.UUID) (*models.SeriesTest, error) {
	var link models.SeriesTest
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&link, "series_id = ? AND test_id = ?", seriesID, testID).Error; err != nil {
			return dbError(err, "series test")
		}
		return tx.Where("series_id = ? AND test_id = ?", seriesID, testID).Delete(&models.SeriesTest{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// AuditLinks finds links whose stored path no longer matches their ancestors and
// rewrites them. It returns the repaired paths.
func AuditLinks(db *gorm.DB) ([]PathChange, error) {
	var changes []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var drifted []models.SeriesTest
		err := tx.Where("full_slug <> " + composedFullSlug).Find(&drifted).Error
		if err != nil {
			return dbError(err, "audit links")
		}
		if len(drifted) == 0 {
			return nil
		}
		keys := make([][]interface{}, 0, len(drifted))
		for _, l := range drifted {
			keys = append(keys, []interface{}{l.SeriesID, l.TestID})
		}
		changes, err = resyncLinks(tx, func(db *gorm.DB) *gorm.DB {
			return db.Where("(series_id, test_id) IN ?", keys)
		})
		return err
	})
	return changes, err
}
