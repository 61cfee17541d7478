package services

import (
	"github.com/anjiri1684/mock_exams/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SeriesInput struct {
	CategoryID    uuid.UUID
	Title         string
	Description   string
	Price         *float64
	Currency      string
	CoverImageURL *string
	// TagIDs replaces the series' tags; nil leaves them as they are.
	TagIDs []uuid.UUID
}

type TestInput struct {
	Title           string
	Description     string
	DurationMinutes int
	IsFree          bool
	// SeriesIDs replaces the test's memberships; nil leaves them as they are.
	SeriesIDs []uuid.UUID
}

type QuestionInput struct {
	QuestionText  string
	Options       map[string]string
	CorrectAnswer string
	Marks         int
	Position      int
}

func seriesInputFrom(s *models.Series) SeriesInput {
	return SeriesInput{
		CategoryID:    s.CategoryID,
		Title:         s.Title,
		Description:   s.Description,
		Price:         s.Price,
		Currency:      s.Currency,
		CoverImageURL: s.CoverImageURL,
	}
}

func testInputFrom(t *models.Test) TestInput {
	return TestInput{
		Title:           t.Title,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		IsFree:          t.IsFree,
	}
}

func orderLinks(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Categories

func CreateCategory(db *gorm.DB, name string) (*models.Category, error) {
	slug, err := requireSlug(name, "category name", maxSlugLen)
	if err != nil {
		return nil, err
	}
	category := models.Category{Name: name, Slug: slug}
	if err := db.Create(&category).Error; err != nil {
		return nil, dbError(err, "category "+slug)
	}
	return &category, nil
}

func ListCategories(db *gorm.DB) ([]models.Category, error) {
	var categories []models.Category
	err := db.Preload("Series", func(db *gorm.DB) *gorm.DB { return db.Order("title ASC") }).
		Order("name ASC").
		Find(&categories).Error
	return categories, dbError(err, "categories")
}

func GetCategory(db *gorm.DB, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := db.Preload("Series").Take(&category, "id = ?", categoryID).Error; err != nil {
		return nil, dbError(err, "category")
	}
	return &category, nil
}

// DeleteCategory refuses to remove a category that still owns series.
func DeleteCategory(db *gorm.DB, categoryID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := lockChain(tx, []uuid.UUID{categoryID}, nil, nil); err != nil {
			return err
		}
		var category models.Category
		if err := tx.Take(&category, "id = ?", categoryID).Error; err != nil {
			return dbError(err, "category")
		}
		var count int64
		if err := tx.Model(&models.Series{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
			return dbError(err, "count series")
		}
		if count > 0 {
			return errors.Wrapf(ErrHasDependents, "category %s has %d series", category.Slug, count)
		}
		return dbError(tx.Delete(&category).Error, "category")
	})
}

// Series

func CreateSeries(db *gorm.DB, in SeriesInput) (*models.Series, error) {
	slug, err := requireSlug(in.Title, "series title", maxSlugLen)
	if err != nil {
		return nil, err
	}

	var series models.Series
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockChain(tx, []uuid.UUID{in.CategoryID}, nil, nil); err != nil {
			return err
		}
		var category models.Category
		if err := tx.Take(&category, "id = ?", in.CategoryID).Error; err != nil {
			return dbError(err, "category")
		}

		series = models.Series{
			CategoryID:    category.ID,
			Title:         in.Title,
			Slug:          slug,
			Description:   in.Description,
			Price:         in.Price,
			Currency:      currencyOrDefault(in.Currency),
			CoverImageURL: in.CoverImageURL,
		}
		if err := tx.Omit("Category", "Tags", "Links").Create(&series).Error; err != nil {
			return dbError(err, "series "+slug)
		}
		if in.TagIDs != nil {
			if err := replaceTags(tx, &series, in.TagIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSeries(db, series.ID)
}

func GetSeries(db *gorm.DB, seriesID uuid.UUID) (*models.Series, error) {
	var series models.Series
	err := db.Preload("Category").
		Preload("Tags").
		Preload("Links", orderLinks).
		Preload("Links.Test").
		Take(&series, "id = ?", seriesID).Error
	if err != nil {
		return nil, dbError(err, "series")
	}
	return &series, nil
}

func ListSeries(db *gorm.DB, categoryID *uuid.UUID) ([]models.Series, error) {
	var series []models.Series
	q := db.Preload("Category").Preload("Tags").Order("title ASC")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	err := q.Find(&series).Error
	return series, dbError(err, "series")
}

// UpdateSeries replaces a series' fields. A new title or category rewrites the paths of
// every test in the series within the same transaction.
func UpdateSeries(db *gorm.DB, seriesID uuid.UUID, in SeriesInput) (*models.Series, []PathChange, error) {
	var changes []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		_, changes, err = updateSeriesTx(tx, seriesID, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	series, err := GetSeries(db, seriesID)
	return series, changes, err
}

func updateSeriesTx(tx *gorm.DB, seriesID uuid.UUID, in SeriesInput) (models.Series, []PathChange, error) {
	var series models.Series
	slug, err := requireSlug(in.Title, "series title", maxSlugLen)
	if err != nil {
		return series, nil, err
	}

	if err := tx.Take(&series, "id = ?", seriesID).Error; err != nil {
		return series, nil, dbError(err, "series")
	}
	fromCategory := series.CategoryID
	var testIDs []uuid.UUID
	if err := tx.Model(&models.SeriesTest{}).Where("series_id = ?", seriesID).Pluck("test_id", &testIDs).Error; err != nil {
		return series, nil, dbError(err, "list tests")
	}
	if err := lockChain(tx, []uuid.UUID{fromCategory, in.CategoryID}, []uuid.UUID{seriesID}, testIDs); err != nil {
		return series, nil, err
	}
	if err := tx.Take(&series, "id = ?", seriesID).Error; err != nil {
		return series, nil, dbError(err, "series")
	}
	if series.CategoryID != fromCategory {
		return series, nil, errors.Wrap(ErrConsistency, "series moved to another category")
	}
	if in.CategoryID != fromCategory {
		var target models.Category
		if err := tx.Take(&target, "id = ?", in.CategoryID).Error; err != nil {
			return series, nil, dbError(err, "category")
		}
	}

	err = tx.Model(&series).Updates(map[string]interface{}{
		"category_id":     in.CategoryID,
		"title":           in.Title,
		"slug":            slug,
		"description":     in.Description,
		"price":           in.Price,
		"currency":        currencyOrDefault(in.Currency),
		"cover_image_url": in.CoverImageURL,
	}).Error
	if err != nil {
		return series, nil, dbError(err, "series "+slug)
	}
	series.CategoryID, series.Title, series.Slug = in.CategoryID, in.Title, slug
	series.Description, series.Price, series.CoverImageURL = in.Description, in.Price, in.CoverImageURL
	series.Currency = currencyOrDefault(in.Currency)

	if in.TagIDs != nil {
		if err := replaceTags(tx, &series, in.TagIDs); err != nil {
			return series, nil, err
		}
	}

	changes, err := resyncLinks(tx, func(db *gorm.DB) *gorm.DB {
		return db.Where("series_id = ?", seriesID)
	})
	return series, changes, err
}

// DeleteSeries removes a series with its test memberships and tags. Series with
// enrollments are kept. The removed paths are returned with an empty New.
func DeleteSeries(db *gorm.DB, seriesID uuid.UUID) ([]PathChange, error) {
	var removed []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var series models.Series
		if err := tx.Take(&series, "id = ?", seriesID).Error; err != nil {
			return dbError(err, "series")
		}
		if err := lockChain(tx, []uuid.UUID{series.CategoryID}, []uuid.UUID{seriesID}, nil); err != nil {
			return err
		}

		var enrollments int64
		if err := tx.Model(&models.Enrollment{}).Where("series_id = ?", seriesID).Count(&enrollments).Error; err != nil {
			return dbError(err, "count enrollments")
		}
		if enrollments > 0 {
			return errors.Wrapf(ErrHasDependents, "series %s has %d enrollments", series.Slug, enrollments)
		}

		var links []models.SeriesTest
		if err := tx.Where("series_id = ?", seriesID).Find(&links).Error; err != nil {
			return dbError(err, "links")
		}
		for _, l := range links {
			removed = append(removed, PathChange{Old: l.FullSlug})
		}
		if err := tx.Where("series_id = ?", seriesID).Delete(&models.SeriesTest{}).Error; err != nil {
			return dbError(err, "links")
		}
		if err := tx.Model(&series).Association("Tags").Clear(); err != nil {
			return dbError(err, "series tags")
		}
		return dbError(tx.Delete(&series).Error, "series")
	})
	return removed, err
}

func replaceTags(tx *gorm.DB, series *models.Series, tagIDs []uuid.UUID) error {
	tagIDs = uniqueIDs(tagIDs)
	var tags []*models.Tag
	if len(tagIDs) > 0 {
		if err := tx.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
			return dbError(err, "tags")
		}
		if len(tags) != len(tagIDs) {
			return errors.Wrap(ErrValidation, "one or more tag ids are invalid")
		}
	}
	if err := tx.Model(series).Association("Tags").Replace(tags); err != nil {
		return dbError(err, "series tags")
	}
	series.Tags = tags
	return nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

// Tests

func CreateTest(db *gorm.DB, in TestInput) (*models.Test, error) {
	slug, err := requireSlug(in.Title, "test title", maxSlugLen)
	if err != nil {
		return nil, err
	}

	var test models.Test
	err = db.Transaction(func(tx *gorm.DB) error {
		test = models.Test{
			Title:           in.Title,
			Slug:            slug,
			Description:     in.Description,
			DurationMinutes: in.DurationMinutes,
			IsFree:          in.IsFree,
		}
		if err := tx.Omit("Questions", "Links").Create(&test).Error; err != nil {
			return dbError(err, "test "+slug)
		}
		for _, seriesID := range uniqueIDs(in.SeriesIDs) {
			if _, err := attachTestTx(tx, seriesID, test.ID, -1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetTest(db, test.ID)
}

func GetTest(db *gorm.DB, testID uuid.UUID) (*models.Test, error) {
	var test models.Test
	err := db.Preload("Questions", orderQuestions).
		Preload("Links").
		Take(&test, "id = ?", testID).Error
	if err != nil {
		return nil, dbError(err, "test")
	}
	return &test, nil
}

func ListTests(db *gorm.DB) ([]models.Test, error) {
	var tests []models.Test
	err := db.Preload("Links").Order("title ASC").Find(&tests).Error
	return tests, dbError(err, "tests")
}

// UpdateTest replaces a test's fields and, when SeriesIDs is set, its memberships. Paths
// of every membership are rewritten in the same transaction.
func UpdateTest(db *gorm.DB, testID uuid.UUID, in TestInput) (*models.Test, []PathChange, error) {
	var changes []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		_, changes, err = updateTestTx(tx, testID, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	test, err := GetTest(db, testID)
	return test, changes, err
}

func updateTestTx(tx *gorm.DB, testID uuid.UUID, in TestInput) (models.Test, []PathChange, error) {
	var test models.Test
	slug, err := requireSlug(in.Title, "test title", maxSlugLen)
	if err != nil {
		return test, nil, err
	}

	var current []uuid.UUID
	if err := tx.Model(&models.SeriesTest{}).Where("test_id = ?", testID).Pluck("series_id", &current).Error; err != nil {
		return test, nil, dbError(err, "list series")
	}
	affected := append(append([]uuid.UUID{}, current...), in.SeriesIDs...)
	var categoryIDs []uuid.UUID
	if len(affected) > 0 {
		if err := tx.Model(&models.Series{}).Where("id IN ?", uniqueIDs(affected)).Pluck("category_id", &categoryIDs).Error; err != nil {
			return test, nil, dbError(err, "list categories")
		}
	}
	if err := lockChain(tx, categoryIDs, affected, []uuid.UUID{testID}); err != nil {
		return test, nil, err
	}

	if err := tx.Take(&test, "id = ?", testID).Error; err != nil {
		return test, nil, dbError(err, "test")
	}
	err = tx.Model(&test).Updates(map[string]interface{}{
		"title":            in.Title,
		"slug":             slug,
		"description":      in.Description,
		"duration_minutes": in.DurationMinutes,
		"is_free":          in.IsFree,
	}).Error
	if err != nil {
		return test, nil, dbError(err, "test "+slug)
	}
	test.Title, test.Slug, test.Description = in.Title, slug, in.Description
	test.DurationMinutes, test.IsFree = in.DurationMinutes, in.IsFree

	var changes []PathChange
	if in.SeriesIDs != nil {
		want := make(map[uuid.UUID]bool, len(in.SeriesIDs))
		for _, id := range in.SeriesIDs {
			want[id] = true
		}
		have := make(map[uuid.UUID]bool, len(current))
		for _, id := range current {
			have[id] = true
			if want[id] {
				continue
			}
			var link models.SeriesTest
			if err := tx.Take(&link, "series_id = ? AND test_id = ?", id, testID).Error; err != nil {
				return test, nil, dbError(err, "series test")
			}
			if err := tx.Where("series_id = ? AND test_id = ?", id, testID).Delete(&models.SeriesTest{}).Error; err != nil {
				return test, nil, dbError(err, "series test")
			}
			changes = append(changes, PathChange{Old: link.FullSlug})
		}
		for _, id := range uniqueIDs(in.SeriesIDs) {
			if have[id] {
				continue
			}
			if _, err := attachTestTx(tx, id, testID, -1); err != nil {
				return test, nil, err
			}
		}
	}

	moved, err := resyncLinks(tx, func(db *gorm.DB) *gorm.DB {
		return db.Where("test_id = ?", testID)
	})
	return test, append(changes, moved...), err
}

// DeleteTest removes a test, its questions and memberships. Tests that have been
// attempted are kept, since attempts are permanent.
func DeleteTest(db *gorm.DB, testID uuid.UUID) ([]PathChange, error) {
	var removed []PathChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var seriesIDs []uuid.UUID
		if err := tx.Model(&models.SeriesTest{}).Where("test_id = ?", testID).Pluck("series_id", &seriesIDs).Error; err != nil {
			return dbError(err, "list series")
		}
		var categoryIDs []uuid.UUID
		if len(seriesIDs) > 0 {
			if err := tx.Model(&models.Series{}).Where("id IN ?", seriesIDs).Pluck("category_id", &categoryIDs).Error; err != nil {
				return dbError(err, "list categories")
			}
		}
		if err := lockChain(tx, categoryIDs, seriesIDs, []uuid.UUID{testID}); err != nil {
			return err
		}

		var test models.Test
		if err := tx.Take(&test, "id = ?", testID).Error; err != nil {
			return dbError(err, "test")
		}
		var attempts int64
		if err := tx.Model(&models.Attempt{}).Where("test_id = ?", testID).Count(&attempts).Error; err != nil {
			return dbError(err, "count attempts")
		}
		if attempts > 0 {
			return errors.Wrapf(ErrHasDependents, "test %s has %d attempts", test.Slug, attempts)
		}

		var links []models.SeriesTest
		if err := tx.Where("test_id = ?", testID).Find(&links).Error; err != nil {
			return dbError(err, "links")
		}
		for _, l := range links {
			removed = append(removed, PathChange{Old: l.FullSlug})
		}
		if err := tx.Where("test_id = ?", testID).Delete(&models.SeriesTest{}).Error; err != nil {
			return dbError(err, "links")
		}
		if err := tx.Where("test_id = ?", testID).Delete(&models.Question{}).Error; err != nil {
			return dbError(err, "questions")
		}
		return dbError(tx.Delete(&test).Error, "test")
	})
	return removed, err
}

// Questions

func validateQuestion(in QuestionInput) error {
	if len(in.Options) == 0 {
		return nil
	}
	if _, ok := in.Options[in.CorrectAnswer]; !ok {
		return errors.Wrapf(ErrValidation, "correct answer %q is not one of the options", in.CorrectAnswer)
	}
	return nil
}

func recomputeTotalMarks(tx *gorm.DB, testID uuid.UUID) error {
	var total int64
	err := tx.Model(&models.Question{}).
		Select("COALESCE(SUM(CASE WHEN marks > 0 THEN marks ELSE 1 END), 0)").
		Where("test_id = ?", testID).
		Scan(&total).Error
	if err != nil {
		return dbError(err, "total marks")
	}
	return dbError(tx.Model(&models.Test{}).Where("id = ?", testID).Update("total_marks", total).Error, "total marks")
}

func CreateQuestion(db *gorm.DB, testID uuid.UUID, in QuestionInput) (*models.Question, error) {
	if err := validateQuestion(in); err != nil {
		return nil, err
	}
	var question models.Question
	err := db.Transaction(func(tx *gorm.DB) error {
		var test models.Test
		if err := tx.Select("id").Take(&test, "id = ?", testID).Error; err != nil {
			return dbError(err, "test")
		}
		question = models.Question{
			TestID:        testID,
			Position:      in.Position,
			QuestionText:  in.QuestionText,
			Options:       datatypes.NewJSONType(in.Options),
			CorrectAnswer: in.CorrectAnswer,
			Marks:         in.Marks,
		}
		if err := tx.Create(&question).Error; err != nil {
			return dbError(err, "question")
		}
		return recomputeTotalMarks(tx, testID)
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func ListQuestions(db *gorm.DB, testID uuid.UUID) ([]models.Question, error) {
	var questions []models.Question
	err := orderQuestions(db.Where("test_id = ?", testID)).Find(&questions).Error
	return questions, dbError(err, "questions")
}

func UpdateQuestion(db *gorm.DB, questionID uuid.UUID, in QuestionInput) (*models.Question, error) {
	if err := validateQuestion(in); err != nil {
		return nil, err
	}
	var question models.Question
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&question, "id = ?", questionID).Error; err != nil {
			return dbError(err, "question")
		}
		question.Position = in.Position
		question.QuestionText = in.QuestionText
		question.Options = datatypes.NewJSONType(in.Options)
		question.CorrectAnswer = in.CorrectAnswer
		question.Marks = in.Marks
		if err := tx.Save(&question).Error; err != nil {
			return dbError(err, "question")
		}
		return recomputeTotalMarks(tx, question.TestID)
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func DeleteQuestion(db *gorm.DB, questionID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var question models.Question
		if err := tx.Take(&question, "id = ?", questionID).Error; err != nil {
			return dbError(err, "question")
		}
		if err := tx.Delete(&question).Error; err != nil {
			return dbError(err, "question")
		}
		return recomputeTotalMarks(tx, question.TestID)
	})
}

// Tags

func CreateTag(db *gorm.DB, name string) (*models.Tag, error) {
	slug, err := requireSlug(name, "tag name", maxTagSlugLen)
	if err != nil {
		return nil, err
	}
	tag := models.Tag{Name: name, Slug: slug}
	if err := db.Create(&tag).Error; err != nil {
		return nil, dbError(err, "tag "+slug)
	}
	return &tag, nil
}

func ListTags(db *gorm.DB) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.Order("name ASC").Find(&tags).Error
	return tags, dbError(err, "tags")
}
