package testutil

import (
	"fmt"
	"testing"

	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/anjiri1684/mock_exams/utils"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DB opens a private in-memory SQLite database with the full schema migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedUser(tb testing.TB, db *gorm.DB, email, role string) *models.User {
	tb.Helper()
	u := &models.User{FullName: "Test User", Email: email, Password: "x", Role: role}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCategory(tb testing.TB, db *gorm.DB, name string) *models.Category {
	tb.Helper()
	c := &models.Category{Name: name, Slug: utils.DeriveSlug(name)}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedSeries(tb testing.TB, db *gorm.DB, categoryID uuid.UUID, title string, price *float64) *models.Series {
	tb.Helper()
	s := &models.Series{CategoryID: categoryID, Title: title, Slug: utils.DeriveSlug(title), Price: price, Currency: "USD"}
	if err := db.Omit("Category", "Tags", "Links").Create(s).Error; err != nil {
		tb.Fatalf("seed series: %v", err)
	}
	return s
}

func SeedTest(tb testing.TB, db *gorm.DB, title string, free bool) *models.Test {
	tb.Helper()
	t := &models.Test{Title: title, Slug: utils.DeriveSlug(title), DurationMinutes: 60, IsFree: free}
	if err := db.Omit("Questions", "Links").Create(t).Error; err != nil {
		tb.Fatalf("seed test: %v", err)
	}
	return t
}

// SeedLink stores a membership with the path composed from the given records.
func SeedLink(tb testing.TB, db *gorm.DB, c *models.Category, s *models.Series, t *models.Test) *models.SeriesTest {
	tb.Helper()
	l := &models.SeriesTest{SeriesID: s.ID, TestID: t.ID, FullSlug: utils.ComposePath(c.Slug, s.Slug, t.Slug)}
	if err := db.Omit("Series", "Test").Create(l).Error; err != nil {
		tb.Fatalf("seed link: %v", err)
	}
	return l
}

func SeedQuestion(tb testing.TB, db *gorm.DB, testID uuid.UUID, correct string, marks int) *models.Question {
	tb.Helper()
	q := &models.Question{
		TestID:        testID,
		QuestionText:  "question " + correct,
		Options:       datatypes.NewJSONType(map[string]string{"a": "A", "b": "B", "c": "C"}),
		CorrectAnswer: correct,
		Marks:         marks,
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func Price(v float64) *float64 { return &v }
