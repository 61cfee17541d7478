package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Test struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Slug            string    `gorm:"size:255;not null;index" json:"slug"`
	Description     string    `gorm:"type:text" json:"description"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	TotalMarks      int       `gorm:"not null;default:0" json:"total_marks"`
	IsFree          bool      `gorm:"not null;default:false" json:"is_free"`

	Questions []Question   `gorm:"foreignkey:TestID" json:"questions,omitempty"`
	Links     []SeriesTest `gorm:"foreignkey:TestID" json:"series,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Test) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SeriesTest is the membership of a test in a series. FullSlug is the denormalized
// category/series/test path and is only ever written by the slug service.
type SeriesTest struct {
	SeriesID uuid.UUID `gorm:"type:uuid;primaryKey" json:"series_id"`
	TestID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"test_id"`
	Position int       `gorm:"not null;default:0" json:"position"`
	FullSlug string    `gorm:"size:767;not null;uniqueIndex" json:"full_slug"`

	Series Series `gorm:"foreignkey:SeriesID" json:"-"`
	Test   Test   `gorm:"foreignkey:TestID" json:"test,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SeriesTest) TableName() string { return "series_tests" }
