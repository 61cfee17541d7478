package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Series is a priced (or free, when Price is nil) collection of tests inside a category.
type Series struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CategoryID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_series_category_slug" json:"category_id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Slug          string    `gorm:"size:255;not null;uniqueIndex:idx_series_category_slug" json:"slug"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         *float64  `gorm:"type:numeric(10,2)" json:"price"`
	Currency      string    `gorm:"size:3;default:'USD'" json:"currency"`
	CoverImageURL *string   `gorm:"type:text" json:"cover_image_url"`

	Category Category     `gorm:"foreignkey:CategoryID" json:"category"`
	Tags     []*Tag       `gorm:"many2many:series_tags;" json:"tags,omitempty"`
	Links    []SeriesTest `gorm:"foreignkey:SeriesID" json:"tests,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Series) TableName() string { return "series" }

func (s *Series) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Series) IsFree() bool {
	return s.Price == nil || *s.Price <= 0
}

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name string    `gorm:"size:100;not null;unique" json:"name"`
	Slug string    `gorm:"size:100;not null;unique" json:"slug"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
