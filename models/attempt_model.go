package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAttemptImmutable = errors.New("attempts cannot be modified once submitted")

// Attempt is one scored submission. Rows are insert-only.
type Attempt struct {
	ID          uuid.UUID                             `gorm:"type:uuid;primary_key" json:"id"`
	TestID      uuid.UUID                             `gorm:"type:uuid;not null;index:idx_attempts_test_user" json:"test_id"`
	UserID      uuid.UUID                             `gorm:"type:uuid;not null;index:idx_attempts_test_user" json:"user_id"`
	Answers     datatypes.JSONType[map[string]string] `gorm:"not null" json:"answers"`
	Score       int                                   `gorm:"not null" json:"score"`
	CompletedAt time.Time                             `gorm:"not null" json:"completed_at"`

	Test Test `gorm:"foreignkey:TestID" json:"-"`
	User User `gorm:"foreignkey:UserID" json:"-"`
}

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Attempt) BeforeUpdate(tx *gorm.DB) error {
	return ErrAttemptImmutable
}

func (a *Attempt) BeforeDelete(tx *gorm.DB) error {
	return ErrAttemptImmutable
}

type Scorecard struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	AttemptID uuid.UUID `gorm:"type:uuid;not null;unique" json:"attempt_id"`
	FileURL   string    `gorm:"type:text;not null" json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Scorecard) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
