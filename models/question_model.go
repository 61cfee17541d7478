package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Question struct {
	ID            uuid.UUID                             `gorm:"type:uuid;primary_key" json:"id"`
	TestID        uuid.UUID                             `gorm:"type:uuid;not null;index" json:"test_id"`
	Position      int                                   `gorm:"not null;default:0" json:"position"`
	QuestionText  string                                `gorm:"type:text;not null" json:"question_text"`
	Options       datatypes.JSONType[map[string]string] `json:"options"`
	CorrectAnswer string                                `gorm:"type:text;not null" json:"correct_answer"`
	Marks         int                                   `gorm:"not null;default:0" json:"marks"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Points is the value of a correct answer; unset marks count as 1.
func (q *Question) Points() int {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}
